// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package memo holds the equivalence classes of the cost-based planner.
//
// A Set is a class of expressions that compute the same rows. Within a set,
// expressions are grouped into Subsets by trait set: a subset holds the
// expressions whose traits satisfy the subset's traits, and remembers the
// cheapest of them. A subset is itself a relational expression, so the
// inputs of registered expressions are subsets rather than concrete nodes;
// this lets one registered expression stand for every combination of its
// inputs' alternatives.
package memo

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
)

// Set is an equivalence class of expressions.
type Set struct {
	id      int
	rowType opt.RowType

	// rels are the registered expressions of the set, in registration order.
	rels []opt.RelNode

	// subsets are the trait combinations required or offered in the set, in
	// creation order.
	subsets []*Subset

	// parents are registered expressions with an input in this set.
	parents []opt.RelNode

	// mergedInto is the set that absorbed this one, if any.
	mergedInto *Set
}

// NewSet returns an empty equivalence class with the given row type.
func NewSet(id int, rowType opt.RowType) *Set {
	return &Set{id: id, rowType: rowType}
}

// ID returns the identifier of the set.
func (s *Set) ID() int { return s.id }

// RowType returns the row type shared by the set's expressions.
func (s *Set) RowType() opt.RowType { return s.rowType }

// Rels returns the registered expressions of the set.
func (s *Set) Rels() []opt.RelNode { return s.rels }

// Subsets returns the subsets of the set.
func (s *Set) Subsets() []*Subset { return s.subsets }

// Parents returns the registered expressions that consume the set.
func (s *Set) Parents() []opt.RelNode { return s.parents }

// Canonical follows merges and returns the set that now holds this set's
// expressions.
func (s *Set) Canonical() *Set {
	for s.mergedInto != nil {
		s = s.mergedInto
	}
	return s
}

// IsMerged returns whether the set was absorbed into another.
func (s *Set) IsMerged() bool { return s.mergedInto != nil }

// AddRel adds rel to the set. It returns false if rel is already present.
func (s *Set) AddRel(rel opt.RelNode) bool {
	for _, r := range s.rels {
		if r == rel {
			return false
		}
	}
	s.rels = append(s.rels, rel)
	return true
}

// AddParent records that rel has an input in this set.
func (s *Set) AddParent(rel opt.RelNode) {
	for _, p := range s.parents {
		if p == rel {
			return
		}
	}
	s.parents = append(s.parents, rel)
}

// Subset returns the subset with exactly the given traits.
func (s *Set) Subset(traits *opt.TraitSet) (*Subset, bool) {
	for _, sub := range s.subsets {
		if sub.traits.Equals(traits) {
			return sub, true
		}
	}
	return nil, false
}

// GetOrCreateSubset returns the subset with the given traits, creating it if
// needed. The second result is true if the subset was created.
func (s *Set) GetOrCreateSubset(cluster *opt.Cluster, traits *opt.TraitSet) (*Subset, bool) {
	if sub, ok := s.Subset(traits); ok {
		return sub, false
	}
	sub := newSubset(cluster, s, traits)
	s.subsets = append(s.subsets, sub)
	return sub, true
}

// MergeInto moves the expressions, parents and subsets of s into other and
// marks s as merged. A subset of s whose traits other already has becomes an
// alias of the subset of other; the rest move over unchanged. It returns the
// subsets of s that became aliases.
func (s *Set) MergeInto(other *Set) (aliased []*Subset) {
	if s == other || s.mergedInto != nil || other.mergedInto != nil {
		panic(errors.AssertionFailedf("cannot merge set %d into set %d", s.id, other.id))
	}
	for _, sub := range s.subsets {
		if existing, ok := other.Subset(sub.traits); ok {
			sub.alias = existing
			aliased = append(aliased, sub)
			continue
		}
		sub.set = other
		other.subsets = append(other.subsets, sub)
	}
	for _, r := range s.rels {
		other.AddRel(r)
	}
	for _, p := range s.parents {
		other.AddParent(p)
	}
	s.rels, s.subsets, s.parents = nil, nil, nil
	s.mergedInto = other
	return aliased
}
