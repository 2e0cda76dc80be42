// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package memo

import (
	"strconv"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
)

// SubsetOp is the operator name of subsets.
const SubsetOp = "Subset"

// Subset is the part of an equivalence class whose expressions satisfy a
// trait set. It stands in for its expressions as the input of registered
// expressions, and tracks the cheapest of them.
type Subset struct {
	id      int
	cluster *opt.Cluster
	set     *Set
	traits  *opt.TraitSet
	digest  string

	// alias is set when the subset's set was merged into a set that already
	// had a subset with the same traits.
	alias *Subset

	// Best is the cheapest expression found for the subset, or nil.
	Best opt.RelNode
	// BestCost is the cost of Best, or infinite.
	BestCost opt.Cost
	// Timestamp changes whenever Best changes.
	Timestamp int64
}

var _ opt.RelNode = (*Subset)(nil)

func newSubset(cluster *opt.Cluster, set *Set, traits *opt.TraitSet) *Subset {
	sub := &Subset{
		id:       cluster.NextID(),
		cluster:  cluster,
		set:      set,
		traits:   traits,
		BestCost: opt.MaxCost,
	}
	sub.digest = "Subset#" + strconv.Itoa(sub.id) + "." + traits.String()
	return sub
}

// Set returns the equivalence class of the subset.
func (s *Subset) Set() *Set { return s.set }

// Canonical follows aliases created by set merges and returns the subset
// that now represents this one.
func (s *Subset) Canonical() *Subset {
	for s.alias != nil {
		s = s.alias
	}
	return s
}

// IsAlias returns whether the subset was replaced by another in a merge.
func (s *Subset) IsAlias() bool { return s.alias != nil }

// Rels returns the expressions of the set whose traits satisfy the subset's
// traits.
func (s *Subset) Rels() []opt.RelNode {
	var res []opt.RelNode
	for _, r := range s.Canonical().set.rels {
		if r.TraitSet().Satisfies(s.traits) {
			res = append(res, r)
		}
	}
	return res
}

// ID is part of the opt.RelNode interface.
func (s *Subset) ID() int { return s.id }

// Op is part of the opt.RelNode interface.
func (s *Subset) Op() string { return SubsetOp }

// Cluster is part of the opt.RelNode interface.
func (s *Subset) Cluster() *opt.Cluster { return s.cluster }

// TraitSet is part of the opt.RelNode interface.
func (s *Subset) TraitSet() *opt.TraitSet { return s.traits }

// RowType is part of the opt.RelNode interface.
func (s *Subset) RowType() opt.RowType { return s.set.rowType }

// Inputs is part of the opt.RelNode interface.
func (s *Subset) Inputs() []opt.RelNode { return nil }

// Copy is part of the opt.RelNode interface. It returns the subset of the
// same set with the given traits.
func (s *Subset) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	if traits.Equals(s.traits) {
		return s
	}
	sub, _ := s.set.GetOrCreateSubset(s.cluster, traits)
	return sub
}

// Accept is part of the opt.RelNode interface.
func (s *Subset) Accept(v opt.RelShuttle) opt.RelNode { return v.Visit(s) }

// Attrs is part of the opt.RelNode interface.
func (s *Subset) Attrs() string { return "set=" + strconv.Itoa(s.set.id) }

// Digest is part of the opt.RelNode interface. It does not depend on the
// set, so that merging sets leaves the digests of parents intact.
func (s *Subset) Digest() string { return s.digest }

// EstimateRowCount is part of the opt.RelNode interface. It is the row count
// of the best expression, or of the first expression of the set.
func (s *Subset) EstimateRowCount(mq opt.RowCountQuery) float64 {
	if s.Best != nil {
		return mq.RowCount(s.Best)
	}
	if len(s.set.rels) > 0 {
		return mq.RowCount(s.set.rels[0])
	}
	return 1
}

// SelfCost is part of the opt.RelNode interface. The cost of a subset is
// that of its best expression, which the planner tracks.
func (s *Subset) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	if s.Best == nil {
		return f.Infinite()
	}
	return s.BestCost
}
