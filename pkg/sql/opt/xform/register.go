// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/memo"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
)

// Register is part of the opt.Planner interface. It panics if rel is
// already registered, if equiv is not, or if the row types of rel and
// equiv differ.
func (o *Optimizer) Register(rel, equiv opt.RelNode) opt.RelNode {
	if o.IsRegistered(rel) {
		panic(errors.AssertionFailedf("%s is already registered", rel.Digest()))
	}
	var set *memo.Set
	if equiv != nil {
		eq := o.getSubset(equiv)
		if eq == nil {
			panic(errors.AssertionFailedf("equivalent expression %s is not registered", equiv.Digest()))
		}
		set = eq.Set()
	}
	return o.registerImpl(rel, set)
}

// EnsureRegistered is part of the opt.Planner interface.
func (o *Optimizer) EnsureRegistered(rel, equiv opt.RelNode) opt.RelNode {
	return o.ensureRegistered(rel, equiv)
}

// IsRegistered is part of the opt.Planner interface. Subsets count as
// registered.
func (o *Optimizer) IsRegistered(rel opt.RelNode) bool {
	return o.getSubset(rel) != nil
}

func (o *Optimizer) ensureRegistered(rel, equiv opt.RelNode) *memo.Subset {
	var set *memo.Set
	if equiv != nil {
		set = o.ensureRegistered(equiv, nil).Set()
	}
	if sub := o.getSubset(rel); sub != nil {
		o.noteSubset(sub)
		if set != nil && set != sub.Set() {
			o.merge(set, sub.Set())
		}
		return o.getSubset(rel)
	}
	return o.registerImpl(rel, set)
}

// getSubset returns the subset of a registered expression, or nil.
func (o *Optimizer) getSubset(rel opt.RelNode) *memo.Subset {
	if sub, ok := rel.(*memo.Subset); ok {
		return sub.Canonical()
	}
	r, ok := o.rels[rel]
	if !ok {
		return nil
	}
	sub, ok := o.subsetOf[r]
	if !ok {
		return nil
	}
	return sub.Canonical()
}

// registerImpl registers rel, and its inputs, in set, or in a new set if set
// is nil.
func (o *Optimizer) registerImpl(n opt.RelNode, set *memo.Set) *memo.Subset {
	if set != nil {
		set = set.Canonical()
		if !n.RowType().Equivalent(set.RowType()) {
			panic(errors.AssertionFailedf(
				"row type %s of %s does not match %s", n.RowType(), n.Op(), set.RowType()))
		}
	}
	if sub, ok := n.(*memo.Subset); ok {
		sub = sub.Canonical()
		o.noteSubset(sub)
		if set != nil && set != sub.Set() {
			o.merge(set, sub.Set())
		}
		return sub.Canonical()
	}

	orig := n
	var inputs []opt.RelNode
	for i, in := range n.Inputs() {
		sub := o.ensureRegistered(in, nil)
		if opt.RelNode(sub) != in && inputs == nil {
			inputs = append([]opt.RelNode(nil), n.Inputs()...)
		}
		if inputs != nil {
			inputs[i] = sub
		}
	}
	traits := n.TraitSet()
	if traits.Size() < len(o.traitDefs) {
		ref := o.emptyTraits
		if set != nil && len(set.Subsets()) > 0 {
			ref = set.Subsets()[0].TraitSet()
		}
		traits = traits.FillFrom(ref)
	}
	if inputs != nil || traits != n.TraitSet() {
		if inputs == nil {
			inputs = n.Inputs()
		}
		n = n.Copy(traits, inputs)
	}

	if _, ok := n.(opt.Converter); ok && len(n.Inputs()) == 1 {
		inSet := o.getSubset(n.Inputs()[0]).Set()
		if set == nil {
			set = inSet
		} else if set != inSet {
			set = o.merge(set, inSet)
		}
	}

	for i := 0; i < n.TraitSet().Size(); i++ {
		o.registerTrait(n.TraitSet().Trait(i))
	}

	if existing, ok := o.digestToRel[n.Digest()]; ok {
		o.rels[orig] = existing
		eq := o.getSubset(existing)
		if set != nil && set.Canonical() != eq.Set() {
			o.merge(set, eq.Set())
		}
		return o.getSubset(existing)
	}

	if set == nil {
		set = memo.NewSet(len(o.sets)+1, n.RowType())
		o.sets = append(o.sets, set)
		o.origins[set] = orig
	}
	o.rels[orig] = n
	return o.addRelToSet(n, set)
}

// registerTrait lets a trait add its rules the first time it is seen.
func (o *Optimizer) registerTrait(t opt.Trait) {
	if _, ok := o.registeredTraits[t]; ok {
		return
	}
	o.registeredTraits[t] = struct{}{}
	t.Register(o)
}

func (o *Optimizer) addRelToSet(n opt.RelNode, set *memo.Set) *memo.Subset {
	set = set.Canonical()
	o.digestToRel[n.Digest()] = n
	o.rels[n] = n
	set.AddRel(n)
	for _, in := range n.Inputs() {
		o.getSubset(in).Set().AddParent(n)
	}
	o.metrics.RelsRegistered.Inc(1)

	sub, _ := set.GetOrCreateSubset(o.cluster, n.TraitSet())
	o.subsetOf[n] = sub
	o.noteSubset(sub)
	o.propagateCostImprovements(n)
	o.queueMatches(n)
	return o.getSubset(n)
}

// getOrCreateSubset returns the subset of set with the given traits. A new
// subset picks up the expressions of the set that satisfy its traits, and
// abstract converters are added between it and the other subsets where
// the conventions ask for them.
func (o *Optimizer) getOrCreateSubset(set *memo.Set, traits *opt.TraitSet) *memo.Subset {
	sub, _ := set.Canonical().GetOrCreateSubset(o.cluster, traits)
	o.noteSubset(sub)
	return sub.Canonical()
}

// noteSubset processes the creation of a subset, which may have been created
// outside the planner through Subset.Copy.
func (o *Optimizer) noteSubset(sub *memo.Subset) {
	if _, ok := o.knownSubsets[sub]; ok {
		return
	}
	o.knownSubsets[sub] = struct{}{}
	set := sub.Set()
	for _, r := range set.Rels() {
		if r.TraitSet().Satisfies(sub.TraitSet()) {
			o.propagateCostImprovements(r)
		}
	}
	for _, other := range set.Subsets() {
		if other == sub {
			continue
		}
		if useAbstractConverters(other.TraitSet(), sub.TraitSet()) {
			o.registerImpl(rel.NewAbstractConverter(o.cluster, sub.TraitSet(), other), set)
		}
		if useAbstractConverters(sub.TraitSet(), other.TraitSet()) {
			o.registerImpl(rel.NewAbstractConverter(o.cluster, other.TraitSet(), sub), set)
		}
	}
}

func useAbstractConverters(from, to *opt.TraitSet) bool {
	fromConv, ok := from.Convention()
	if !ok || fromConv.IsNone() {
		return false
	}
	toConv, ok := to.Convention()
	if !ok || toConv.IsNone() {
		return false
	}
	if from.Satisfies(to) {
		return false
	}
	return toConv.UseAbstractConvertersForConversion(from, to)
}

// merge merges two equivalence classes and returns the surviving one, which
// is the older of the two.
func (o *Optimizer) merge(a, b *memo.Set) *memo.Set {
	a, b = a.Canonical(), b.Canonical()
	if a == b {
		return a
	}
	if b.ID() < a.ID() {
		a, b = b, a
	}
	if !a.RowType().Equivalent(b.RowType()) {
		panic(errors.AssertionFailedf(
			"cannot merge set %d %s with set %d %s", a.ID(), a.RowType(), b.ID(), b.RowType()))
	}
	moved := b.Rels()
	aliased := b.MergeInto(a)
	o.metrics.SetsMerged.Inc(1)
	for _, sub := range aliased {
		o.knownSubsets[sub] = struct{}{}
	}

	// Expressions whose inputs became aliases are registered again with the
	// surviving subsets, which may find further equivalences.
	for _, p := range append([]opt.RelNode(nil), a.Parents()...) {
		if !hasAliasedInput(p) {
			continue
		}
		inputs := make([]opt.RelNode, len(p.Inputs()))
		for i, in := range p.Inputs() {
			if sub, ok := in.(*memo.Subset); ok {
				inputs[i] = sub.Canonical()
			} else {
				inputs[i] = in
			}
		}
		fixed := p.Copy(p.TraitSet(), inputs)
		o.importance[p] = 0
		o.ensureRegistered(fixed, p)
	}

	a = a.Canonical()
	for _, r := range a.Rels() {
		o.propagateCostImprovements(r)
	}
	for _, r := range moved {
		o.queueMatches(r)
	}
	return a.Canonical()
}

func hasAliasedInput(n opt.RelNode) bool {
	for _, in := range n.Inputs() {
		if sub, ok := in.(*memo.Subset); ok && sub.IsAlias() {
			return true
		}
	}
	return false
}

// propagateCostImprovements makes n the best expression of every subset of
// its set that it satisfies and for which it is cheaper than the current
// best, then reconsiders the parents of those subsets.
func (o *Optimizer) propagateCostImprovements(n opt.RelNode) {
	work := []opt.RelNode{n}
	for len(work) > 0 {
		r := work[0]
		work = work[1:]
		sub := o.getSubset(r)
		if sub == nil {
			continue
		}
		cost := o.Cost(r)
		if cost.IsInfinite() {
			continue
		}
		set := sub.Set()
		for _, s := range set.Subsets() {
			if !r.TraitSet().Satisfies(s.TraitSet()) || !cost.Less(s.BestCost) {
				continue
			}
			s.Best, s.BestCost = r, cost
			s.Timestamp = o.nextTimestamp()
			for _, p := range set.Parents() {
				if hasInput(p, s) {
					work = append(work, p)
				}
			}
		}
	}
}

func hasInput(n opt.RelNode, sub *memo.Subset) bool {
	for _, in := range n.Inputs() {
		if s, ok := in.(*memo.Subset); ok && s.Canonical() == sub {
			return true
		}
	}
	return false
}
