// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

// ConvertTraits converts rel to the traits of to, one family at a time in
// slot order, using each family's Convert. After each successful step,
// onStep is called with the converted node and the node it was converted
// from, and its result replaces the converted node; planners use it to
// register intermediate results. It returns false if some family cannot be
// converted.
func ConvertTraits(
	p Planner,
	rel RelNode,
	to *TraitSet,
	allowInfiniteCostConverters bool,
	onStep func(converted, from RelNode) RelNode,
) (RelNode, bool) {
	converted := rel
	for i := 0; i < to.Size(); i++ {
		def := to.TraitDefAt(i)
		toTrait := to.Trait(i)
		fromTrait, ok := converted.TraitSet().TraitOf(def)
		if !ok {
			return nil, false
		}
		if fromTrait.Satisfies(toTrait) {
			continue
		}
		if !def.CanConvert(p, fromTrait, toTrait) {
			return nil, false
		}
		next, ok := def.Convert(p, converted, toTrait, allowInfiniteCostConverters)
		if !ok {
			return nil, false
		}
		if onStep != nil {
			next = onStep(next, converted)
		}
		converted = next
	}
	return converted, true
}
