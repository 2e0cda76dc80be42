// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

// Trait is a property of a relational expression, such as the engine that
// can execute it (its convention), the order of its rows or the way its
// rows are distributed. Traits are immutable. After canonicalization through
// their TraitDef, structurally equal traits of one family are the same
// value, so canonical traits are compared with ==.
type Trait interface {
	// TraitDef returns the family this trait belongs to.
	TraitDef() TraitDef

	// Satisfies returns whether this trait meets the given requirement of the
	// same family. The relation is reflexive and transitive; for most families
	// it is equality, but ordered families let a stricter trait satisfy a
	// looser requirement.
	Satisfies(required Trait) bool

	// Register gives the trait a chance to add rules to a planner the first
	// time the planner sees it.
	Register(p Planner)

	// String returns the digest of the trait. Structurally equal traits of a
	// family have equal digests.
	String() string
}

// MultipleTrait is a trait of a family in which a node can hold several
// values at once (for example, rows sorted on a and, independently, on b).
// Values of such a family are totally ordered so that composites of them are
// canonical.
type MultipleTrait interface {
	Trait

	// Compare returns -1, 0 or +1 depending on whether the receiver sorts
	// before, equal to or after other.
	Compare(other MultipleTrait) int

	// IsTop returns whether this is the weakest value of the family, the one
	// satisfied by every other value.
	IsTop() bool
}

// TraitDef describes a family of traits. It canonicalizes the family's
// values, knows its default, and converts expressions between values.
//
// A TraitDef that keeps conversion data for a planner must either key that
// data by planner or be instantiated once per planner; two planning sessions
// that run concurrently must never share mutable conversion state.
type TraitDef interface {
	// Name returns a short name for the family, used in digests and errors.
	Name() string

	// Multiple returns whether a node can hold several values of this family
	// at once, stored as a CompositeTrait.
	Multiple() bool

	// Default returns the value used before anything more specific is known.
	Default() Trait

	// Canonize returns the canonical instance of the given trait. Calling it
	// twice on structurally equal values returns the identical instance.
	Canonize(t Trait) Trait

	// Convert converts rel so that it has the given trait. It returns false
	// when no conversion is possible, which is not an error. If rel already
	// satisfies the trait it may be returned unchanged.
	Convert(p Planner, rel RelNode, to Trait, allowInfiniteCostConverters bool) (RelNode, bool)

	// CanConvert is a cheap, side-effect free test of whether Convert could
	// succeed, used to prune the search before attempting a conversion.
	CanConvert(p Planner, from, to Trait) bool

	// RegisterConverterRule is called when a converter rule whose traits
	// belong to this family is added to the planner.
	RegisterConverterRule(p Planner, r ConverterRule)

	// DeregisterConverterRule is called when such a rule is removed.
	DeregisterConverterRule(p Planner, r ConverterRule)
}

// BaseTraitDef provides canonicalization and no-op converter rule
// bookkeeping. Trait families embed it.
type BaseTraitDef struct {
	interner Interner
}

// Canonize is part of the TraitDef interface.
func (b *BaseTraitDef) Canonize(t Trait) Trait {
	return b.interner.Intern(t)
}

// Interned returns the number of canonical values held by the family.
func (b *BaseTraitDef) Interned() int {
	return b.interner.Len()
}

// ResetInterner drops all canonical values. It must only be called once no
// live trait set references values of the family.
func (b *BaseTraitDef) ResetInterner() {
	b.interner.Reset()
}

// RegisterConverterRule is part of the TraitDef interface.
func (b *BaseTraitDef) RegisterConverterRule(Planner, ConverterRule) {}

// DeregisterConverterRule is part of the TraitDef interface.
func (b *BaseTraitDef) DeregisterConverterRule(Planner, ConverterRule) {}
