// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// CompositeTrait is a trait set slot holding several values of one multiple
// family at once, such as two independent orderings of the same rows. Its
// members are canonical, strictly increasing under MultipleTrait.Compare, and
// there are always at least two of them.
type CompositeTrait struct {
	def    TraitDef
	traits []MultipleTrait
	digest string
}

var _ Trait = (*CompositeTrait)(nil)

// MakeCompositeTrait returns the canonical trait for a node that offers all
// of the given values of def:
//
//   - no values yields def's default;
//   - one value yields that value, canonicalized, never a wrapper;
//   - otherwise the canonicalized values are sorted and wrapped, and the
//     wrapper is canonicalized.
//
// Passing two equal values, or a value of another family, is a programming
// error and panics.
func MakeCompositeTrait(def TraitDef, traits []MultipleTrait) Trait {
	switch len(traits) {
	case 0:
		return def.Default()
	case 1:
		checkFamily(def, traits[0])
		return def.Canonize(traits[0])
	}
	members := make([]MultipleTrait, len(traits))
	for i, t := range traits {
		checkFamily(def, t)
		members[i] = def.Canonize(t).(MultipleTrait)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Compare(members[j]) < 0
	})
	for i := 1; i < len(members); i++ {
		if members[i-1].Compare(members[i]) >= 0 {
			panic(errors.AssertionFailedf(
				"duplicate value %s in composite %s trait", members[i], def.Name()))
		}
	}
	c := &CompositeTrait{def: def, traits: members}
	var buf strings.Builder
	buf.WriteByte('[')
	for i, m := range members {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(m.String())
	}
	buf.WriteByte(']')
	c.digest = buf.String()
	return def.Canonize(c)
}

func checkFamily(def TraitDef, t Trait) {
	if t.TraitDef() != def {
		panic(errors.AssertionFailedf(
			"trait %s belongs to %s, not %s", t, t.TraitDef().Name(), def.Name()))
	}
}

// TraitDef is part of the Trait interface.
func (c *CompositeTrait) TraitDef() TraitDef { return c.def }

// Satisfies is part of the Trait interface. A composite satisfies a single
// value if any member does, and another composite if every member of the
// requirement is satisfied by some member.
func (c *CompositeTrait) Satisfies(required Trait) bool {
	if rc, ok := required.(*CompositeTrait); ok {
		for _, r := range rc.traits {
			if !c.Satisfies(r) {
				return false
			}
		}
		return true
	}
	for _, t := range c.traits {
		if t.Satisfies(required) {
			return true
		}
	}
	return false
}

// Register is part of the Trait interface.
func (c *CompositeTrait) Register(p Planner) {
	for _, t := range c.traits {
		t.Register(p)
	}
}

// String is part of the Trait interface.
func (c *CompositeTrait) String() string { return c.digest }

// Size returns the number of members.
func (c *CompositeTrait) Size() int { return len(c.traits) }

// Trait returns the i-th member.
func (c *CompositeTrait) Trait(i int) MultipleTrait { return c.traits[i] }

// Traits returns the members in increasing order. The slice must not be
// modified.
func (c *CompositeTrait) Traits() []MultipleTrait { return c.traits }
