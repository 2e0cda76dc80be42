// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/util/syncutil"
)

// TraitSet is an immutable vector holding one trait per family. The family
// of each slot is fixed when the slot is added, and every operation that
// "changes" a set returns a new set. Sets derived from the same empty set
// share a cache, so structurally equal sets of one planner are the same
// pointer.
type TraitSet struct {
	cache  *traitSetCache
	defs   []TraitDef
	traits []Trait
	digest string
}

type traitSetCache struct {
	mu struct {
		syncutil.Mutex
		// defIDs numbers the families seen by the cache. Families are keyed
		// by identity, since distinct families may share a name.
		defIDs map[TraitDef]int
		sets   map[string][]*TraitSet
	}
}

// NewEmptyTraitSet returns a trait set with no slots and a fresh cache.
// Planners create one and add a slot for each registered family.
func NewEmptyTraitSet() *TraitSet {
	c := &traitSetCache{}
	c.mu.defIDs = make(map[TraitDef]int)
	c.mu.sets = make(map[string][]*TraitSet)
	return c.canonical(nil, nil)
}

func (c *traitSetCache) canonical(defs []TraitDef, traits []Trait) *TraitSet {
	var key, digest strings.Builder
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range traits {
		if i > 0 {
			digest.WriteByte('.')
		}
		digest.WriteString(t.String())
		id, ok := c.mu.defIDs[defs[i]]
		if !ok {
			id = len(c.mu.defIDs)
			c.mu.defIDs[defs[i]] = id
		}
		fmt.Fprintf(&key, "%d=%s;", id, t)
	}
	k := key.String()
	for _, ts := range c.mu.sets[k] {
		if ts.sameTraits(traits) {
			return ts
		}
	}
	ts := &TraitSet{cache: c, defs: defs, traits: traits, digest: digest.String()}
	c.mu.sets[k] = append(c.mu.sets[k], ts)
	return ts
}

func (ts *TraitSet) sameTraits(traits []Trait) bool {
	if len(ts.traits) != len(traits) {
		return false
	}
	for i := range traits {
		if ts.traits[i] != traits[i] {
			return false
		}
	}
	return true
}

func (ts *TraitSet) with(defs []TraitDef, traits []Trait) *TraitSet {
	return ts.cache.canonical(defs, traits)
}

// Size returns the number of slots.
func (ts *TraitSet) Size() int { return len(ts.traits) }

// Trait returns the trait in slot i.
func (ts *TraitSet) Trait(i int) Trait { return ts.traits[i] }

// TraitDefAt returns the family that owns slot i.
func (ts *TraitSet) TraitDefAt(i int) TraitDef { return ts.defs[i] }

// IndexOf returns the slot of the given family, or -1.
func (ts *TraitSet) IndexOf(def TraitDef) int {
	for i, d := range ts.defs {
		if d == def {
			return i
		}
	}
	return -1
}

// TraitOf returns the trait held for the given family.
func (ts *TraitSet) TraitOf(def TraitDef) (Trait, bool) {
	if i := ts.IndexOf(def); i >= 0 {
		return ts.traits[i], true
	}
	return nil, false
}

// Traits returns the values held for a family, expanding a composite into
// its members.
func (ts *TraitSet) Traits(def TraitDef) []Trait {
	t, ok := ts.TraitOf(def)
	if !ok {
		return nil
	}
	if c, ok := t.(*CompositeTrait); ok {
		res := make([]Trait, c.Size())
		for i, m := range c.Traits() {
			res[i] = m
		}
		return res
	}
	return []Trait{t}
}

// Convention returns the convention held by the set, if a convention family
// is tracked.
func (ts *TraitSet) Convention() (Convention, bool) {
	for _, t := range ts.traits {
		if c, ok := t.(Convention); ok {
			return c, true
		}
	}
	return nil, false
}

// Replace returns a set with slot i replaced by t. The trait must belong to
// the family that owns the slot; anything else is a programming error and
// panics.
func (ts *TraitSet) Replace(i int, t Trait) *TraitSet {
	if i < 0 || i >= len(ts.traits) {
		panic(errors.AssertionFailedf("trait set %s has no slot %d", ts, i))
	}
	if t.TraitDef() != ts.defs[i] {
		panic(errors.AssertionFailedf(
			"cannot put %s trait %s into %s slot %d of %s",
			t.TraitDef().Name(), t, ts.defs[i].Name(), i, ts))
	}
	t = ts.defs[i].Canonize(t)
	if ts.traits[i] == t {
		return ts
	}
	traits := append([]Trait(nil), ts.traits...)
	traits[i] = t
	return ts.with(ts.defs, traits)
}

// ReplaceTrait returns a set with the slot of t's family replaced by t. If
// the family is not tracked the set is returned unchanged.
func (ts *TraitSet) ReplaceTrait(t Trait) *TraitSet {
	i := ts.IndexOf(t.TraitDef())
	if i < 0 {
		return ts
	}
	return ts.Replace(i, t)
}

// ReplaceTraits replaces the slot of def with the composite of the given
// values.
func (ts *TraitSet) ReplaceTraits(def TraitDef, traits []MultipleTrait) *TraitSet {
	return ts.ReplaceTrait(MakeCompositeTrait(def, traits))
}

// Plus returns a set that contains t. If t's family is tracked its slot is
// replaced; otherwise a slot is appended.
func (ts *TraitSet) Plus(t Trait) *TraitSet {
	def := t.TraitDef()
	if i := ts.IndexOf(def); i >= 0 {
		return ts.Replace(i, t)
	}
	defs := append(append([]TraitDef(nil), ts.defs...), def)
	traits := append(append([]Trait(nil), ts.traits...), def.Canonize(t))
	return ts.with(defs, traits)
}

// PlusAll applies Plus for each trait in turn.
func (ts *TraitSet) PlusAll(traits ...Trait) *TraitSet {
	res := ts
	for _, t := range traits {
		res = res.Plus(t)
	}
	return res
}

// Merge returns a set holding the traits of ts overridden by those of
// other.
func (ts *TraitSet) Merge(other *TraitSet) *TraitSet {
	return ts.PlusAll(other.traits...)
}

// FillFrom returns a set with a slot for every family of ref, copying ref's
// value for each family ts lacks. Nodes built before all families were
// registered get their missing trailing slots this way when they are
// constructed, never by editing a registered node.
func (ts *TraitSet) FillFrom(ref *TraitSet) *TraitSet {
	defs := append([]TraitDef(nil), ts.defs...)
	traits := append([]Trait(nil), ts.traits...)
	for i, def := range ref.defs {
		if ts.IndexOf(def) < 0 {
			defs = append(defs, def)
			traits = append(traits, ref.traits[i])
		}
	}
	return ref.with(defs, traits)
}

// Satisfies returns whether every requirement in required is met by the
// corresponding trait of ts. A family tracked by required but not by ts is
// unmet.
func (ts *TraitSet) Satisfies(required *TraitSet) bool {
	if ts == required {
		return true
	}
	for i, def := range required.defs {
		own, ok := ts.TraitOf(def)
		if !ok || !own.Satisfies(required.traits[i]) {
			return false
		}
	}
	return true
}

// Matches returns whether the two sets hold the same trait in each slot.
func (ts *TraitSet) Matches(other *TraitSet) bool {
	if ts == other {
		return true
	}
	if len(ts.traits) != len(other.traits) {
		return false
	}
	for i := range ts.traits {
		if ts.defs[i] != other.defs[i] || ts.traits[i] != other.traits[i] {
			return false
		}
	}
	return true
}

// Equals returns whether the two sets are the same set.
func (ts *TraitSet) Equals(other *TraitSet) bool {
	return ts == other || (other != nil && ts.Matches(other))
}

// Contains returns whether t is the value held in its family's slot.
func (ts *TraitSet) Contains(t Trait) bool {
	for _, own := range ts.traits {
		if own == t {
			return true
		}
	}
	return false
}

// ContainsIfApplicable returns whether t's family is not tracked, or the
// tracked value satisfies t.
func (ts *TraitSet) ContainsIfApplicable(t Trait) bool {
	own, ok := ts.TraitOf(t.TraitDef())
	return !ok || own.Satisfies(t)
}

// Comprises returns whether the set holds exactly the given traits, in any
// order.
func (ts *TraitSet) Comprises(traits ...Trait) bool {
	if len(traits) != len(ts.traits) {
		return false
	}
	for _, t := range traits {
		if !ts.Contains(t) {
			return false
		}
	}
	return true
}

// Difference returns the traits of ts that differ from the value other
// holds for the same family.
func (ts *TraitSet) Difference(other *TraitSet) []Trait {
	var res []Trait
	for i, t := range ts.traits {
		if o, ok := other.TraitOf(ts.defs[i]); !ok || o != t {
			res = append(res, t)
		}
	}
	return res
}

// AllSimple returns whether no slot holds a composite trait.
func (ts *TraitSet) AllSimple() bool {
	for _, t := range ts.traits {
		if _, ok := t.(*CompositeTrait); ok {
			return false
		}
	}
	return true
}

// Simplify returns a set in which every composite is replaced by its first
// member.
func (ts *TraitSet) Simplify() *TraitSet {
	res := ts
	for i, t := range ts.traits {
		if c, ok := t.(*CompositeTrait); ok {
			res = res.Replace(i, c.Trait(0))
		}
	}
	return res
}

// String returns the digest of the set: the trait digests joined by dots.
func (ts *TraitSet) String() string {
	return ts.digest
}
