// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"testing"

	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func TestTraitSet(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	colors := &colorDef{}
	orders := &orderDef{}
	empty := NewEmptyTraitSet().Plus(colors.Default()).Plus(orders.Default())
	require.Equal(t, 2, empty.Size())
	require.Equal(t, "none.[]", empty.String())

	checkAligned := func(ts *TraitSet) {
		for i := 0; i < ts.Size(); i++ {
			require.Equal(t, ts.TraitDefAt(i), ts.Trait(i).TraitDef())
		}
	}
	checkAligned(empty)

	t.Run("replace", func(t *testing.T) {
		red := empty.Replace(0, colors.of("red"))
		checkAligned(red)
		require.Equal(t, "red.[]", red.String())
		require.Same(t, red, empty.ReplaceTrait(&color{def: colors, name: "red"}))
		require.Same(t, empty, red.Replace(0, colors.Default()))
		require.Equal(t, "none.[]", empty.String())
	})

	t.Run("slot alignment", func(t *testing.T) {
		require.Panics(t, func() { empty.Replace(0, orders.of("a")) })
		require.Panics(t, func() { empty.Replace(5, colors.of("red")) })
		other := &colorDef{}
		require.Same(t, empty, empty.ReplaceTrait(other.of("red")))
	})

	t.Run("satisfies", func(t *testing.T) {
		redAB := empty.Replace(0, colors.of("red")).Replace(1, orders.of("a,b"))
		redA := empty.Replace(0, colors.of("red")).Replace(1, orders.of("a"))
		require.True(t, redAB.Satisfies(redA))
		require.False(t, redA.Satisfies(redAB))
		require.False(t, redAB.Satisfies(empty))
		require.True(t, redAB.ContainsIfApplicable(orders.of("a")))
		require.False(t, redAB.ContainsIfApplicable(orders.of("b")))
		require.True(t, redAB.ContainsIfApplicable((&colorDef{}).of("blue")))
		require.True(t, redAB.Comprises(colors.of("red"), orders.of("a,b")))
		require.Equal(t, []Trait{colors.of("red"), orders.of("a,b")}, redAB.Difference(empty))
	})

	t.Run("composite", func(t *testing.T) {
		multi := empty.ReplaceTraits(orders, []MultipleTrait{orders.of("b"), orders.of("a")})
		checkAligned(multi)
		require.False(t, multi.AllSimple())
		require.Len(t, multi.Traits(orders), 2)
		simple := multi.Simplify()
		require.True(t, simple.AllSimple())
		require.Equal(t, "none.[a]", simple.String())
	})

	t.Run("families sharing a name", func(t *testing.T) {
		c1, c2 := &colorDef{}, &colorDef{}
		base := NewEmptyTraitSet()
		red1 := base.Plus(c1.of("red"))
		red2 := base.Plus(c2.of("red"))
		require.NotSame(t, red1, red2)
		require.Same(t, red1, base.Plus(c1.of("red")))
		require.Same(t, red2, base.Plus(c2.of("red")))
	})

	t.Run("fill from", func(t *testing.T) {
		partial := NewEmptyTraitSet().Plus(colors.of("red"))
		filled := partial.FillFrom(empty)
		checkAligned(filled)
		require.Equal(t, "red.[]", filled.String())
		require.Same(t, empty.Replace(0, colors.of("red")), filled)
		require.Equal(t, 1, partial.Size())
	})
}
