// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCanonize(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	d := &colorDef{}
	red := d.of("red")
	require.Same(t, red, d.Canonize(&color{def: d, name: "red"}))
	require.NotSame(t, red, d.of("blue"))
	require.Equal(t, 2, d.Interned())

	// Another family with a value of the same digest keeps its own
	// canonical instance.
	other := &colorDef{}
	require.NotSame(t, red, other.of("red"))

	d.ResetInterner()
	require.Equal(t, 0, d.Interned())
}

func TestCanonizeConcurrent(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	d := &colorDef{}
	const workers = 8
	results := make([][]Trait, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < 100; i++ {
				results[w] = append(results[w], d.of(fmt.Sprintf("c%d", i%10)))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for w := 1; w < workers; w++ {
		for i := range results[w] {
			require.Same(t, results[0][i], results[w][i])
		}
	}
	require.Equal(t, 10, d.Interned())
}

func TestCompositeTrait(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	d := &orderDef{}
	a, ab, b := d.of("a"), d.of("a,b"), d.of("b")

	t.Run("degenerate", func(t *testing.T) {
		require.Same(t, d.Default(), MakeCompositeTrait(d, nil))
		single := MakeCompositeTrait(d, []MultipleTrait{&order{def: d, cols: "a"}})
		require.Same(t, a, single)
		_, isComposite := single.(*CompositeTrait)
		require.False(t, isComposite)
	})

	t.Run("canonical", func(t *testing.T) {
		c1 := MakeCompositeTrait(d, []MultipleTrait{b, ab})
		c2 := MakeCompositeTrait(d, []MultipleTrait{&order{def: d, cols: "a,b"}, b})
		require.Same(t, c1, c2)
		comp := c1.(*CompositeTrait)
		require.Equal(t, 2, comp.Size())
		require.Same(t, ab, comp.Trait(0))
		require.Same(t, b, comp.Trait(1))
		require.Equal(t, "[[a,b], [b]]", c1.String())
	})

	t.Run("satisfies", func(t *testing.T) {
		c := MakeCompositeTrait(d, []MultipleTrait{ab, b})
		for _, required := range []MultipleTrait{a, ab, b, d.Default().(MultipleTrait)} {
			anyMember := false
			for _, m := range c.(*CompositeTrait).Traits() {
				anyMember = anyMember || m.Satisfies(required)
			}
			require.Equal(t, anyMember, c.Satisfies(required), "required %s", required)
		}
		require.False(t, c.Satisfies(d.of("c")))
		require.True(t, c.Satisfies(MakeCompositeTrait(d, []MultipleTrait{a, b})))
		require.False(t, c.Satisfies(MakeCompositeTrait(d, []MultipleTrait{a, d.of("c")})))
	})

	t.Run("duplicate", func(t *testing.T) {
		require.Panics(t, func() { MakeCompositeTrait(d, []MultipleTrait{a, a}) })
	})

	t.Run("wrong family", func(t *testing.T) {
		other := &orderDef{}
		require.Panics(t, func() { MakeCompositeTrait(d, []MultipleTrait{a, other.of("b")}) })
		require.Panics(t, func() { MakeCompositeTrait(d, []MultipleTrait{other.of("b")}) })
	})
}
