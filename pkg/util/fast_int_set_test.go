// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package util

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFastIntSetRandom checks the set against a map, with values on both
// sides of the small cutoff.
func TestFastIntSetRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	var s FastIntSet
	ref := make(map[int]struct{})
	for i := 0; i < 2000; i++ {
		v := rng.Intn(3*smallCutoff) - smallCutoff/2
		if rng.Intn(3) == 0 {
			s.Remove(v)
			delete(ref, v)
		} else {
			s.Add(v)
			ref[v] = struct{}{}
		}
	}

	expected := make([]int, 0, len(ref))
	for v := range ref {
		expected = append(expected, v)
	}
	sort.Ints(expected)
	require.Equal(t, expected, s.Ordered())
	require.Equal(t, len(expected), s.Len())

	var walked []int
	for v, ok := s.Next(expected[0]); ok; v, ok = s.Next(v + 1) {
		walked = append(walked, v)
	}
	require.Equal(t, expected, walked)
	require.True(t, s.Equals(s.Copy()))
}

func TestFastIntSetOps(t *testing.T) {
	a := MakeFastIntSet(0, 1, 2, 5, 100)
	b := MakeFastIntSet(2, 3, 100, 200)

	require.Equal(t, "(0-3,5,100,200)", a.Union(b).String())
	require.Equal(t, "(2,100)", a.Intersection(b).String())
	require.Equal(t, "(0,1,5)", a.Difference(b).String())
	require.True(t, a.Intersects(b))
	require.False(t, a.Difference(b).Intersects(b))
	require.True(t, a.Intersection(b).SubsetOf(a))
	require.False(t, a.SubsetOf(b))
	require.Equal(t, "(-2,-1,0,3,98)", a.Shift(-2).String())

	var c FastIntSet
	c.CopyFrom(a)
	c.AddRange(60, 70)
	require.Equal(t, "(0-2,5,60-70,100)", c.String())
	require.Equal(t, "(0-2,5,100)", a.String())

	require.True(t, FastIntSet{}.Empty())
	_, ok := FastIntSet{}.Next(0)
	require.False(t, ok)
	require.Equal(t, "()", FastIntSet{}.String())
}
