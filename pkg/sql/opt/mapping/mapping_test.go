// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package mapping

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShiftMapping(t *testing.T) {
	m := CreateShiftMapping(6, 0, 0, 3)
	require.Equal(t, 6, m.SourceCount())
	require.Equal(t, 3, m.TargetCount())
	require.Equal(t, "[6->3, 0:0, 1:1, 2:2]", m.String())
	require.Equal(t, []int{0, 1, 2}, m.Inverse().SourceList())
	require.Equal(t, []int{0, 1, 2}, m.TargetList())

	m = CreateShiftMapping(6, 0, 3, 2, 2, 0, 1)
	require.Equal(t, "[6->3, 0:2, 3:0, 4:1]", m.String())
	require.Panics(t, func() { CreateShiftMapping(6, 0, 0) })
}

func TestMergeStar(t *testing.T) {
	// A star over two 3-column tables; the left side reads the first table
	// through a projection of all its columns and the right side scans the
	// second table.
	left := CreateShiftMapping(6, 0, 0, 3)
	right := Identity(3)
	const offset = 3

	merged := Merge(left, OffsetTarget(OffsetSource(right, offset), left.TargetCount()))
	require.Equal(t, 6, merged.SourceCount())
	require.Equal(t, 6, merged.TargetCount())
	require.True(t, merged.IsIdentity())
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, merged.Inverse().SourceList())

	// The right side only projects b3, b1.
	proj := New(3, 2)
	proj.Set(2, 0)
	proj.Set(0, 1)
	merged = Merge(left, OffsetTarget(OffsetSource(proj, offset), left.TargetCount()))
	require.Equal(t, []int{0, 1, 2, 5, 3}, merged.TargetList())
	require.True(t, merged.IsSurjective())
}

func TestMappingConflicts(t *testing.T) {
	m := New(3, 3)
	m.Set(0, 1)
	m.Set(0, 1)
	require.Equal(t, 1, m.Size())
	require.Panics(t, func() { m.Set(0, 2) })
	require.Panics(t, func() { m.Set(1, 1) })
	require.Panics(t, func() { m.Set(3, 0) })
	require.Panics(t, func() { Merge(m, CreateShiftMapping(3, 2, 0, 1)) })

	s, ok := m.Source(1)
	require.True(t, ok)
	require.Equal(t, 0, s)
	_, ok = m.Target(2)
	require.False(t, ok)
	require.Equal(t, []int{-1, 0, -1}, m.TargetList())
}

func TestCompose(t *testing.T) {
	a := CreateShiftMapping(3, 1, 0, 2)
	b := New(3, 2)
	b.Set(1, 0)
	c := Compose(a, b)
	require.Equal(t, "[3->2, 0:0]", c.String())
	require.Equal(t, Identity(3).String(), Identity(3).Inverse().String())
}
