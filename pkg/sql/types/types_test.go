// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package types

import (
	"testing"

	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		expected *T
	}{
		{"INT", Int},
		{"integer", Int},
		{" text ", String},
		{"Double", Float},
		{"numeric", Decimal},
		{"date", Date},
	}
	for _, tc := range testCases {
		typ, err := Parse(tc.name)
		require.NoError(t, err)
		require.Same(t, tc.expected, typ)
	}
	_, err := Parse("blob")
	require.Error(t, err)
	require.Equal(t, pgcode.UndefinedObject, pgerror.GetPGCode(err))
}

func TestEquivalent(t *testing.T) {
	require.True(t, Int.Equivalent(Int))
	require.False(t, Int.Equivalent(String))
	require.True(t, Any.Equivalent(String))
	require.True(t, Float.Equivalent(Unknown))
	require.True(t, Int.Numeric())
	require.False(t, Bool.Numeric())
	require.False(t, Int.Identical(Float))
}
