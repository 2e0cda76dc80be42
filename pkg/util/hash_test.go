// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFNV64String(t *testing.T) {
	h1 := FNV64String(FNV64Init(), "Collation[0 ASC]")
	h2 := FNV64String(FNV64Init(), "Collation[0 ASC]")
	h3 := FNV64String(FNV64Init(), "Collation[0 DESC]")
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
	require.Equal(t, FNV64Init(), FNV64String(FNV64Init(), ""))
}
