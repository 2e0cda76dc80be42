// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var boolTA = RegisterBoolSetting("bool.t", "", true)
var boolFA = RegisterBoolSetting("bool.f", "", false)
var strFooA = RegisterStringSetting("str.foo", "", "")
var strBarA = RegisterStringSetting("str.bar", "", "bar")
var i1A = RegisterIntSetting("i.1", "", 0)
var i2A = RegisterValidatedIntSetting("i.2", "", 5, NonNegativeInt)
var fA = RegisterFloatSetting("f", "", 5.4)

func TestCache(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		sv := MakeTestingValues()
		require.False(t, boolFA.Get(sv))
		require.True(t, boolTA.Get(sv))
		require.Equal(t, "", strFooA.Get(sv))
		require.Equal(t, "bar", strBarA.Get(sv))
		require.Equal(t, int64(0), i1A.Get(sv))
		require.Equal(t, int64(5), i2A.Get(sv))
		require.Equal(t, 5.4, fA.Get(sv))
		// A nil container reads defaults.
		require.Equal(t, int64(5), i2A.Get(nil))
	})

	t.Run("lookup", func(t *testing.T) {
		if actual, _, ok := Lookup("i.1"); !ok || i1A != actual {
			t.Fatalf("expected %v, got %v (exists: %v)", i1A, actual, ok)
		}
		if actual, _, ok := Lookup("f"); !ok || fA != actual {
			t.Fatalf("expected %v, got %v (exists: %v)", fA, actual, ok)
		}
		if actual, _, ok := Lookup("dne"); ok {
			t.Fatalf("expected nothing, got %v", actual)
		}
	})

	t.Run("set", func(t *testing.T) {
		sv := MakeTestingValues()
		require.NoError(t, sv.Set("i.1", "12"))
		require.NoError(t, sv.Set("bool.t", "false"))
		require.NoError(t, sv.Set("str.foo", "baz"))
		require.Equal(t, int64(12), i1A.Get(sv))
		require.False(t, boolTA.Get(sv))
		require.Equal(t, "baz", strFooA.Get(sv))
		require.Equal(t, "12", i1A.Encoded(sv))

		require.Error(t, sv.Set("i.2", "-1"))
		require.Error(t, sv.Set("i.1", "x"))
		require.Error(t, sv.Set("dne", "1"))

		// Values are per container.
		require.Equal(t, int64(0), i1A.Get(MakeTestingValues()))
	})

	t.Run("override", func(t *testing.T) {
		sv := MakeTestingValues()
		fA.Override(sv, 1.5)
		require.Equal(t, 1.5, fA.Get(sv))
		require.Equal(t, "5.4", fA.EncodedDefault())
	})
}

func TestLoadTOML(t *testing.T) {
	sv := MakeTestingValues()
	require.NoError(t, sv.LoadTOML([]byte(`
f = 2.5

[i]
1 = 7

[bool]
f = true
`)))
	require.Equal(t, 2.5, fA.Get(sv))
	require.Equal(t, int64(7), i1A.Get(sv))
	require.True(t, boolFA.Get(sv))

	require.Error(t, sv.LoadTOML([]byte(`i = { 2 = -3 }`)))
	require.Error(t, sv.LoadTOML([]byte(`not toml`)))
}

func TestKeys(t *testing.T) {
	keys := Keys()
	require.Contains(t, keys, "bool.t")
	require.Contains(t, keys, "str.bar")
	require.IsIncreasing(t, keys)
}
