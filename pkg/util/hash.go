// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package util

// Magic FNV Base constant as suitable for a FNV-64 hash.
const fnvBase = uint64(14695981039346656037)
const fnvPrime = 1099511628211

// FNV64Init returns the initial state of an FNV-64 hash.
func FNV64Init() uint64 {
	return fnvBase
}

// FNV64AddToHash folds c into the running hash s0.
func FNV64AddToHash(s0 uint64, c int32) uint64 {
	s0 *= fnvPrime
	s0 ^= uint64(c)
	return s0
}

// FNV64String hashes every byte of s onto the running hash s0.
func FNV64String(s0 uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		s0 = FNV64AddToHash(s0, int32(s[i]))
	}
	return s0
}
