// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package settings

import (
	"fmt"
	"sort"
)

// registry contains all defined settings, their types and default values.
//
// Registry should never be mutated after init (except in tests), as it is read
// concurrently by different callers.
var registry = map[string]Setting{}

// slotTable maps slot indexes back to their settings.
var slotTable []Setting

// register adds a setting to the registry.
func register(s Setting) slotIdx {
	key := s.Key()
	if _, ok := registry[key]; ok {
		panic(fmt.Sprintf("setting already defined: %s", key))
	}
	registry[key] = s
	slotTable = append(slotTable, s)
	return slotIdx(len(slotTable) - 1)
}

// Keys returns a sorted string array with all the known keys.
func Keys() (res []string) {
	res = make([]string, 0, len(registry))
	for k := range registry {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Lookup returns a Setting by name along with its description.
func Lookup(name string) (Setting, string, bool) {
	s, ok := registry[name]
	if !ok {
		return nil, "", false
	}
	return s, s.Description(), true
}
