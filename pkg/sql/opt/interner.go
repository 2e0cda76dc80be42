// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"reflect"

	"github.com/cockroachdb/polyopt/pkg/util"
	"github.com/cockroachdb/polyopt/pkg/util/syncutil"
)

// Interner maps traits to their canonical instance. Traits are hashed by
// digest with FNV-64; values whose hashes collide are kept in a short chain
// and told apart by dynamic type and digest.
//
// Interners are safe for concurrent use, so a family with a fixed set of
// values can be shared across planners. Families whose values are created
// by a planning session are instantiated per planner, which lets the whole
// arena be reclaimed with the planner.
type Interner struct {
	mu      syncutil.RWMutex
	buckets map[uint64][]Trait
	count   int
}

// Intern returns the canonical trait that is structurally equal to t, adding
// t as the canonical instance if there is none yet.
func (in *Interner) Intern(t Trait) Trait {
	digest := t.String()
	hash := util.FNV64String(util.FNV64Init(), digest)

	in.mu.RLock()
	existing, ok := in.lookupLocked(t, hash, digest)
	in.mu.RUnlock()
	if ok {
		return existing
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if existing, ok := in.lookupLocked(t, hash, digest); ok {
		return existing
	}
	if in.buckets == nil {
		in.buckets = make(map[uint64][]Trait)
	}
	in.buckets[hash] = append(in.buckets[hash], t)
	in.count++
	return t
}

func (in *Interner) lookupLocked(t Trait, hash uint64, digest string) (Trait, bool) {
	typ := reflect.TypeOf(t)
	for _, c := range in.buckets[hash] {
		if reflect.TypeOf(c) == typ && c.String() == digest {
			return c, true
		}
	}
	return nil, false
}

// Len returns the number of canonical instances.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.count
}

// Reset forgets every canonical instance.
func (in *Interner) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.buckets = nil
	in.count = 0
}
