// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"time"

	"github.com/cockroachdb/polyopt/pkg/util/syncutil"
)

// EveryN rate limits a log message that would otherwise repeat on every
// planning session. The zero value logs every time.
type EveryN struct {
	// N is the minimum time between two messages.
	N time.Duration

	mu   syncutil.Mutex
	last time.Time
	seen bool
}

// Every returns an EveryN allowing one message per n.
func Every(n time.Duration) *EveryN {
	return &EveryN{N: n}
}

// ShouldLog returns whether at least N has passed since the last message.
// It always returns true at verbosity 2 and above.
func (e *EveryN) ShouldLog() bool {
	if VDepth(2 /* level */, 2 /* depth */) {
		return true
	}
	return e.shouldLogAt(time.Now())
}

func (e *EveryN) shouldLogAt(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seen && now.Sub(e.last) < e.N {
		return false
	}
	e.seen, e.last = true, now
	return true
}
