// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package syncutil

import (
	"sync"
	"sync/atomic"
)

// A Mutex is a mutual exclusion lock that records whether it is held so
// that callers with locking preconditions can assert them.
type Mutex struct {
	mu   sync.Mutex
	held atomic.Bool
}

// Lock locks m.
func (m *Mutex) Lock() {
	m.mu.Lock()
	m.held.Store(true)
}

// TryLock tries to lock m and reports whether it succeeded.
func (m *Mutex) TryLock() bool {
	if !m.mu.TryLock() {
		return false
	}
	m.held.Store(true)
	return true
}

// Unlock unlocks m.
func (m *Mutex) Unlock() {
	m.held.Store(false)
	m.mu.Unlock()
}

// AssertHeld panics if the mutex is not locked. The lock need not be held by
// the calling goroutine.
func (m *Mutex) AssertHeld() {
	if !m.held.Load() {
		panic("mutex is not write locked")
	}
}

// An RWMutex is a reader/writer mutual exclusion lock.
type RWMutex struct {
	mu      sync.RWMutex
	held    atomic.Bool
	readers atomic.Int32
}

// Lock locks rw for writing.
func (rw *RWMutex) Lock() {
	rw.mu.Lock()
	rw.held.Store(true)
}

// Unlock unlocks rw for writing.
func (rw *RWMutex) Unlock() {
	rw.held.Store(false)
	rw.mu.Unlock()
}

// RLock locks rw for reading.
func (rw *RWMutex) RLock() {
	rw.mu.RLock()
	rw.readers.Add(1)
}

// RUnlock undoes a single RLock call.
func (rw *RWMutex) RUnlock() {
	rw.readers.Add(-1)
	rw.mu.RUnlock()
}

// AssertHeld panics if the mutex is not locked for writing.
func (rw *RWMutex) AssertHeld() {
	if !rw.held.Load() {
		panic("mutex is not write locked")
	}
}

// AssertRHeld panics if the mutex is not locked for reading or writing.
func (rw *RWMutex) AssertRHeld() {
	if !rw.held.Load() && rw.readers.Load() == 0 {
		panic("mutex is not read locked")
	}
}
