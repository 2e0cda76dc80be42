// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"bytes"
	"io"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/util/syncutil"
)

// TestLogScope represents the lifetime of a logging output redirection for
// a test. Log messages produced while the scope is active are captured in
// memory and printed through the test only if the test fails.
type TestLogScope struct {
	prevOut       io.Writer
	prevVerbosity int32
	buf           *lockedBuffer
}

type lockedBuffer struct {
	mu  syncutil.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Scope creates a TestLogScope which captures the log output for the
// remainder of the test. Use with:
//
//	defer log.Scope(t).Close(t)
func Scope(t testing.TB) *TestLogScope {
	t.Helper()
	sc := &TestLogScope{buf: &lockedBuffer{}}
	sc.prevOut = SetOutput(sc.buf)
	sc.prevVerbosity = logging.verbosity.Load()
	return sc
}

// Contents returns everything logged since the scope was created.
func (sc *TestLogScope) Contents() string {
	return sc.buf.String()
}

// Close restores the previous log output. If the test failed, the captured
// log output is reported through t.
func (sc *TestLogScope) Close(t testing.TB) {
	t.Helper()
	SetOutput(sc.prevOut)
	SetVerbosity(sc.prevVerbosity)
	if t.Failed() {
		if s := sc.Contents(); s != "" {
			t.Logf("captured logs:\n%s", s)
		}
	}
}
