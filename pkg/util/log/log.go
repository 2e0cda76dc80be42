// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package log implements leveled, context-tagged logging for the optimizer
// and its tools. Messages are formatted with redaction markers around unsafe
// arguments; whether the markers survive in the output is controlled by
// SetRedactable.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/polyopt/pkg/util/syncutil"
	"go.opentelemetry.io/otel/trace"
)

// Severity identifies the sort of log: info, warning etc.
type Severity int32

const (
	// Severity_INFO is used for informational messages.
	Severity_INFO Severity = iota + 1
	// Severity_WARNING is used for situations which may require attention.
	Severity_WARNING
	// Severity_ERROR is used for errors that do not stop the process.
	Severity_ERROR
	// Severity_FATAL is used for errors that stop the process.
	Severity_FATAL
)

var severityChar = [...]byte{'U', 'I', 'W', 'E', 'F'}

func (s Severity) String() string {
	switch s {
	case Severity_INFO:
		return "INFO"
	case Severity_WARNING:
		return "WARNING"
	case Severity_ERROR:
		return "ERROR"
	case Severity_FATAL:
		return "FATAL"
	}
	return "UNKNOWN"
}

type loggerT struct {
	mu struct {
		syncutil.Mutex
		out          io.Writer
		exitOverride struct {
			f         func(int)
			hideStack bool
		}
	}
	verbosity      atomic.Int32
	redactableLogs atomic.Bool
	// minSeverity is the lowest severity written to the output.
	minSeverity atomic.Int32
	logCounter  atomic.Uint64
}

var logging = func() *loggerT {
	l := &loggerT{}
	l.mu.out = os.Stderr
	l.minSeverity.Store(int32(Severity_INFO))
	return l
}()

// SetOutput redirects log output to w and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	prev := logging.mu.out
	logging.mu.out = w
	return prev
}

// SetVerbosity sets the global verbosity level used by V and VEventf, and
// returns the previous level.
func SetVerbosity(level int32) int32 {
	return logging.verbosity.Swap(level)
}

// SetMinSeverity sets the lowest severity that reaches the output.
func SetMinSeverity(s Severity) {
	logging.minSeverity.Store(int32(s))
}

// SetRedactable controls whether redaction markers are kept in the output.
func SetRedactable(b bool) {
	logging.redactableLogs.Store(b)
}

// V returns true if the logging verbosity is set to the specified level or
// higher.
func V(level int32) bool {
	return VDepth(level, 1)
}

// VDepth reports whether verbosity at the call site is at least the requested
// level. The depth argument is kept for call sites that wrap V.
func VDepth(level int32, depth int) bool {
	return logging.verbosity.Load() >= level
}

// Infof logs to the INFO log.
// It extracts log tags from the context and logs them along with the given
// message. Arguments are handled in the manner of fmt.Printf.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, Severity_INFO, format, args)
}

// Warningf logs to the WARNING log.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, Severity_WARNING, format, args)
}

// Errorf logs to the ERROR log.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, Severity_ERROR, format, args)
}

// Fatalf logs to the FATAL log and then exits the process (or calls the
// function installed with SetExitFunc).
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, Severity_FATAL, format, args)
	exit(2)
}

// VEventf either logs a message to the log (if the verbosity is at least the
// given level) or records it as an event on the active trace span, if any.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	vEventf(ctx, 1, level, format, args)
}

// Event records the message on the active trace span, if any.
func Event(ctx context.Context, msg string) {
	if sp := trace.SpanFromContext(ctx); sp.IsRecording() {
		sp.AddEvent(msg)
	}
}

func vEventf(ctx context.Context, depth int, level int32, format string, args []interface{}) {
	if VDepth(level, 1+depth) {
		logDepth(ctx, 1+depth, Severity_INFO, format, args)
		return
	}
	if sp := trace.SpanFromContext(ctx); sp.IsRecording() {
		sp.AddEvent(fmt.Sprintf(format, args...))
	}
}

func logDepth(ctx context.Context, depth int, sev Severity, format string, args []interface{}) {
	if int32(sev) < logging.minSeverity.Load() {
		return
	}
	entry := makeEntry(ctx, sev, depth+1, logging.redactableLogs.Load(), format, args)
	logging.mu.Lock()
	defer logging.mu.Unlock()
	_, _ = io.WriteString(logging.mu.out, entry.String())
}
