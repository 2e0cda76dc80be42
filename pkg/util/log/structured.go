// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// entry is a single formatted log line.
type entry struct {
	sev     Severity
	time    time.Time
	file    string
	line    int
	counter uint64
	tags    string
	msg     redact.RedactableString
	// redactable is true if the redaction markers are to be preserved.
	redactable bool
}

func makeEntry(
	ctx context.Context, sev Severity, depth int, redactable bool, format string, args []interface{},
) entry {
	e := entry{
		sev:        sev,
		time:       time.Now(),
		counter:    logging.logCounter.Add(1),
		redactable: redactable,
		msg:        redact.Sprintf(format, args...),
	}
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		e.file = filepath.Base(file)
		e.line = line
	}
	var buf strings.Builder
	formatTags(ctx, false /* brackets */, &buf)
	e.tags = buf.String()
	return e
}

// String renders the entry in the crdb-v1 style:
//
//	I241016 12:00:00.000000 file.go:12 [tags] 7 message
func (e entry) String() string {
	var buf strings.Builder
	buf.WriteByte(severityChar[e.sev])
	buf.WriteString(e.time.Format("060102 15:04:05.000000"))
	fmt.Fprintf(&buf, " %s:%d ", e.file, e.line)
	if e.tags != "" {
		buf.WriteByte('[')
		buf.WriteString(e.tags)
		buf.WriteString("] ")
	}
	fmt.Fprintf(&buf, "%d ", e.counter)
	if e.redactable {
		buf.WriteString(string(e.msg))
	} else {
		buf.WriteString(e.msg.StripMarkers())
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		buf.WriteByte('\n')
	}
	return buf.String()
}

// FormatWithContextTags formats the string and prepends the context
// tags.
//
// Redaction markers are *not* inserted. The resulting
// string is generally unsafe for reporting.
func FormatWithContextTags(ctx context.Context, format string, args ...interface{}) string {
	var buf strings.Builder
	formatTags(ctx, true /* brackets */, &buf)
	fmt.Fprintf(&buf, format, args...)
	return buf.String()
}

func formatTags(ctx context.Context, brackets bool, buf *strings.Builder) {
	tags := logtags.FromContext(ctx)
	if tags == nil {
		return
	}
	if brackets {
		buf.WriteByte('[')
	}
	for i, t := range tags.Get() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(t.Key())
		if v := t.Value(); v != nil {
			if len(t.Key()) > 1 {
				buf.WriteByte('=')
			}
			fmt.Fprint(buf, v)
		}
	}
	if brackets {
		buf.WriteString("] ")
	}
}
