// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package exit defines the process exit codes of the polyopt command.
package exit

import "os"

// Code represents an exit code.
type Code struct {
	code int
}

// String returns a description of the code.
func (c Code) String() string {
	switch c.code {
	case 0:
		return "success"
	case 1:
		return "unspecified error"
	case 2:
		return "go panic"
	case 3:
		return "interrupted"
	case 4:
		return "command line flag error"
	case 10:
		return "planning failure"
	}
	return "unknown"
}

// Int returns the integer value of the code.
func (c Code) Int() int { return c.code }

// WithCode terminates the process with the given exit code.
func WithCode(code Code) {
	os.Exit(code.code)
}

// Success (0) represents a normal process termination.
func Success() Code { return Code{0} }

// UnspecifiedError (1) indicates the process has terminated with an
// error condition. The specific cause of the error can be found in
// the output of the command.
func UnspecifiedError() Code { return Code{1} }

// UnspecifiedGoPanic (2) indicates the process has terminated due to
// an uncaught Go panic or some other error in the Go runtime.
//
// The reporting of this exit code likely indicates a programming
// error inside polyopt.
func UnspecifiedGoPanic() Code { return Code{2} }

// Interrupted (3) indicates the process was interrupted with
// Ctrl+C / SIGINT.
func Interrupted() Code { return Code{3} }

// CommandLineFlagError (4) indicates there was an error in the
// command-line parameters.
func CommandLineFlagError() Code { return Code{4} }

// PlanningFailure (10) indicates that at least one query could not be
// planned in the requested convention.
func PlanningFailure() Code { return Code{10} }
