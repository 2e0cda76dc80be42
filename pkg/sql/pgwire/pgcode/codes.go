// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package pgcode

// Code is a wrapper around a string to ensure that pg error codes are passed
// around with a distinct type from ordinary strings.
type Code struct {
	code string
}

// MakeCode converts a string into a Code.
func MakeCode(s string) Code {
	return Code{code: s}
}

// String returns the underlying pg code string.
func (c Code) String() string {
	return c.code
}

// PG error codes from:
// http://www.postgresql.org/docs/9.5/static/errcodes-appendix.html.
// Codes in the XXP class are specific to the optimizer and are not
// defined by Postgres.
var (
	// Section: Class 00 - Successful Completion
	SuccessfulCompletion = MakeCode("00000")
	// Section: Class 0A - Feature Not Supported
	FeatureNotSupported = MakeCode("0A000")
	// Section: Class 22 - Data Exception
	InvalidParameterValue = MakeCode("22023")
	// Section: Class 42 - Syntax Error or Access Rule Violation
	Syntax          = MakeCode("42601")
	UndefinedTable  = MakeCode("42P01")
	UndefinedColumn = MakeCode("42703")
	UndefinedObject = MakeCode("42704")
	DuplicateObject = MakeCode("42710")
	// Section: Class 57 - Operator Intervention
	QueryCanceled = MakeCode("57014")
	// Section: Class XX - Internal Error
	Internal = MakeCode("XX000")
	// Uncategorized is used for errors that flow out to a client
	// when there's no code known yet.
	Uncategorized = MakeCode("XXUUU")
	// PlanningFailure is reported when the optimizer cannot find any
	// executable realization of a query under the registered rules and
	// conventions. It is distinct from execution failures.
	PlanningFailure = MakeCode("XXP01")
)
