// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package types defines the column types seen by the optimizer.
package types

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
)

// Family groups types with the same value representation.
type Family int

const (
	// UnknownFamily is the type of NULL literals.
	UnknownFamily Family = iota
	// BoolFamily is the family of boolean true/false values.
	BoolFamily
	// IntFamily is the family of signed 64-bit integers.
	IntFamily
	// FloatFamily is the family of 64-bit floating point numbers.
	FloatFamily
	// DecimalFamily is the family of arbitrary precision decimals.
	DecimalFamily
	// StringFamily is the family of UTF-8 strings.
	StringFamily
	// DateFamily is the family of calendar dates.
	DateFamily
	// AnyFamily is a wildcard that matches every family.
	AnyFamily
)

// T is a column type. Types are compared by pointer for the predefined
// instances and by family otherwise.
type T struct {
	family Family
	name   string
}

var (
	// Unknown is the type of an expression that evaluates to NULL.
	Unknown = &T{family: UnknownFamily, name: "unknown"}
	// Bool is the type of a boolean value.
	Bool = &T{family: BoolFamily, name: "bool"}
	// Int is the type of a 64-bit integer.
	Int = &T{family: IntFamily, name: "int"}
	// Float is the type of a 64-bit float.
	Float = &T{family: FloatFamily, name: "float"}
	// Decimal is the type of a decimal.
	Decimal = &T{family: DecimalFamily, name: "decimal"}
	// String is the type of a string.
	String = &T{family: StringFamily, name: "string"}
	// Date is the type of a date.
	Date = &T{family: DateFamily, name: "date"}
	// Any matches every type.
	Any = &T{family: AnyFamily, name: "any"}
)

var byName = map[string]*T{
	"unknown": Unknown,
	"bool":    Bool,
	"boolean": Bool,
	"int":     Int,
	"int8":    Int,
	"integer": Int,
	"bigint":  Int,
	"float":   Float,
	"float8":  Float,
	"double":  Float,
	"decimal": Decimal,
	"numeric": Decimal,
	"string":  String,
	"text":    String,
	"varchar": String,
	"date":    Date,
	"any":     Any,
}

// Family returns the type's family.
func (t *T) Family() Family { return t.family }

// String returns the SQL name of the type.
func (t *T) String() string { return t.name }

// Numeric returns whether values of the type support arithmetic.
func (t *T) Numeric() bool {
	switch t.family {
	case IntFamily, FloatFamily, DecimalFamily:
		return true
	}
	return false
}

// Equivalent returns whether a value of type other can be used where a value
// of type t is expected without a cast. Any and Unknown are equivalent to
// every type.
func (t *T) Equivalent(other *T) bool {
	if t.family == AnyFamily || other.family == AnyFamily {
		return true
	}
	if t.family == UnknownFamily || other.family == UnknownFamily {
		return true
	}
	return t.family == other.family
}

// Identical returns whether the two types have the same family.
func (t *T) Identical(other *T) bool {
	return t.family == other.family
}

// Parse resolves a SQL type name.
func Parse(name string) (*T, error) {
	if t, ok := byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t, nil
	}
	return nil, errors.WithHint(
		pgerror.Newf(pgcode.UndefinedObject, "type %q does not exist", name),
		"supported types are int, float, decimal, string, bool and date",
	)
}
