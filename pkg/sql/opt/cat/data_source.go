// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cat contains interfaces that are used by the query optimizer to
// avoid including specifics of table storage. Catalog implementations live
// outside the optimizer.
package cat

import (
	"strings"

	"github.com/cockroachdb/polyopt/pkg/sql/types"
)

// DataSource is an interface to a database object that provides rows, like a
// base table or a star table.
type DataSource interface {
	// Name returns the unqualified name of the object.
	Name() string

	// QualifiedName returns the name of the object including its schema
	// path, for example ["public", "orders"].
	QualifiedName() []string
}

// Table is a data source with a fixed list of columns.
type Table interface {
	DataSource

	// ColumnCount returns the number of columns in the table.
	ColumnCount() int

	// Column returns the i-th column of the table.
	Column(i int) *Column

	// RowCount returns the estimated number of rows in the table.
	RowCount() float64
}

// Column describes a single column of a table.
type Column struct {
	Name     string
	Type     *types.T
	Nullable bool
}

// FormatQualifiedName renders a qualified name as a dotted path.
func FormatQualifiedName(ds DataSource) string {
	return strings.Join(ds.QualifiedName(), ".")
}
