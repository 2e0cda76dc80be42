// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package testcat

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
)

// defaultRowCount is the row count of tables created without one.
const defaultRowCount = 1000

// Table implements the cat.Table interface for testing purposes.
type Table struct {
	TabName string
	Columns []*cat.Column
	Rows    float64
}

var _ cat.Table = &Table{}

func (tt *Table) String() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(tt.TabName)
	b.WriteString(" (")
	for i, c := range tt.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteByte(' ')
		b.WriteString(strings.ToUpper(c.Type.String()))
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(") ROWS ")
	b.WriteString(strconv.FormatFloat(tt.Rows, 'g', -1, 64))
	return b.String()
}

// Name is part of the cat.DataSource interface.
func (tt *Table) Name() string { return tt.TabName }

// QualifiedName is part of the cat.DataSource interface.
func (tt *Table) QualifiedName() []string { return []string{testDB, tt.TabName} }

// ColumnCount is part of the cat.Table interface.
func (tt *Table) ColumnCount() int { return len(tt.Columns) }

// Column is part of the cat.Table interface.
func (tt *Table) Column(i int) *cat.Column { return tt.Columns[i] }

// RowCount is part of the cat.Table interface.
func (tt *Table) RowCount() float64 { return tt.Rows }
