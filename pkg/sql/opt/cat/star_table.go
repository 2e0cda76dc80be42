// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cat

import "github.com/cockroachdb/errors"

// StarTable is a virtual table that is the denormalized join of several base
// tables. Its columns are the columns of its constituent tables, in order;
// the first constituent is the fact table and determines the row count.
type StarTable struct {
	name    []string
	tables  []Table
	offsets []int
	columns []*Column
}

var _ Table = (*StarTable)(nil)

// NewStarTable creates a star table over the given constituents. The same
// table may not appear twice.
func NewStarTable(qualifiedName []string, tables ...Table) *StarTable {
	if len(tables) == 0 {
		panic(errors.AssertionFailedf("star table %v has no constituents", qualifiedName))
	}
	s := &StarTable{name: qualifiedName, tables: tables}
	offset := 0
	for i, t := range tables {
		for j := 0; j < i; j++ {
			if tables[j] == t {
				panic(errors.AssertionFailedf("table %s appears twice in star table", t.Name()))
			}
		}
		s.offsets = append(s.offsets, offset)
		for c := 0; c < t.ColumnCount(); c++ {
			s.columns = append(s.columns, t.Column(c))
		}
		offset += t.ColumnCount()
	}
	return s
}

// Name is part of the DataSource interface.
func (s *StarTable) Name() string { return s.name[len(s.name)-1] }

// QualifiedName is part of the DataSource interface.
func (s *StarTable) QualifiedName() []string { return s.name }

// ColumnCount is part of the Table interface.
func (s *StarTable) ColumnCount() int { return len(s.columns) }

// Column is part of the Table interface.
func (s *StarTable) Column(i int) *Column { return s.columns[i] }

// RowCount is part of the Table interface.
func (s *StarTable) RowCount() float64 { return s.tables[0].RowCount() }

// Tables returns the constituent tables.
func (s *StarTable) Tables() []Table { return s.tables }

// FirstTable returns the fact table.
func (s *StarTable) FirstTable() Table { return s.tables[0] }

// Contains returns whether t is one of the constituents.
func (s *StarTable) Contains(t Table) bool {
	_, ok := s.ColumnOffset(t)
	return ok
}

// ColumnOffset returns the ordinal within the star row of the first column of
// constituent t.
func (s *StarTable) ColumnOffset(t Table) (int, bool) {
	for i, c := range s.tables {
		if c == t {
			return s.offsets[i], true
		}
	}
	return 0, false
}
