// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package testcat implements an in-memory catalog for optimizer tests. It
// is populated from a small DDL dialect or from a YAML schema document.
package testcat

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
)

const (
	// testDB is the default current database for testing purposes.
	testDB = "t"
)

// Catalog implements the cat.Catalog interface for testing purposes.
type Catalog struct {
	tables []cat.Table
	byName map[string]cat.Table
}

var _ cat.Catalog = &Catalog{}

// New creates a new empty instance of the test catalog.
func New() *Catalog {
	return &Catalog{byName: make(map[string]cat.Table)}
}

// ResolveTable is part of the cat.Catalog interface. Names may be
// qualified with the test database.
func (tc *Catalog) ResolveTable(_ context.Context, name string) (cat.Table, error) {
	name = strings.TrimPrefix(strings.ToLower(name), testDB+".")
	if tab, ok := tc.byName[name]; ok {
		return tab, nil
	}
	return nil, pgerror.Newf(pgcode.UndefinedTable, "no data source matches prefix: %s", name)
}

// Tables is part of the cat.Catalog interface.
func (tc *Catalog) Tables() []cat.Table {
	return tc.tables
}

// Table returns the base table with the given name, and panics if there is
// none.
func (tc *Catalog) Table(name string) *Table {
	tab, err := tc.ResolveTable(context.Background(), name)
	if err != nil {
		panic(err)
	}
	if t, ok := tab.(*Table); ok {
		return t
	}
	panic(pgerror.Newf(pgcode.UndefinedTable, "%s is not a base table", name))
}

// Star returns the star table with the given name, and panics if there is
// none.
func (tc *Catalog) Star(name string) *cat.StarTable {
	tab, err := tc.ResolveTable(context.Background(), name)
	if err != nil {
		panic(err)
	}
	if s, ok := tab.(*cat.StarTable); ok {
		return s
	}
	panic(pgerror.Newf(pgcode.UndefinedTable, "%s is not a star table", name))
}

// AddTable adds the given table to the catalog.
func (tc *Catalog) AddTable(tab cat.Table) error {
	key := strings.ToLower(tab.Name())
	if _, ok := tc.byName[key]; ok {
		return pgerror.Newf(pgcode.DuplicateObject, "relation %q already exists", tab.Name())
	}
	tc.byName[key] = tab
	tc.tables = append(tc.tables, tab)
	return nil
}

// ExecuteMultipleDDL parses the given semicolon-separated DDL SQL statements
// and applies each of them to the test catalog.
func (tc *Catalog) ExecuteMultipleDDL(sql string) error {
	for _, stmt := range strings.Split(sql, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tc.ExecuteDDL(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteDDL parses the given DDL SQL statement and creates objects in the
// test catalog. This is used to test without spinning up a cluster. The
// supported statements are:
//
//	CREATE TABLE <name> (<col> <type> [NOT NULL], ...) [ROWS <n>]
//	CREATE STAR <name> ON <table>, ...
//	SHOW CREATE <name>
func (tc *Catalog) ExecuteDDL(sql string) (string, error) {
	words := strings.Fields(strings.ToUpper(sql))
	switch {
	case len(words) >= 2 && words[0] == "CREATE" && words[1] == "TABLE":
		tab, err := parseCreateTable(sql)
		if err != nil {
			return "", err
		}
		return "", tc.AddTable(tab)

	case len(words) >= 2 && words[0] == "CREATE" && words[1] == "STAR":
		name, tables, err := parseCreateStar(sql)
		if err != nil {
			return "", err
		}
		return "", tc.CreateStar(name, tables...)

	case len(words) == 3 && words[0] == "SHOW" && words[1] == "CREATE":
		tab, err := tc.ResolveTable(context.Background(), strings.Fields(sql)[2])
		if err != nil {
			return "", err
		}
		if s, ok := tab.(*cat.StarTable); ok {
			return formatStar(s), nil
		}
		return tab.(fmt.Stringer).String(), nil

	default:
		return "", pgerror.Newf(pgcode.FeatureNotSupported, "unsupported statement: %s", sql)
	}
}

// CreateStar adds a star table over the named tables. The first table is
// the fact table.
func (tc *Catalog) CreateStar(name string, tableNames ...string) error {
	if len(tableNames) == 0 {
		return pgerror.Newf(pgcode.Syntax, "star table %s has no tables", name)
	}
	tables := make([]cat.Table, len(tableNames))
	for i, tn := range tableNames {
		tab, err := tc.ResolveTable(context.Background(), tn)
		if err != nil {
			return err
		}
		for _, prev := range tables[:i] {
			if prev == tab {
				return pgerror.Newf(pgcode.DuplicateObject, "table %s appears twice in star %s", tn, name)
			}
		}
		tables[i] = tab
	}
	return tc.AddTable(cat.NewStarTable([]string{testDB, name}, tables...))
}

func formatStar(s *cat.StarTable) string {
	names := make([]string, len(s.Tables()))
	for i, t := range s.Tables() {
		names[i] = t.Name()
	}
	return "CREATE STAR " + s.Name() + " ON " + strings.Join(names, ", ")
}
