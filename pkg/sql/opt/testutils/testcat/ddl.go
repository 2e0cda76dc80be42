// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package testcat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/polyopt/pkg/sql/types"
)

var (
	createTableRE = regexp.MustCompile(
		`(?is)^\s*CREATE\s+TABLE\s+(\w+)\s*\((.*)\)\s*(?:ROWS\s+([0-9.e+]+))?\s*$`)
	createStarRE = regexp.MustCompile(`(?is)^\s*CREATE\s+STAR\s+(\w+)\s+ON\s+(.+?)\s*$`)
	columnDefRE  = regexp.MustCompile(`(?is)^\s*(\w+)\s+(\w+)(\s+NOT\s+NULL)?\s*$`)
)

// parseCreateTable parses a CREATE TABLE statement.
func parseCreateTable(sql string) (*Table, error) {
	m := createTableRE.FindStringSubmatch(sql)
	if m == nil {
		return nil, pgerror.Newf(pgcode.Syntax, "syntax error at or near %q", sql)
	}
	tab := &Table{TabName: strings.ToLower(m[1]), Rows: defaultRowCount}
	if m[3] != "" {
		rows, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, pgerror.Wrapf(err, pgcode.Syntax, "invalid row count %q", m[3])
		}
		tab.Rows = rows
	}
	seen := make(map[string]struct{})
	for _, def := range strings.Split(m[2], ",") {
		cm := columnDefRE.FindStringSubmatch(def)
		if cm == nil {
			return nil, pgerror.Newf(pgcode.Syntax, "invalid column definition %q", strings.TrimSpace(def))
		}
		name := strings.ToLower(cm[1])
		if _, ok := seen[name]; ok {
			return nil, pgerror.Newf(pgcode.DuplicateObject, "column %q specified more than once", name)
		}
		seen[name] = struct{}{}
		typ, err := types.Parse(cm[2])
		if err != nil {
			return nil, err
		}
		tab.Columns = append(tab.Columns, &cat.Column{Name: name, Type: typ, Nullable: cm[3] == ""})
	}
	return tab, nil
}

// parseCreateStar parses a CREATE STAR statement.
func parseCreateStar(sql string) (name string, tables []string, _ error) {
	m := createStarRE.FindStringSubmatch(sql)
	if m == nil {
		return "", nil, pgerror.Newf(pgcode.Syntax, "syntax error at or near %q", sql)
	}
	for _, tn := range strings.Split(m[2], ",") {
		tables = append(tables, strings.ToLower(strings.TrimSpace(tn)))
	}
	return strings.ToLower(m[1]), tables, nil
}
