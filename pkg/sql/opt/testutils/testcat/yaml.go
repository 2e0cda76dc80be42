// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package testcat

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/types"
	"gopkg.in/yaml.v3"
)

// SchemaDoc is the YAML form of a catalog:
//
//	tables:
//	  - name: a
//	    rows: 100
//	    columns:
//	      - {name: a1, type: int, nullable: false}
//	stars:
//	  - name: s
//	    tables: [a, b]
type SchemaDoc struct {
	Tables []TableDoc `yaml:"tables"`
	Stars  []StarDoc  `yaml:"stars"`
}

// TableDoc describes a base table.
type TableDoc struct {
	Name    string      `yaml:"name"`
	Rows    *float64    `yaml:"rows"`
	Columns []ColumnDoc `yaml:"columns"`
}

// ColumnDoc describes a column. Columns are nullable unless stated
// otherwise.
type ColumnDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable *bool  `yaml:"nullable"`
}

// StarDoc describes a star table.
type StarDoc struct {
	Name   string   `yaml:"name"`
	Tables []string `yaml:"tables"`
}

// LoadYAML adds the tables and star tables of a YAML schema document to the
// catalog.
func (tc *Catalog) LoadYAML(data []byte) error {
	var doc SchemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "parsing schema")
	}
	for _, td := range doc.Tables {
		tab := &Table{TabName: strings.ToLower(td.Name), Rows: defaultRowCount}
		if td.Rows != nil {
			tab.Rows = *td.Rows
		}
		for _, cd := range td.Columns {
			typ, err := types.Parse(cd.Type)
			if err != nil {
				return errors.Wrapf(err, "column %s.%s", td.Name, cd.Name)
			}
			nullable := cd.Nullable == nil || *cd.Nullable
			tab.Columns = append(tab.Columns, &cat.Column{
				Name: strings.ToLower(cd.Name), Type: typ, Nullable: nullable,
			})
		}
		if err := tc.AddTable(tab); err != nil {
			return err
		}
	}
	for _, sd := range doc.Stars {
		if err := tc.CreateStar(strings.ToLower(sd.Name), sd.Tables...); err != nil {
			return err
		}
	}
	return nil
}
