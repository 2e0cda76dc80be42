// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package testcat

import (
	"context"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/polyopt/pkg/sql/types"
	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func TestExecuteDDL(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	tc := New()
	require.NoError(t, tc.ExecuteMultipleDDL(`
CREATE TABLE a (a1 INT NOT NULL, a2 float, a3 text);
CREATE TABLE B (b1 INT) ROWS 25;
CREATE STAR s ON a, b;
`))

	a := tc.Table("a")
	require.Equal(t, []string{"t", "a"}, a.QualifiedName())
	require.Equal(t, 3, a.ColumnCount())
	require.Equal(t, float64(defaultRowCount), a.RowCount())
	require.False(t, a.Column(0).Nullable)
	require.True(t, a.Column(1).Type.Identical(types.Float))
	require.True(t, a.Column(2).Nullable)

	out, err := tc.ExecuteDDL("SHOW CREATE a")
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE a (a1 INT NOT NULL, a2 FLOAT, a3 STRING) ROWS 1000", out)
	out, err = tc.ExecuteDDL("SHOW CREATE t.b")
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE b (b1 INT) ROWS 25", out)
	out, err = tc.ExecuteDDL("SHOW CREATE s")
	require.NoError(t, err)
	require.Equal(t, "CREATE STAR s ON a, b", out)

	s := tc.Star("s")
	require.Equal(t, 4, s.ColumnCount())
	require.Equal(t, float64(defaultRowCount), s.RowCount())
	offset, ok := s.ColumnOffset(tc.Table("b"))
	require.True(t, ok)
	require.Equal(t, 3, offset)
	require.Len(t, tc.Tables(), 3)

	for _, tc2 := range []struct {
		sql  string
		code pgcode.Code
		msg  string
	}{
		{"CREATE TABLE a (x INT)", pgcode.DuplicateObject, `relation "a" already exists`},
		{"CREATE TABLE c (x INT, X INT)", pgcode.DuplicateObject, `column "x" specified more than once`},
		{"CREATE TABLE c (x BLOB)", pgcode.UndefinedObject, `type "BLOB" does not exist`},
		{"CREATE TABLE c x INT", pgcode.Syntax, "syntax error"},
		{"CREATE STAR s2 ON a, a", pgcode.DuplicateObject, "table a appears twice in star s2"},
		{"CREATE STAR s3 ON a, nope", pgcode.UndefinedTable, "no data source matches prefix: nope"},
		{"DROP TABLE a", pgcode.FeatureNotSupported, "unsupported statement: DROP TABLE a"},
	} {
		_, err := tc.ExecuteDDL(tc2.sql)
		require.Error(t, err, tc2.sql)
		require.Equal(t, tc2.code, pgerror.GetPGCode(err), tc2.sql)
		require.Contains(t, err.Error(), tc2.msg)
	}

	_, err = tc.ResolveTable(context.Background(), "c")
	require.Equal(t, pgcode.UndefinedTable, pgerror.GetPGCode(err))
	require.Panics(t, func() { tc.Star("a") })
	require.Panics(t, func() { tc.Table("s") })
}

func TestLoadYAML(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	tc := New()
	require.NoError(t, tc.LoadYAML([]byte(`
tables:
  - name: sales
    rows: 5000
    columns:
      - {name: product_id, type: int, nullable: false}
      - {name: amount, type: decimal}
  - name: Products
    columns:
      - {name: id, type: int, nullable: false}
      - {name: name, type: string}
stars:
  - name: sales_star
    tables: [sales, products]
`)))

	sales := tc.Table("sales")
	require.Equal(t, 5000.0, sales.RowCount())
	require.False(t, sales.Column(0).Nullable)
	require.True(t, sales.Column(1).Nullable)
	require.True(t, sales.Column(1).Type.Identical(types.Decimal))
	require.Equal(t, float64(defaultRowCount), tc.Table("products").RowCount())

	star := tc.Star("sales_star")
	require.Equal(t, "t.sales_star", cat.FormatQualifiedName(star))
	require.Equal(t, 4, star.ColumnCount())
	require.True(t, star.FirstTable() == cat.Table(sales))

	require.Error(t, tc.LoadYAML([]byte("tables: [")))
	err := tc.LoadYAML([]byte(`
tables:
  - name: bad
    columns:
      - {name: x, type: blob}
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "column bad.x")
}
