// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exprgen

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func TestScanner(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	s := newScanner(`(Values [int, string] [[-1 'a b'] [2.5e3 "x"]]) $12 is-not-null $ @`)
	var toks []string
	for s.next() != eof {
		toks = append(toks, s.tok.String()+":"+s.lit)
	}
	require.Equal(t, []string{
		"(:(", "IDENT:Values", "[:[", "IDENT:int", "IDENT:string", "]:]",
		"[:[", "[:[", "NUMBER:-1", "STRING:a b", "]:]",
		"[:[", "NUMBER:2.5e3", "STRING:x", "]:]", "]:]", "):)",
		"COLREF:$12", "IDENT:is-not-null", "ILLEGAL:$", "ILLEGAL:@",
	}, toks)

	s = newScanner(`'unterminated`)
	require.Equal(t, illegal, s.next())
}

func TestBuild(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	ctx := context.Background()
	catalog := testcat.New()
	require.NoError(t, catalog.ExecuteMultipleDDL(`
CREATE TABLE a (a1 INT NOT NULL, a2 FLOAT, a3 STRING) ROWS 100;
CREATE TABLE b (b1 INT NOT NULL) ROWS 10;
`))
	cluster := norm.New(nil, optctx.Empty()).Cluster()

	n, err := Build(ctx, cluster, catalog, `
(Aggregate
  (Join left (Scan a) (Scan t.b) (= $0 $3))
  [0]
  [(count) (max $1)]
)`)
	require.NoError(t, err)
	require.Equal(t, `Aggregate(group=[0], aggs=[count(), max($1)])
 └── Join(type=left, condition=(= $0 $3))
      ├── Scan(table=t.a)
      └── Scan(table=t.b)
`, rel.Format(n, 0))
	require.Equal(t, []string{"a1", "agg$0", "agg$1"}, n.RowType().Names())

	n, err = Build(ctx, cluster, catalog, `(Values [int bool] [[1 true] [2 null]])`)
	require.NoError(t, err)
	require.Equal(t, "Values(rows=[[1, true], [2, null]])\n", rel.Format(n, 0))
	require.Equal(t, []string{"column1", "column2"}, n.RowType().Names())

	n, err = Build(ctx, cluster, catalog, `(Project (Scan a) [(cast $1 int) (+ $0 1)])`)
	require.NoError(t, err)
	require.Equal(t, "exprs=[(cast $1 int), (+ $0 1)]", n.Attrs())

	for _, tc := range []struct {
		input string
		code  pgcode.Code
		msg   string
	}{
		{"(Scan nope)", pgcode.UndefinedTable, "no data source matches prefix: nope"},
		{"(Scan a) (Scan a)", pgcode.Syntax, `unexpected "(" after expression`},
		{"(Filter (Scan a) (= $3 1))", pgcode.Syntax, "column reference $3 out of range for 3 columns"},
		{"(Filter (Scan a) (like $0 1))", pgcode.Syntax, `unknown operator "like"`},
		{"(Filter (Scan a) (not))", pgcode.Syntax, "operator not needs arguments"},
		{"(Join cross (Scan a) (Scan b))", pgcode.Syntax, `unknown join type "cross"`},
		{"(Aggregate (Scan a) [] [(median $0)])", pgcode.Syntax, `unknown aggregate "median"`},
		{"(Values [int] [[$0]])", pgcode.Syntax, "column reference $0 out of range for 0 columns"},
		{"(Values [int] [[(+ 1 2)]])", pgcode.Syntax, "values rows may only contain literals"},
		{"(Values [blob] [])", pgcode.UndefinedObject, `type "blob" does not exist`},
		{"(Sort (Scan a))", pgcode.Syntax, `unknown operator "Sort"`},
		{"(Scan a", pgcode.Syntax, `expected ), found ""`},
	} {
		t.Run(tc.input, func(t *testing.T) {
			_, err := Build(ctx, cluster, catalog, tc.input)
			require.Error(t, err)
			require.Equal(t, tc.code, pgerror.GetPGCode(err))
			require.True(t, strings.Contains(err.Error(), tc.msg), err.Error())
		})
	}
}
