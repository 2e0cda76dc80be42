// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package materialize_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/materialize"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optgen/exprgen"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/polyopt/pkg/sql/types"
	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	ctx     context.Context
	cluster *opt.Cluster
	catalog *testcat.Catalog
}

func newTestEnv(t *testing.T) *testEnv {
	catalog := testcat.New()
	require.NoError(t, catalog.ExecuteMultipleDDL(`
CREATE TABLE a (a1 INT NOT NULL, a2 INT, a3 STRING) ROWS 100;
CREATE TABLE b (b1 INT NOT NULL, b2 INT, b3 STRING) ROWS 10;
CREATE TABLE c (c1 INT NOT NULL) ROWS 10;
CREATE TABLE mv (m1 INT NOT NULL, m2 INT, m3 STRING) ROWS 5;
CREATE TABLE mvf (f1 INT NOT NULL, f2 FLOAT) ROWS 5;
CREATE STAR s ON a, b;
`))
	return &testEnv{
		ctx:     context.Background(),
		cluster: norm.New(nil, optctx.Empty()).Cluster(),
		catalog: catalog,
	}
}

func (e *testEnv) build(t *testing.T, input string) opt.RelNode {
	n, err := exprgen.Build(e.ctx, e.cluster, e.catalog, input)
	require.NoError(t, err)
	return n
}

func TestProjectFilterTableOf(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	env := newTestEnv(t)

	pft, ok := materialize.ProjectFilterTableOf(env.build(t, "(Scan a)"))
	require.True(t, ok)
	require.Nil(t, pft.Condition)
	require.True(t, pft.Mapping.IsIdentity())
	require.Equal(t, "a", pft.Table().Name())

	pft, ok = materialize.ProjectFilterTableOf(
		env.build(t, "(Filter (Project (Scan a) [$2 $0]) (= $1 10))"))
	require.True(t, ok)
	require.Equal(t, "(= $1 10)", pft.Condition.String())
	require.Equal(t, 3, pft.Mapping.SourceCount())
	require.Equal(t, 2, pft.Mapping.TargetCount())
	target, ok := pft.Mapping.Target(2)
	require.True(t, ok)
	require.Equal(t, 0, target)
	target, ok = pft.Mapping.Target(0)
	require.True(t, ok)
	require.Equal(t, 1, target)
	_, ok = pft.Mapping.Target(1)
	require.False(t, ok)

	for _, input := range []string{
		// Repeated columns.
		"(Project (Scan a) [$0 $0])",
		// Computed columns.
		"(Project (Scan a) [(+ $0 1)])",
		// A filter below the projection.
		"(Project (Filter (Scan a) (= $0 1)) [$0])",
		"(Join inner (Scan a) (Scan b))",
		"(Values [int] [[1]])",
	} {
		t.Run(input, func(t *testing.T) {
			_, ok := materialize.ProjectFilterTableOf(env.build(t, input))
			require.False(t, ok)
		})
	}
}

func TestToLeafJoinFormIdempotent(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	env := newTestEnv(t)
	for _, input := range []string{
		"(Filter (Join inner (Scan a) (Scan b) (= $0 $3)) (= $1 10))",
		"(Join inner (Project (Scan a) [$1 $0]) (Scan b) (= $0 $2))",
		"(Join inner (Scan b) (Project (Scan a) [$2 $0]) (= $0 $4))",
		"(Project (Project (Scan a) [$0 $1 $2]) [$0 $1 $2])",
		"(Join left (Scan a) (Scan b) (= $0 $3))",
	} {
		t.Run(input, func(t *testing.T) {
			once, err := materialize.ToLeafJoinForm(env.ctx, env.build(t, input))
			require.NoError(t, err)
			twice, err := materialize.ToLeafJoinForm(env.ctx, once)
			require.NoError(t, err)
			require.Equal(t, once.Digest(), twice.Digest())
		})
	}
}

func TestNewMaterialization(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	env := newTestEnv(t)

	t.Run("same types", func(t *testing.T) {
		table := env.build(t, "(Scan mv)")
		m, err := materialize.NewMaterialization(
			table, env.build(t, "(Filter (Scan a) (= $0 10))"), nil, []string{"t", "mv"})
		require.NoError(t, err)
		require.True(t, m.TableRel == table)
		require.Nil(t, m.StarTable)
	})

	t.Run("cast", func(t *testing.T) {
		query := env.build(t, "(Project (Scan a) [$0 $1])")
		m, err := materialize.NewMaterialization(
			env.build(t, "(Scan mvf)"), query, nil, []string{"t", "mvf"})
		require.NoError(t, err)
		require.Equal(t, rel.ProjectOp, m.TableRel.Op())
		require.Equal(t, "exprs=[$0, (cast $1 int)]", m.TableRel.Attrs())
		require.Equal(t, []string{"a1", "a2"}, m.TableRel.RowType().Names())
		require.True(t, m.TableRel.RowType().Fields[1].Type.Identical(types.Int))
	})

	t.Run("column count", func(t *testing.T) {
		_, err := materialize.NewMaterialization(
			env.build(t, "(Scan mvf)"), env.build(t, "(Scan a)"), nil, []string{"t", "mvf"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "has 2 columns but its query has 3")
	})
}

func TestNewLattice(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	env := newTestEnv(t)
	star := env.catalog.Star("s")
	query := env.build(t, "(Join inner (Scan a) (Scan b) (= $1 $3))")

	m, err := materialize.NewMaterialization(env.build(t, "(Scan s)"), query, nil, []string{"t", "s"})
	require.NoError(t, err)
	l := materialize.NewLattice("l", star, query, m)
	require.Equal(t, "l", l.Name)
	require.True(t, l.StarTable == star)
	require.True(t, l.Materialization == m)
	require.True(t, m.StarTable == star)

	l = materialize.NewLattice("bare", star, query, nil)
	require.Nil(t, l.Materialization)
}

func TestSubstitute(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	env := newTestEnv(t)
	m, err := materialize.NewMaterialization(
		env.build(t, "(Scan mv)"), env.build(t, "(Filter (Scan a) (= $0 10))"), nil, []string{"t", "mv"})
	require.NoError(t, err)

	query, err := materialize.ToLeafJoinForm(env.ctx,
		env.build(t, "(Filter (Join inner (Scan a) (Scan b) (= $1 $3)) (= $0 10))"))
	require.NoError(t, err)
	res, ok, err := materialize.Substitute(env.ctx, query, m)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `Join(type=inner, condition=(= $1 $3))
 ├── Scan(table=t.mv)
 └── Scan(table=t.b)
`, rel.Format(res, 0))

	// Another filter on the same table does not match.
	_, ok, err = materialize.Substitute(env.ctx, env.build(t, "(Filter (Scan a) (= $0 11))"), m)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTryUseStar(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	env := newTestEnv(t)
	star := env.catalog.Star("s")

	query := env.build(t, "(Join inner (Scan a) (Scan b) (= $1 $3))")
	res, ok := materialize.TryUseStar(env.ctx, query, star)
	require.True(t, ok)
	require.True(t, res.RowType().Equivalent(query.RowType()))
	require.Equal(t, `Filter(condition=(= $1 $3))
 └── Project(exprs=[$0, $1, $2, $3, $4, $5])
      └── Scan(table=t.s)
`, rel.Format(res, 0))

	// Left joins are not folded, but the fact table is still read from the
	// star table.
	res, ok = materialize.TryUseStar(env.ctx, env.build(t, "(Join left (Scan a) (Scan b) (= $1 $3))"), star)
	require.True(t, ok)
	require.Equal(t, rel.JoinOp, res.Op())

	// A constituent the star side already covers is not folded again.
	res, ok = materialize.TryUseStar(env.ctx,
		env.build(t, "(Join inner (Join inner (Scan a) (Scan b) (= $1 $3)) (Scan b) (= $0 $6))"), star)
	require.True(t, ok)
	require.Equal(t, rel.JoinOp, res.Op())
	require.Equal(t, rel.FilterOp, res.Inputs()[0].Op())
	require.Equal(t, rel.ScanOp, res.Inputs()[1].Op())
	require.Equal(t, 9, res.RowType().Len())

	for _, input := range []string{
		"(Scan b)",
		"(Join inner (Scan b) (Scan c) (= $0 $3))",
	} {
		_, ok := materialize.TryUseStar(env.ctx, env.build(t, input), star)
		require.False(t, ok, input)
	}
}
