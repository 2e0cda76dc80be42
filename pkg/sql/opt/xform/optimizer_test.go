// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/settings"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/exec"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optgen/exprgen"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rules"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/xform"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func testCatalog(t *testing.T) *testcat.Catalog {
	catalog := testcat.New()
	require.NoError(t, catalog.ExecuteMultipleDDL(`
CREATE TABLE a (a1 INT NOT NULL, a2 INT) ROWS 100;
CREATE TABLE b (b1 INT NOT NULL, b2 STRING) ROWS 1000;
`))
	return catalog
}

// plan builds input in a fresh optimizer prepared for engine and returns
// the best plan.
func plan(
	t *testing.T, octx optctx.Context, engine *exec.Engine, input string,
) (opt.RelNode, *xform.Optimizer, error) {
	ctx := context.Background()
	o := xform.New(octx)
	engine.Prepare(o, rules.All()...)
	root, err := exprgen.Build(ctx, o.Cluster(), testCatalog(t), input)
	require.NoError(t, err)
	best, err := engine.Plan(ctx, o, root)
	return best, o, err
}

func TestOptimizerPlansFilter(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	engine := exec.NewRowEngine()
	best, o, err := plan(t, optctx.Empty(), engine, "(Filter (Scan a) (= $0 10))")
	require.NoError(t, err)
	defer o.Close()

	require.Equal(t, rel.FilterOp, best.Op())
	conv, ok := best.TraitSet().Convention()
	require.True(t, ok)
	require.Equal(t, engine.Convention(), conv)
	require.Equal(t, "Filter.ROW(condition=(= $0 10))\n └── Scan.ROW(table=t.a)\n",
		rel.Format(best, rel.FmtTraits))
	require.Positive(t, o.Metrics().RulesFired.Count())
	require.Zero(t, o.Metrics().ActiveSessions.Value())
}

func TestOptimizerCannotPlan(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	// The engine only scans, so nothing can implement the join.
	def := opt.NewConventionTraitDef()
	engine := exec.NewEngine(def, opt.ConventionSpec{Name: "SCANONLY", Ops: []string{rel.ScanOp}})
	require.Len(t, engine.Rules(), 1)

	metrics := xform.MakeMetrics()
	_, o, err := plan(t, optctx.Of(metrics), engine, "(Join inner (Scan a) (Scan b) (= $0 $2))")
	defer o.Close()
	require.Error(t, err)
	require.True(t, opt.IsCannotPlan(err))
	require.Equal(t, pgcode.PlanningFailure, pgerror.GetPGCode(err))
	require.Contains(t, err.Error(), "planning for SCANONLY")
	require.EqualValues(t, 1, metrics.CannotPlan.Count())
}

func TestOptimizerCancel(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	t.Run("flag", func(t *testing.T) {
		var flag opt.CancelFlag
		flag.RequestCancel()
		metrics := xform.MakeMetrics()
		_, o, err := plan(t, optctx.Of(&flag, metrics), exec.NewRowEngine(), "(Scan a)")
		defer o.Close()
		require.True(t, opt.IsQueryCanceled(err))
		require.Equal(t, pgcode.QueryCanceled, pgerror.GetPGCode(err))
		require.EqualValues(t, 1, metrics.Canceled.Count())

		// A cleared flag lets the same planner finish.
		flag.Clear()
		best, err := o.FindBestExp(context.Background())
		require.NoError(t, err)
		require.Equal(t, rel.ScanOp, best.Op())
	})

	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		o := xform.New(optctx.Empty())
		defer o.Close()
		engine := exec.NewRowEngine()
		engine.Prepare(o, rules.All()...)
		root, err := exprgen.Build(ctx, o.Cluster(), testCatalog(t), "(Scan a)")
		require.NoError(t, err)
		_, err = engine.Plan(ctx, o, root)
		require.True(t, opt.IsQueryCanceled(err))
	})
}

func TestEnsureRegistered(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	ctx := context.Background()
	o := xform.New(optctx.Empty())
	defer o.Close()
	exec.NewRowEngine().Prepare(o)
	catalog := testCatalog(t)

	scan, err := exprgen.Build(ctx, o.Cluster(), catalog, "(Scan a)")
	require.NoError(t, err)
	require.False(t, o.IsRegistered(scan))

	first := o.EnsureRegistered(scan, nil)
	second := o.EnsureRegistered(scan, nil)
	require.True(t, first == second)
	require.True(t, o.IsRegistered(scan))
	require.True(t, o.IsRegistered(first))
	require.Panics(t, func() { o.Register(scan, nil) })

	// A node with the same digest lands in the same subset.
	dup, err := exprgen.Build(ctx, o.Cluster(), catalog, "(Scan a)")
	require.NoError(t, err)
	require.True(t, o.EnsureRegistered(dup, nil) == first)

	// Equivalent expressions with other row types are rejected.
	other, err := exprgen.Build(ctx, o.Cluster(), catalog, "(Scan b)")
	require.NoError(t, err)
	require.Panics(t, func() { o.EnsureRegistered(other, scan) })
}

func TestOptimizerConcurrent(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	// Planners are single-threaded, but independent planners may share
	// settings and metrics.
	sv := settings.MakeTestingValues()
	metrics := xform.MakeMetrics()
	catalog := testCatalog(t)
	queries := []string{
		"(Scan a)",
		"(Filter (Scan a) (= $0 10))",
		"(Project (Scan b) [$1])",
		"(Join inner (Scan a) (Scan b) (= $0 $2))",
		"(Aggregate (Scan a) [1] [(count)])",
		"(Filter (Scan b) (= 1 2))",
	}
	results := make([]string, len(queries)*4)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range results {
		i := i
		g.Go(func() error {
			o := xform.New(optctx.Of(sv, metrics))
			defer o.Close()
			engine := exec.NewRowEngine()
			engine.Prepare(o, rules.All()...)
			root, err := exprgen.Build(ctx, o.Cluster(), catalog, queries[i%len(queries)])
			if err != nil {
				return err
			}
			best, err := engine.Plan(ctx, o, root)
			if err != nil {
				return err
			}
			results[i] = best.Op() + " " + o.Cost(best).String()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for i := len(queries); i < len(results); i++ {
		require.Equal(t, results[i%len(queries)], results[i])
	}
	require.Zero(t, metrics.ActiveSessions.Value())
	require.Positive(t, metrics.RulesFired.Count())
}

func TestOptimizerSettings(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	const query = "(Project (Filter (Scan a) (= $0 10)) [$1 $0])"

	t.Run("max rule firings", func(t *testing.T) {
		sv := settings.MakeTestingValues()
		require.NoError(t, sv.Set("sql.opt.max_rule_firings", "1"))
		metrics := xform.MakeMetrics()
		_, o, _ := plan(t, optctx.Of(sv, metrics), exec.NewRowEngine(), query)
		defer o.Close()
		require.LessOrEqual(t, metrics.RulesFired.Count(), int64(1))
	})

	t.Run("impatient", func(t *testing.T) {
		sv := settings.MakeTestingValues()
		require.NoError(t, sv.LoadTOML([]byte(`
[sql.opt.impatient]
enabled = true
extra_firings = 0
`)))
		best, o, err := plan(t, optctx.Of(sv), exec.NewRowEngine(), query)
		require.NoError(t, err)
		defer o.Close()
		require.Equal(t, rel.ProjectOp, best.Op())
	})

	t.Run("unknown", func(t *testing.T) {
		sv := settings.MakeTestingValues()
		require.Error(t, sv.Set("sql.opt.no_such_setting", "1"))
		require.Error(t, sv.Set("sql.opt.max_rule_firings", "-1"))
	})
}

func TestOptimizerDump(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	_, o, err := plan(t, optctx.Empty(), exec.NewRowEngine(), "(Scan a)")
	require.NoError(t, err)
	defer o.Close()

	dump := o.Dump()
	require.Contains(t, dump, "memo (root: subset")
	require.Contains(t, dump, "set 1 (a1 int, a2 int)")
	require.Contains(t, dump, "Scan.NONE(table=t.a) [cost: inf]")
	require.Contains(t, dump, "* Scan.ROW(table=t.a) [cost: 201.00]")

	o.Clear()
	require.Nil(t, o.Root())
	require.Equal(t, "memo\n", o.Dump())
}
