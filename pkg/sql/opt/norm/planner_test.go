// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/exec"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optgen/exprgen"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rules"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, p *norm.Planner, input string) opt.RelNode {
	catalog := testcat.New()
	require.NoError(t, catalog.ExecuteMultipleDDL(`
CREATE TABLE a (a1 INT NOT NULL, a2 INT) ROWS 100;
CREATE TABLE b (b1 INT NOT NULL, b2 INT) ROWS 10;
`))
	n, err := exprgen.Build(context.Background(), p.Cluster(), catalog, input)
	require.NoError(t, err)
	return n
}

func TestMatchOrder(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	// record matches every node without rewriting it, so a single walk
	// reveals the visiting order.
	var visited []string
	record := opt.NewRule("Record", opt.MatchAny(), func(call *opt.RuleCall) {
		visited = append(visited, call.Rel(0).Op())
	})

	for _, tc := range []struct {
		order    norm.MatchOrder
		expected string
	}{
		{norm.MatchOrderArbitrary, "Filter Join Scan Project Scan"},
		{norm.MatchOrderDepthFirst, "Filter Join Scan Project Scan"},
		{norm.MatchOrderTopDown, "Filter Join Scan Project Scan"},
		{norm.MatchOrderBottomUp, "Scan Scan Project Join Filter"},
	} {
		t.Run(tc.order.String(), func(t *testing.T) {
			visited = nil
			program := (&norm.ProgramBuilder{}).
				AddMatchOrder(tc.order).
				AddRuleInstance(record).
				Build()
			p := norm.New(program, optctx.Empty())
			p.SetRoot(build(t, p, "(Filter (Join inner (Scan a) (Project (Scan b) [$1])) (= $0 1))"))
			_, err := p.FindBestExp(context.Background())
			require.NoError(t, err)
			require.Equal(t, tc.expected, strings.Join(visited, " "))
			require.Zero(t, p.Transformations())
		})
	}

	for _, name := range []string{"arbitrary", "depth-first", "bottom-up", "top-down"} {
		o, ok := norm.ParseMatchOrder(name)
		require.True(t, ok)
		require.Equal(t, name, o.String())
	}
	_, ok := norm.ParseMatchOrder("sideways")
	require.False(t, ok)
}

func TestMatchLimit(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	const input = "(Filter (Filter (Filter (Scan a) (= $0 1)) (= $1 2)) (> $0 0))"
	for _, tc := range []struct {
		limit           int
		transformations int64
		filters         int
	}{
		{limit: 0, transformations: 2, filters: 1},
		{limit: 1, transformations: 1, filters: 2},
		{limit: 5, transformations: 2, filters: 1},
	} {
		program := (&norm.ProgramBuilder{}).
			AddMatchLimit(tc.limit).
			AddRuleInstance(rules.FilterMerge).
			Build()
		metrics := norm.MakeMetrics()
		p := norm.New(program, optctx.Of(metrics))
		p.SetRoot(build(t, p, input))
		res, err := p.FindBestExp(context.Background())
		require.NoError(t, err)
		require.Equal(t, tc.transformations, p.Transformations())
		require.Equal(t, tc.transformations, metrics.Transformations.Count())
		require.Equal(t, tc.filters, strings.Count(rel.Format(res, 0), rel.FilterOp))
	}
}

func TestProgramRules(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	program := (&norm.ProgramBuilder{}).
		AddRuleCollection(rules.LeafJoinRules()...).
		AddMatchOrder(norm.MatchOrderTopDown).
		AddRuleInstance(rules.FilterMerge).
		Build()
	require.Len(t, program.Rules(), len(rules.LeafJoinRules())+1)

	// The program's rules are known to the planner.
	p := norm.New(program, optctx.Empty())
	require.Len(t, p.Rules(), len(program.Rules()))
	require.False(t, p.AddRule(rules.FilterMerge))
	require.True(t, p.RemoveRule(rules.FilterMerge))
	require.False(t, p.RemoveRule(rules.FilterMerge))
}

func TestPlannerCancel(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	var flag opt.CancelFlag
	flag.RequestCancel()
	program := (&norm.ProgramBuilder{}).AddRuleInstance(rules.FilterMerge).Build()
	p := norm.New(program, optctx.Of(&flag))
	p.SetRoot(build(t, p, "(Filter (Filter (Scan a) (= $0 1)) (= $1 2))"))
	_, err := p.FindBestExp(context.Background())
	require.True(t, opt.IsQueryCanceled(err))

	_, err = norm.New(program, optctx.Empty()).FindBestExp(context.Background())
	require.Error(t, err)
}

func TestPlannerConvertsToEngine(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	ctx := context.Background()

	engine := exec.NewRowEngine()
	p := norm.New(nil, optctx.Empty())
	engine.Prepare(p)
	best, err := engine.Plan(ctx, p, build(t, p, "(Filter (Scan a) (= $0 10))"))
	require.NoError(t, err)
	require.Equal(t, "Filter.ROW(condition=(= $0 10))\n └── Scan.ROW(table=t.a)\n",
		rel.Format(best, rel.FmtTraits))

	// An engine that cannot filter leaves the plan in the NONE convention.
	def := opt.NewConventionTraitDef()
	scanOnly := exec.NewEngine(def, opt.ConventionSpec{Name: "SCANONLY", Ops: []string{rel.ScanOp}})
	p = norm.New(nil, optctx.Empty())
	scanOnly.Prepare(p)
	_, err = scanOnly.Plan(ctx, p, build(t, p, "(Filter (Scan a) (= $0 10))"))
	require.True(t, opt.IsCannotPlan(err))

	// Nor does one that can filter but cannot scan.
	filterOnly := exec.NewEngine(def, opt.ConventionSpec{Name: "FILTERONLY", Ops: []string{rel.FilterOp}})
	p = norm.New(nil, optctx.Empty())
	filterOnly.Prepare(p)
	_, err = filterOnly.Plan(ctx, p, build(t, p, "(Filter (Scan a) (= $0 10))"))
	require.True(t, opt.IsCannotPlan(err))
}
