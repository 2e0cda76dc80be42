// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/polyopt/pkg/cli/cliflags"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/exec"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optgen/exprgen"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rules"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/xform"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/cockroachdb/polyopt/pkg/util/metric"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var planCmd = &cobra.Command{
	Use:   "plan [query...]",
	Short: "plan queries in a calling convention",
	Long: `
Plan each query for an engine and print the best plan found. Queries are
taken from the arguments, or from standard input when there are none,
separated by blank lines.

Example:

  polyopt plan --schema schema.yaml '(Filter (Scan a) (= $0 10))'
`,
	RunE: runPlan,
}

// knownOps lists the operators an engine may be declared to execute.
var knownOps = map[string]struct{}{
	rel.ScanOp:      {},
	rel.FilterOp:    {},
	rel.ProjectOp:   {},
	rel.JoinOp:      {},
	rel.AggregateOp: {},
	rel.ValuesOp:    {},
	rel.SortOp:      {},
	rel.ExchangeOp:  {},
}

// planOptions are the validated flags of the plan command.
type planOptions struct {
	order   norm.MatchOrder
	xm      *xform.Metrics
	nm      *norm.Metrics
	fmtFlag rel.FormatFlags
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := logtags.AddTag(context.Background(), "plan", nil)
	opts, err := validatePlanFlags()
	if err != nil {
		return err
	}
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	queries, err := readQueries(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	// Each query gets a planner of its own; the metrics are shared.
	results := make([]string, len(queries))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(planCtx.parallel)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			qCtx := logtags.AddTag(gCtx, "q", i+1)
			best, err := planQuery(qCtx, e, q, opts)
			if err != nil {
				return errors.Wrapf(err, "query %d", i+1)
			}
			results[i] = rel.Format(best, opts.fmtFlag)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, r := range results {
		if len(results) > 1 {
			fmt.Fprintf(out, "query %d:\n", i+1)
		}
		fmt.Fprint(out, r)
	}
	if planCtx.metrics {
		registry := metric.NewRegistry()
		if err := registry.AddMetricStruct(opts.xm); err != nil {
			return err
		}
		if err := registry.AddMetricStruct(opts.nm); err != nil {
			return err
		}
		return registry.WriteText(out)
	}
	return nil
}

func validatePlanFlags() (planOptions, error) {
	opts := planOptions{xm: xform.MakeMetrics(), nm: norm.MakeMetrics()}
	if planCtx.parallel < 1 {
		return opts, newFlagError(errors.Newf("--%s must be at least 1", cliflags.Parallel.Name))
	}
	switch planCtx.planner {
	case volcanoPlanner, hepPlanner:
	default:
		return opts, newFlagError(errors.WithHintf(
			errors.Newf("unknown planner %q", planCtx.planner),
			"--%s accepts %q or %q", cliflags.Planner.Name, volcanoPlanner, hepPlanner))
	}
	order, ok := norm.ParseMatchOrder(planCtx.matchOrder)
	if !ok {
		return opts, newFlagError(errors.Newf("unknown match order %q", planCtx.matchOrder))
	}
	opts.order = order
	if planCtx.convention == "" {
		return opts, newFlagError(errors.Newf("--%s must not be empty", cliflags.Convention.Name))
	}
	for _, op := range planCtx.ops {
		if _, ok := knownOps[op]; !ok {
			return opts, newFlagError(errors.Newf("unknown operator %q", op))
		}
	}
	if planCtx.traits {
		opts.fmtFlag = rel.FmtTraits
	}
	return opts, nil
}

// newEngine returns the engine plans are requested for. Every call returns
// a distinct convention family, so that planners running concurrently
// share no conversion state.
func newEngine() *exec.Engine {
	name := strings.ToUpper(planCtx.convention)
	if name == exec.RowEngineName && len(planCtx.ops) == 0 {
		return exec.NewRowEngine()
	}
	return exec.NewEngine(opt.NewConventionTraitDef(), opt.ConventionSpec{
		Name: name,
		Ops:  planCtx.ops,
	})
}

// planQuery plans query with the planner selected by the --planner flag.
func planQuery(ctx context.Context, e *env, query string, opts planOptions) (opt.RelNode, error) {
	engine := newEngine()
	octx := optctx.Of(e.sv, opt.Executor(rex.ConstantExecutor{}))

	if planCtx.planner == hepPlanner {
		// The rule-based planner rewrites the logical expression first. The
		// converter rules then move the result into the engine's convention.
		program := (&norm.ProgramBuilder{}).
			AddMatchOrder(opts.order).
			AddRuleCollection(rules.LeafJoinRules()...).
			AddRuleInstance(rules.FilterMerge).
			AddRuleInstance(rules.FilterReduceExpressions).
			Build()
		p := norm.New(program, optctx.Of(octx, opts.nm))
		engine.Prepare(p)
		root, err := exprgen.Build(ctx, p.Cluster(), e.catalog, query)
		if err != nil {
			return nil, err
		}
		p.SetRoot(root)
		logical, err := p.FindBestExp(ctx)
		if err != nil {
			return nil, err
		}
		return engine.Plan(ctx, p, logical)
	}

	o := xform.New(optctx.Of(octx, opts.xm))
	defer o.Close()
	engine.Prepare(o, rules.All()...)
	if err := e.addViews(ctx, o, o.Cluster()); err != nil {
		return nil, err
	}
	root, err := exprgen.Build(ctx, o.Cluster(), e.catalog, query)
	if err != nil {
		return nil, err
	}
	best, err := engine.Plan(ctx, o, root)
	if err != nil {
		if log.V(2) {
			log.Infof(ctx, "memo after failure:\n%s", o.Dump())
		}
		return nil, err
	}
	return best, nil
}
