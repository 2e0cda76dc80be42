// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package opttester runs the planners from datadriven test files.
package opttester

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/settings"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/exec"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/materialize"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optgen/exprgen"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rules"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/xform"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
)

// OptTester is a helper for testing the planners. It keeps a test catalog
// and the materializations and lattices declared so far, and runs each
// command on a fresh planner.
type OptTester struct {
	Flags Flags

	ctx     context.Context
	catalog *testcat.Catalog
	sv      *settings.Values

	materializations []materializationDef
	lattices         []latticeDef
}

// materializationDef is a materialization declared by a test. Its
// expressions are rebuilt in the cluster of each planner that uses it.
type materializationDef struct {
	table string
	query string
}

type latticeDef struct {
	name  string
	star  string
	query string
}

// Flags are control knobs for tests. Note that specific testcases can
// override these defaults.
type Flags struct {
	// Format controls the output of expression trees.
	Format rel.FormatFlags

	// Rules are the rules the norm command applies. Empty means all rules.
	Rules []string

	// MatchOrder is the order in which the norm command visits nodes.
	MatchOrder norm.MatchOrder

	// DisableRules are logical rules the opt and memo commands leave out.
	DisableRules map[string]struct{}

	// Star names the star table of the star and lattice commands.
	Star string

	// Table names the table of the materialize command and the lattice of
	// the lattice command.
	Table string
}

// New constructs a tester over catalog.
func New(catalog *testcat.Catalog) *OptTester {
	return &OptTester{
		ctx:     context.Background(),
		catalog: catalog,
		sv:      settings.MakeTestingValues(),
	}
}

// RunCommand implements commands that are used by most tests:
//
//   - exec-ddl
//
//     Runs a DDL statement to build the test catalog.
//
//   - build [format=...]
//
//     Builds an expression from its S-expression and outputs it without
//     any rewrite.
//
//   - norm [rules=(...)] [order=...] [format=...]
//
//     Applies rewrite rules to the expression until none matches.
//
//   - leafjoin [format=...]
//
//     Outputs the leaf-join form of the expression.
//
//   - star star=<star> [format=...]
//
//     Rewrites the expression to read the given star table.
//
//   - materialize table=<table>
//
//     Declares that table stores the result of the input expression. Later
//     opt commands may read it.
//
//   - lattice table=<name> star=<star>
//
//     Declares a lattice over the star table, rooted at the input
//     expression.
//
//   - opt [disable=(...)] [set=(...)] [format=...]
//
//     Plans the expression for the row engine and outputs the cheapest
//     plan.
//
//   - memo [disable=(...)] [set=(...)]
//
//     Plans the expression and outputs the memo.
//
// Supported flags:
//
//   - format: any combination of traits and columns.
//   - rules: names of the rules for norm.
//   - order: one of arbitrary, depth-first, bottom-up and top-down.
//   - disable: names of logical rules to leave out.
//   - set: cluster settings, as key=value pairs.
func (ot *OptTester) RunCommand(tb testing.TB, d *datadriven.TestData) string {
	ot.Flags = Flags{MatchOrder: norm.MatchOrderDepthFirst}
	for _, a := range d.CmdArgs {
		if err := ot.Flags.set(a, ot.sv); err != nil {
			d.Fatalf(tb, "%s", err)
		}
	}

	switch d.Cmd {
	case "exec-ddl":
		s, err := ot.catalog.ExecuteDDL(d.Input)
		if err != nil {
			return formatError(err)
		}
		return s

	case "build":
		e, err := exprgen.Build(ot.ctx, newCluster(), ot.catalog, d.Input)
		if err != nil {
			return formatError(err)
		}
		return rel.Format(e, ot.Flags.Format)

	case "norm":
		e, err := ot.Norm(d.Input)
		if err != nil {
			return formatError(err)
		}
		return rel.Format(e, ot.Flags.Format)

	case "leafjoin":
		e, err := ot.LeafJoin(d.Input)
		if err != nil {
			return formatError(err)
		}
		return rel.Format(e, ot.Flags.Format)

	case "star":
		e, ok, err := ot.Star(d.Input)
		if err != nil {
			return formatError(err)
		}
		if !ok {
			return "no match\n"
		}
		return rel.Format(e, ot.Flags.Format)

	case "materialize":
		if ot.Flags.Table == "" {
			d.Fatalf(tb, "materialize requires table")
		}
		ot.materializations = append(ot.materializations, materializationDef{
			table: ot.Flags.Table, query: d.Input,
		})
		return ""

	case "lattice":
		if ot.Flags.Table == "" || ot.Flags.Star == "" {
			d.Fatalf(tb, "lattice requires table and star")
		}
		ot.lattices = append(ot.lattices, latticeDef{
			name: ot.Flags.Table, star: ot.Flags.Star, query: d.Input,
		})
		return ""

	case "opt":
		e, _, err := ot.Optimize(d.Input)
		if err != nil {
			return formatError(err)
		}
		return rel.Format(e, ot.Flags.Format)

	case "memo":
		_, o, err := ot.Optimize(d.Input)
		if o == nil {
			return formatError(err)
		}
		if err != nil {
			return formatError(err) + o.Dump()
		}
		return o.Dump()

	default:
		d.Fatalf(tb, "unsupported command: %s", d.Cmd)
		return ""
	}
}

// formatError outputs the Postgres error code along with the message.
func formatError(err error) string {
	text := strings.TrimSpace(err.Error())
	return fmt.Sprintf("error (%s): %s\n", pgerror.GetPGCode(err), text)
}

// newCluster returns a cluster whose planner has no trait families, for
// expressions that are only rewritten.
func newCluster() *opt.Cluster {
	return xform.New(optctx.Empty()).Cluster()
}

// Norm builds input and applies the rules selected by the flags.
func (ot *OptTester) Norm(input string) (opt.RelNode, error) {
	e, err := exprgen.Build(ot.ctx, newCluster(), ot.catalog, input)
	if err != nil {
		return nil, err
	}
	selected := rules.All()
	if len(ot.Flags.Rules) > 0 {
		selected = selected[:0]
		for _, name := range ot.Flags.Rules {
			r, ok := lookupRule(name)
			if !ok {
				return nil, errors.Newf("unknown rule %s", name)
			}
			selected = append(selected, r)
		}
	}
	program := (&norm.ProgramBuilder{}).
		AddMatchOrder(ot.Flags.MatchOrder).
		AddRuleCollection(selected...).
		Build()
	p := norm.New(program, optctx.Of(ot.sv, opt.Executor(rex.ConstantExecutor{})))
	p.SetRoot(e)
	return p.FindBestExp(ot.ctx)
}

// LeafJoin builds input and returns its leaf-join form.
func (ot *OptTester) LeafJoin(input string) (opt.RelNode, error) {
	e, err := exprgen.Build(ot.ctx, newCluster(), ot.catalog, input)
	if err != nil {
		return nil, err
	}
	return materialize.ToLeafJoinForm(ot.ctx, e)
}

// Star builds input, brings it into leaf-join form and rewrites it to read
// the star table named by the flags.
func (ot *OptTester) Star(input string) (opt.RelNode, bool, error) {
	if ot.Flags.Star == "" {
		return nil, false, errors.New("star requires a star table")
	}
	leaf, err := ot.LeafJoin(input)
	if err != nil {
		return nil, false, err
	}
	star, err := ot.resolveStar(ot.Flags.Star)
	if err != nil {
		return nil, false, err
	}
	res, ok := materialize.TryUseStar(ot.ctx, leaf, star)
	return res, ok, nil
}

// Optimize plans input for the row engine with the materializations and
// lattices declared so far. The planner is returned whenever it was
// created, so that its memo can be inspected after a failure.
func (ot *OptTester) Optimize(input string) (opt.RelNode, *xform.Optimizer, error) {
	o := xform.New(optctx.Of(ot.sv, xform.MakeMetrics(), opt.Executor(rex.ConstantExecutor{})))
	engine := exec.NewRowEngine()
	var logical []opt.Rule
	for _, r := range rules.All() {
		if _, ok := ot.Flags.DisableRules[r.Name()]; !ok {
			logical = append(logical, r)
		}
	}
	engine.Prepare(o, logical...)

	if err := ot.addMaterializations(o); err != nil {
		return nil, nil, err
	}
	e, err := exprgen.Build(ot.ctx, o.Cluster(), ot.catalog, input)
	if err != nil {
		return nil, nil, err
	}
	best, err := engine.Plan(ot.ctx, o, e)
	if err != nil {
		return nil, o, err
	}
	return best, o, nil
}

func (ot *OptTester) addMaterializations(o *xform.Optimizer) error {
	cluster := o.Cluster()
	for _, def := range ot.materializations {
		tab, err := ot.catalog.ResolveTable(ot.ctx, def.table)
		if err != nil {
			return err
		}
		query, err := exprgen.Build(ot.ctx, cluster, ot.catalog, def.query)
		if err != nil {
			return err
		}
		m, err := materialize.NewMaterialization(
			rel.NewScan(cluster, nil, tab), query, nil, tab.QualifiedName(),
		)
		if err != nil {
			return err
		}
		o.AddMaterialization(m)
	}
	for _, def := range ot.lattices {
		star, err := ot.resolveStar(def.star)
		if err != nil {
			return err
		}
		root, err := exprgen.Build(ot.ctx, cluster, ot.catalog, def.query)
		if err != nil {
			return err
		}
		m, err := materialize.NewMaterialization(
			rel.NewScan(cluster, nil, star), root, star, star.QualifiedName(),
		)
		if err != nil {
			return err
		}
		o.AddLattice(materialize.NewLattice(def.name, star, root, m))
	}
	return nil
}

func (ot *OptTester) resolveStar(name string) (*cat.StarTable, error) {
	tab, err := ot.catalog.ResolveTable(ot.ctx, name)
	if err != nil {
		return nil, err
	}
	star, ok := tab.(*cat.StarTable)
	if !ok {
		return nil, errors.Newf("%s is not a star table", name)
	}
	return star, nil
}

func lookupRule(name string) (opt.Rule, bool) {
	for _, r := range rules.All() {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// set parses an argument that refers to a flag. Settings are applied to sv
// directly. See OptTester.RunCommand for supported flags.
func (f *Flags) set(arg datadriven.CmdArg, sv *settings.Values) error {
	switch arg.Key {
	case "format":
		if len(arg.Vals) == 0 {
			return errors.New("format flag requires value(s)")
		}
		for _, v := range arg.Vals {
			switch v {
			case "traits":
				f.Format |= rel.FmtTraits
			case "columns":
				f.Format |= rel.FmtRowType
			default:
				return errors.Newf("unknown format value %s", v)
			}
		}

	case "rules":
		if len(arg.Vals) == 0 {
			return errors.New("rules requires arguments")
		}
		f.Rules = append(f.Rules, arg.Vals...)

	case "order":
		if len(arg.Vals) != 1 {
			return errors.New("order requires one argument")
		}
		order, ok := norm.ParseMatchOrder(arg.Vals[0])
		if !ok {
			return errors.Newf("unknown match order %s", arg.Vals[0])
		}
		f.MatchOrder = order

	case "disable":
		if len(arg.Vals) == 0 {
			return errors.New("disable requires arguments")
		}
		if f.DisableRules == nil {
			f.DisableRules = make(map[string]struct{})
		}
		for _, s := range arg.Vals {
			if _, ok := lookupRule(s); !ok {
				return errors.Newf("unknown rule %s", s)
			}
			f.DisableRules[s] = struct{}{}
		}

	case "set":
		for _, kv := range arg.Vals {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return errors.Newf("expected key=value, found %s", kv)
			}
			if err := sv.Set(k, v); err != nil {
				return err
			}
		}

	case "star":
		if len(arg.Vals) != 1 {
			return errors.New("star requires one argument")
		}
		f.Star = arg.Vals[0]

	case "table":
		if len(arg.Vals) != 1 {
			return errors.New("table requires one argument")
		}
		f.Table = arg.Vals[0]

	default:
		return errors.Newf("unknown argument: %s", arg.Key)
	}
	return nil
}
