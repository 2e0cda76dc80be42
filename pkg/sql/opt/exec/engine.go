// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package exec describes the engines that run plans. Each engine is a
// convention: the planner converts logical expressions into the engine's
// convention with one converter rule per operator the engine executes.
package exec

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rules"
	"github.com/cockroachdb/polyopt/pkg/util/log"
)

// RowEngineName is the name of the convention of the row engine.
const RowEngineName = "ROW"

// RowEngineOps lists the operators the row engine executes.
var RowEngineOps = []string{
	rel.ScanOp,
	rel.FilterOp,
	rel.ProjectOp,
	rel.JoinOp,
	rel.AggregateOp,
	rel.ValuesOp,
}

var allOps = []string{
	rel.ScanOp,
	rel.FilterOp,
	rel.ProjectOp,
	rel.JoinOp,
	rel.AggregateOp,
	rel.ValuesOp,
	rel.SortOp,
	rel.ExchangeOp,
}

// Engine is a convention together with the rules that convert logical
// expressions into it.
type Engine struct {
	def   *opt.ConventionTraitDef
	conv  opt.Convention
	rules []opt.Rule
}

// NewRowEngine returns the row engine, in a convention family of its own.
func NewRowEngine() *Engine {
	return NewEngine(opt.NewConventionTraitDef(), opt.ConventionSpec{
		Name: RowEngineName,
		Ops:  RowEngineOps,
	})
}

// NewEngine returns an engine for the convention spec describes, in the
// family def. Converter rules are built for the operators of rel that the
// convention executes.
func NewEngine(def *opt.ConventionTraitDef, spec opt.ConventionSpec) *Engine {
	conv := def.NewConvention(spec)
	return &Engine{
		def:   def,
		conv:  conv,
		rules: rules.NewConventionRules(def.None(), conv, allOps...),
	}
}

// TraitDef returns the convention family of the engine.
func (e *Engine) TraitDef() *opt.ConventionTraitDef { return e.def }

// Convention returns the convention of the engine.
func (e *Engine) Convention() opt.Convention { return e.conv }

// Rules returns the converter rules of the engine.
func (e *Engine) Rules() []opt.Rule { return e.rules }

// Prepare registers the engine's convention family and converter rules with
// p, followed by the given logical rules. It must be called before any node
// is built in p's cluster.
func (e *Engine) Prepare(p opt.Planner, logical ...opt.Rule) {
	p.AddTraitDef(e.def)
	for _, r := range e.rules {
		p.AddRule(r)
	}
	for _, r := range logical {
		p.AddRule(r)
	}
}

// Plan asks p for the best plan of root in the engine's convention.
func (e *Engine) Plan(ctx context.Context, p opt.Planner, root opt.RelNode) (opt.RelNode, error) {
	required := root.TraitSet().ReplaceTrait(e.conv)
	if !root.TraitSet().Satisfies(required) {
		root = p.ChangeTraits(root, required)
	}
	p.SetRoot(root)
	best, err := p.FindBestExp(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "planning for %s", e.conv.Name())
	}
	log.VEventf(ctx, 2, "planned %s for %s", best.Op(), e.conv.Name())
	return best, nil
}
