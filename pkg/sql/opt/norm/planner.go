// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package norm contains the rule-based planner. It rewrites a tree in place
// by applying the rule groups of a Program, each to a fixed point, keeping
// exactly one expression per node. It is used for normalizations that are
// always beneficial and need no cost-based search.
package norm

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/polyopt/pkg/settings"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/props"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/cockroachdb/polyopt/pkg/util/metric"
)

var matchLimit = settings.RegisterValidatedIntSetting(
	"sql.opt.hep.match_limit",
	"default maximum number of transformations per rule group of a rule-based program; 0 means no limit",
	10000,
	settings.NonNegativeInt,
)

var metaTransformations = metric.Metadata{
	Name: "sql.opt.hep.transformations",
	Help: "Number of transformations applied by the rule-based planner",
}

// Metrics holds the counters of the rule-based planner.
type Metrics struct {
	Transformations *metric.Counter
}

// MakeMetrics instantiates the metrics of the rule-based planner.
func MakeMetrics() *Metrics {
	return &Metrics{Transformations: metric.NewCounter(metaTransformations)}
}

// Planner is the rule-based planner. It implements opt.Planner.
//
// Like the cost-based planner, it takes a *settings.Values, an
// *opt.CancelFlag, a *Metrics, an opt.CostFactory and an opt.Executor from
// its context.
type Planner struct {
	program     *Program
	octx        optctx.Context
	sv          *settings.Values
	cancel      *opt.CancelFlag
	metrics     *Metrics
	costFactory opt.CostFactory
	executor    opt.Executor
	cluster     *opt.Cluster
	mq          *props.MetadataQuery

	traitDefs   []opt.TraitDef
	emptyTraits *opt.TraitSet
	rules       []opt.Rule

	root opt.RelNode
	// requested holds the traits asked of requestedFor through ChangeTraits.
	requested    *opt.TraitSet
	requestedFor opt.RelNode

	registered map[opt.RelNode]struct{}

	materializations []*opt.Materialization
	lattices         []*opt.Lattice

	// transformations counts the rewrites applied; it doubles as the metadata
	// timestamp.
	transformations int64
}

var _ opt.Planner = (*Planner)(nil)
var _ opt.TraitConverter = (*Planner)(nil)

// New creates a rule-based planner that runs program.
func New(program *Program, octx optctx.Context) *Planner {
	if octx == nil {
		octx = optctx.Empty()
	}
	p := &Planner{
		program:    program,
		octx:       octx,
		registered: make(map[opt.RelNode]struct{}),
	}
	p.sv, _ = optctx.Unwrap[*settings.Values](octx)
	p.cancel, _ = optctx.Unwrap[*opt.CancelFlag](octx)
	if p.metrics, _ = optctx.Unwrap[*Metrics](octx); p.metrics == nil {
		p.metrics = MakeMetrics()
	}
	if p.costFactory, _ = optctx.Unwrap[opt.CostFactory](octx); p.costFactory == nil {
		p.costFactory = opt.DefaultCostFactory{}
	}
	p.executor, _ = optctx.Unwrap[opt.Executor](octx)
	p.cluster = opt.NewCluster(p)
	p.emptyTraits = opt.NewEmptyTraitSet()
	p.mq = props.NewMetadataQuery(p)
	if program != nil {
		for _, r := range program.Rules() {
			p.AddRule(r)
		}
	}
	return p
}

// Rewrite applies program to rel and returns the result. Nodes keep their
// clusters, so rules build new nodes in the clusters of the nodes they
// match.
func Rewrite(ctx context.Context, program *Program, rel opt.RelNode) (opt.RelNode, error) {
	p := New(program, optctx.Empty())
	p.SetRoot(rel)
	return p.FindBestExp(ctx)
}

// Cluster returns a cluster whose nodes are planned by p.
func (p *Planner) Cluster() *opt.Cluster { return p.cluster }

// Transformations returns the number of rewrites applied so far.
func (p *Planner) Transformations() int64 { return p.transformations }

// Context is part of the opt.Planner interface.
func (p *Planner) Context() optctx.Context { return p.octx }

// SetRoot is part of the opt.Planner interface.
func (p *Planner) SetRoot(rel opt.RelNode) {
	p.root = rel
	if rel != p.requestedFor {
		p.requested, p.requestedFor = nil, nil
	}
	p.markRegistered(rel)
}

// Root is part of the opt.Planner interface.
func (p *Planner) Root() opt.RelNode { return p.root }

// AddTraitDef is part of the opt.Planner interface.
func (p *Planner) AddTraitDef(def opt.TraitDef) bool {
	for _, d := range p.traitDefs {
		if d == def {
			return false
		}
	}
	p.traitDefs = append(p.traitDefs, def)
	p.emptyTraits = p.emptyTraits.Plus(def.Default())
	for _, r := range p.rules {
		if cr, ok := r.(opt.ConverterRule); ok {
			def.RegisterConverterRule(p, cr)
		}
	}
	return true
}

// ClearTraitDefs is part of the opt.Planner interface.
func (p *Planner) ClearTraitDefs() {
	p.traitDefs = nil
	p.emptyTraits = opt.NewEmptyTraitSet()
}

// TraitDefs is part of the opt.Planner interface.
func (p *Planner) TraitDefs() []opt.TraitDef { return p.traitDefs }

// EmptyTraitSet is part of the opt.Planner interface.
func (p *Planner) EmptyTraitSet() *opt.TraitSet { return p.emptyTraits }

// AddRule is part of the opt.Planner interface. Rules added this way are
// available to trait conversions; only the program's rules rewrite the tree.
func (p *Planner) AddRule(r opt.Rule) bool {
	for _, existing := range p.rules {
		if existing.Name() == r.Name() {
			return false
		}
	}
	p.rules = append(p.rules, r)
	if cr, ok := r.(opt.ConverterRule); ok {
		for _, def := range p.traitDefs {
			def.RegisterConverterRule(p, cr)
		}
	}
	return true
}

// RemoveRule is part of the opt.Planner interface.
func (p *Planner) RemoveRule(r opt.Rule) bool {
	for i, existing := range p.rules {
		if existing.Name() != r.Name() {
			continue
		}
		p.rules = append(p.rules[:i:i], p.rules[i+1:]...)
		if cr, ok := existing.(opt.ConverterRule); ok {
			for _, def := range p.traitDefs {
				def.DeregisterConverterRule(p, cr)
			}
		}
		return true
	}
	return false
}

// Rules is part of the opt.Planner interface.
func (p *Planner) Rules() []opt.Rule { return p.rules }

// Register is part of the opt.Planner interface. The rule-based planner
// keeps no equivalence classes; the node represents itself.
func (p *Planner) Register(rel, equiv opt.RelNode) opt.RelNode {
	if p.IsRegistered(rel) {
		panic(errors.AssertionFailedf("%s is already registered", rel.Digest()))
	}
	p.markRegistered(rel)
	return rel
}

// EnsureRegistered is part of the opt.Planner interface.
func (p *Planner) EnsureRegistered(rel, equiv opt.RelNode) opt.RelNode {
	p.markRegistered(rel)
	return rel
}

// IsRegistered is part of the opt.Planner interface.
func (p *Planner) IsRegistered(rel opt.RelNode) bool {
	_, ok := p.registered[rel]
	return ok
}

func (p *Planner) markRegistered(rel opt.RelNode) {
	if _, ok := p.registered[rel]; ok {
		return
	}
	p.registered[rel] = struct{}{}
	for i := 0; i < rel.TraitSet().Size(); i++ {
		rel.TraitSet().Trait(i).Register(p)
	}
	for _, in := range rel.Inputs() {
		p.markRegistered(in)
	}
}

// ChangeTraits is part of the opt.Planner interface. The conversion is done
// eagerly through the trait families' converters when possible. Otherwise
// rel is returned unchanged, and if it is the root the traits are required
// of the final plan.
func (p *Planner) ChangeTraits(rel opt.RelNode, traits *opt.TraitSet) opt.RelNode {
	if rel.TraitSet().Satisfies(traits) {
		panic(errors.AssertionFailedf("%s already satisfies traits %s", rel.Op(), traits))
	}
	if converted, ok := p.ChangeTraitsUsingConverters(rel, traits); ok {
		return converted
	}
	if rel == p.root || p.root == nil {
		p.requested, p.requestedFor = traits, rel
	}
	return rel
}

// ChangeTraitsUsingConverters is part of the opt.TraitConverter interface.
func (p *Planner) ChangeTraitsUsingConverters(
	rel opt.RelNode, traits *opt.TraitSet,
) (opt.RelNode, bool) {
	return opt.ConvertTraits(p, rel, traits, true /* allowInfiniteCostConverters */, nil)
}

// AddMaterialization is part of the opt.Planner interface. The rule-based
// planner records materializations without using them.
func (p *Planner) AddMaterialization(m *opt.Materialization) {
	p.materializations = append(p.materializations, m)
}

// Materializations is part of the opt.Planner interface.
func (p *Planner) Materializations() []*opt.Materialization { return p.materializations }

// AddLattice is part of the opt.Planner interface.
func (p *Planner) AddLattice(l *opt.Lattice) {
	p.lattices = append(p.lattices, l)
	if l.Materialization != nil {
		p.AddMaterialization(l.Materialization)
	}
}

// Lattice is part of the opt.Planner interface.
func (p *Planner) Lattice(t cat.Table) (*opt.Lattice, bool) {
	for _, l := range p.lattices {
		if l.StarTable != nil && cat.Table(l.StarTable) == t {
			return l, true
		}
	}
	return nil, false
}

// SetImportance is part of the opt.Planner interface. The rule-based
// planner has no queue to prune.
func (p *Planner) SetImportance(opt.RelNode, float64) {}

// RelMetadataTimestamp is part of the opt.Planner interface.
func (p *Planner) RelMetadataTimestamp(opt.RelNode) int64 { return p.transformations }

// Cost is part of the opt.Planner interface.
func (p *Planner) Cost(rel opt.RelNode) opt.Cost {
	return p.mq.CumulativeCost(p.costFactory, rel)
}

// CostFactory is part of the opt.Planner interface.
func (p *Planner) CostFactory() opt.CostFactory { return p.costFactory }

// Executor is part of the opt.Planner interface.
func (p *Planner) Executor() opt.Executor { return p.executor }

// SetExecutor is part of the opt.Planner interface.
func (p *Planner) SetExecutor(e opt.Executor) { p.executor = e }

// Clear is part of the opt.Planner interface. The program is kept.
func (p *Planner) Clear() {
	for _, r := range p.rules {
		if cr, ok := r.(opt.ConverterRule); ok {
			for _, def := range p.traitDefs {
				def.DeregisterConverterRule(p, cr)
			}
		}
	}
	p.rules = nil
	p.root = nil
	p.requested, p.requestedFor = nil, nil
	p.registered = make(map[opt.RelNode]struct{})
	p.materializations = nil
	p.lattices = nil
	p.mq.Reset()
}

// FindBestExp is part of the opt.Planner interface. It runs the program on
// the root, then converts the result to the traits requested of the root,
// failing with a CannotPlan error if that is impossible.
func (p *Planner) FindBestExp(ctx context.Context) (_ opt.RelNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()
	if p.root == nil {
		return nil, errors.AssertionFailedf("no root expression to plan")
	}
	ctx = logtags.AddTag(ctx, "hep", nil)
	if p.program != nil {
		if err := p.execute(ctx, p.program); err != nil {
			return nil, err
		}
	}
	if p.requested != nil && !p.root.TraitSet().Satisfies(p.requested) {
		converted, ok := p.ChangeTraitsUsingConverters(p.root, p.requested)
		if !ok {
			return nil, opt.NewCannotPlanError(p.requested, p.root)
		}
		p.root = converted
	}
	log.VEventf(ctx, 2, "applied %d transformations", p.transformations)
	return p.root, nil
}
