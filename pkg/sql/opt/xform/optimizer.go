// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package xform contains the cost-based planner. The planner keeps every
// expression it learns about in a memo of equivalence classes, fires rules
// from a priority queue to discover new equivalent expressions, tracks the
// cheapest expression of every trait combination, and finally extracts the
// cheapest plan whose traits satisfy the root's required traits.
package xform

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/settings"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/memo"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/props"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/google/btree"
)

var optimizerIDs atomic.Int64

// Optimizer is the cost-based planner. It implements opt.Planner.
//
// The planner takes its collaborators from its context: a *settings.Values
// for configuration, an *opt.CancelFlag to stop a running search, a
// *Metrics to count its work, an opt.CostFactory and an opt.Executor. Each
// is optional.
//
// An Optimizer is used by one goroutine at a time.
type Optimizer struct {
	id          int64
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

	rules           []opt.Rule
	maxOperandDepth int

	// originalRoot is the expression passed to SetRoot, and root the subset
	// that represents it.
	originalRoot opt.RelNode
	root         *memo.Subset

	sets []*memo.Set

	// digestToRel maps the digest of every registered expression to the
	// expression.
	digestToRel map[string]opt.RelNode
	// rels maps every node passed to the planner to its registered version,
	// which differs when the node's inputs had to be replaced by subsets.
	rels map[opt.RelNode]opt.RelNode
	// subsetOf maps registered expressions to the subset of their traits.
	subsetOf map[opt.RelNode]*memo.Subset
	// origins holds, for each set, the first node registered in it with its
	// original inputs.
	origins map[*memo.Set]opt.RelNode
	// knownSubsets are the subsets whose creation was processed.
	knownSubsets map[*memo.Subset]struct{}

	importance       map[opt.RelNode]float64
	registeredTraits map[opt.Trait]struct{}

	queue   *btree.BTree
	seq     int
	matches map[string]struct{}

	materializations []*opt.Materialization
	lattices         []*opt.Lattice

	timestamp int64

	limitEvery *log.EveryN
}

var _ opt.Planner = (*Optimizer)(nil)
var _ opt.TraitConverter = (*Optimizer)(nil)

// New creates a cost-based planner with the given context values.
func New(octx optctx.Context) *Optimizer {
	if octx == nil {
		octx = optctx.Empty()
	}
	o := &Optimizer{
		id:         optimizerIDs.Add(1),
		octx:       octx,
		limitEvery: log.Every(time.Minute),
	}
	o.sv, _ = optctx.Unwrap[*settings.Values](octx)
	o.cancel, _ = optctx.Unwrap[*opt.CancelFlag](octx)
	if o.metrics, _ = optctx.Unwrap[*Metrics](octx); o.metrics == nil {
		o.metrics = MakeMetrics()
	}
	if o.costFactory, _ = optctx.Unwrap[opt.CostFactory](octx); o.costFactory == nil {
		o.costFactory = opt.DefaultCostFactory{}
	}
	o.executor, _ = optctx.Unwrap[opt.Executor](octx)
	o.cluster = opt.NewCluster(o)
	o.emptyTraits = opt.NewEmptyTraitSet()
	o.init()
	return o
}

func (o *Optimizer) init() {
	o.mq = props.NewMetadataQuery(o)
	o.originalRoot = nil
	o.root = nil
	o.sets = nil
	o.digestToRel = make(map[string]opt.RelNode)
	o.rels = make(map[opt.RelNode]opt.RelNode)
	o.subsetOf = make(map[opt.RelNode]*memo.Subset)
	o.origins = make(map[*memo.Set]opt.RelNode)
	o.knownSubsets = make(map[*memo.Subset]struct{})
	o.importance = make(map[opt.RelNode]float64)
	o.registeredTraits = make(map[opt.Trait]struct{})
	o.queue = btree.New(8 /* degree */)
	o.matches = make(map[string]struct{})
}

// ID returns the identifier of the planner, used to tag its log messages.
func (o *Optimizer) ID() int64 { return o.id }

// Cluster returns the cluster in which nodes planned by o are built.
func (o *Optimizer) Cluster() *opt.Cluster { return o.cluster }

// Metrics returns the counters of the planner.
func (o *Optimizer) Metrics() *Metrics { return o.metrics }

// MetadataQuery returns the metadata cache of the planner.
func (o *Optimizer) MetadataQuery() *props.MetadataQuery { return o.mq }

// Context is part of the opt.Planner interface.
func (o *Optimizer) Context() optctx.Context { return o.octx }

// SetRoot is part of the opt.Planner interface. The memo is kept across
// roots.
func (o *Optimizer) SetRoot(rel opt.RelNode) {
	o.root = o.ensureRegistered(rel, nil)
	o.originalRoot = rel
}

// Root is part of the opt.Planner interface.
func (o *Optimizer) Root() opt.RelNode {
	if o.root == nil {
		return nil
	}
	return o.rootSubset()
}

func (o *Optimizer) rootSubset() *memo.Subset {
	o.root = o.root.Canonical()
	return o.root
}

// AddTraitDef is part of the opt.Planner interface.
func (o *Optimizer) AddTraitDef(def opt.TraitDef) bool {
	for _, d := range o.traitDefs {
		if d == def {
			return false
		}
	}
	o.traitDefs = append(o.traitDefs, def)
	o.emptyTraits = o.emptyTraits.Plus(def.Default())
	for _, r := range o.rules {
		if cr, ok := r.(opt.ConverterRule); ok {
			def.RegisterConverterRule(o, cr)
		}
	}
	return true
}

// ClearTraitDefs is part of the opt.Planner interface. It may only be called
// while the memo is empty.
func (o *Optimizer) ClearTraitDefs() {
	if len(o.subsetOf) > 0 {
		panic(errors.AssertionFailedf("cannot clear trait defs of a planner with registered expressions"))
	}
	o.traitDefs = nil
	o.emptyTraits = opt.NewEmptyTraitSet()
}

// TraitDefs is part of the opt.Planner interface.
func (o *Optimizer) TraitDefs() []opt.TraitDef { return o.traitDefs }

// EmptyTraitSet is part of the opt.Planner interface.
func (o *Optimizer) EmptyTraitSet() *opt.TraitSet { return o.emptyTraits }

// AddRule is part of the opt.Planner interface. Converter rules are also
// added to the conversion graphs of the trait families.
func (o *Optimizer) AddRule(r opt.Rule) bool {
	for _, existing := range o.rules {
		if existing.Name() == r.Name() {
			return false
		}
	}
	o.rules = append(o.rules, r)
	if d := operandDepth(r.Operand()); d > o.maxOperandDepth {
		o.maxOperandDepth = d
	}
	if cr, ok := r.(opt.ConverterRule); ok {
		for _, def := range o.traitDefs {
			def.RegisterConverterRule(o, cr)
		}
	}
	// Existing expressions may match the new rule.
	for _, set := range o.sets {
		if set.IsMerged() {
			continue
		}
		for _, rel := range set.Rels() {
			o.queueRuleMatches(r, rel, nil)
		}
	}
	return true
}

// RemoveRule is part of the opt.Planner interface. Pending matches of the
// rule are dropped.
func (o *Optimizer) RemoveRule(r opt.Rule) bool {
	for i, existing := range o.rules {
		if existing.Name() != r.Name() {
			continue
		}
		o.rules = append(o.rules[:i:i], o.rules[i+1:]...)
		if cr, ok := existing.(opt.ConverterRule); ok {
			for _, def := range o.traitDefs {
				def.DeregisterConverterRule(o, cr)
			}
		}
		o.dropMatches(func(m *ruleMatch) bool { return m.rule.Name() == r.Name() })
		return true
	}
	return false
}

// Rules is part of the opt.Planner interface.
func (o *Optimizer) Rules() []opt.Rule { return o.rules }

func operandDepth(op *opt.Operand) int {
	d := 0
	for _, c := range op.Children {
		if cd := operandDepth(c); cd > d {
			d = cd
		}
	}
	return d + 1
}

// AddMaterialization is part of the opt.Planner interface.
func (o *Optimizer) AddMaterialization(m *opt.Materialization) {
	o.materializations = append(o.materializations, m)
}

// Materializations is part of the opt.Planner interface.
func (o *Optimizer) Materializations() []*opt.Materialization { return o.materializations }

// AddLattice is part of the opt.Planner interface.
func (o *Optimizer) AddLattice(l *opt.Lattice) {
	o.lattices = append(o.lattices, l)
	if l.Materialization != nil {
		o.AddMaterialization(l.Materialization)
	}
}

// Lattice is part of the opt.Planner interface.
func (o *Optimizer) Lattice(t cat.Table) (*opt.Lattice, bool) {
	for _, l := range o.lattices {
		if l.StarTable != nil && cat.Table(l.StarTable) == t {
			return l, true
		}
	}
	return nil, false
}

// SetImportance is part of the opt.Planner interface. Zero importance drops
// the pending matches that involve rel.
func (o *Optimizer) SetImportance(rel opt.RelNode, importance float64) {
	if r, ok := o.rels[rel]; ok {
		rel = r
	}
	o.importance[rel] = importance
	if importance == 0 {
		o.dropMatches(func(m *ruleMatch) bool {
			for _, r := range m.rels {
				if r == rel {
					return true
				}
			}
			return false
		})
	}
}

func (o *Optimizer) importanceOf(rel opt.RelNode) float64 {
	if imp, ok := o.importance[rel]; ok {
		return imp
	}
	return defaultImportance.Get(o.sv)
}

// RelMetadataTimestamp is part of the opt.Planner interface. The timestamp
// of a subset changes whenever its best expression changes; that of any
// other expression is the latest of its own subset and its inputs.
func (o *Optimizer) RelMetadataTimestamp(rel opt.RelNode) int64 {
	if sub, ok := rel.(*memo.Subset); ok {
		return sub.Canonical().Timestamp
	}
	var ts int64
	if sub := o.getSubset(rel); sub != nil {
		ts = sub.Timestamp
	}
	for _, in := range rel.Inputs() {
		if t := o.RelMetadataTimestamp(in); t > ts {
			ts = t
		}
	}
	return ts
}

func (o *Optimizer) nextTimestamp() int64 {
	o.timestamp++
	return o.timestamp
}

// Cost is part of the opt.Planner interface. Expressions in the NONE
// convention and abstract converters cost infinitely much; the cost of a
// subset is that of its best expression.
func (o *Optimizer) Cost(rel opt.RelNode) opt.Cost {
	if sub, ok := rel.(*memo.Subset); ok {
		return sub.Canonical().BestCost
	}
	if conv, ok := rel.TraitSet().Convention(); ok && conv.IsNone() {
		return o.costFactory.Infinite()
	}
	c := rel.SelfCost(o.costFactory, o.mq)
	if c.IsInfinite() {
		return c
	}
	for _, in := range rel.Inputs() {
		c.Add(o.Cost(in))
	}
	return c
}

// CostFactory is part of the opt.Planner interface.
func (o *Optimizer) CostFactory() opt.CostFactory { return o.costFactory }

// Executor is part of the opt.Planner interface.
func (o *Optimizer) Executor() opt.Executor { return o.executor }

// SetExecutor is part of the opt.Planner interface.
func (o *Optimizer) SetExecutor(e opt.Executor) { o.executor = e }

// ChangeTraits is part of the opt.Planner interface. It registers rel and
// returns the subset of rel's equivalence class with the given traits; the
// conversion itself happens during the search.
func (o *Optimizer) ChangeTraits(rel opt.RelNode, traits *opt.TraitSet) opt.RelNode {
	if rel.TraitSet().Satisfies(traits) {
		panic(errors.AssertionFailedf("%s already satisfies traits %s", rel.Op(), traits))
	}
	sub := o.ensureRegistered(rel, nil)
	if sub.TraitSet().Equals(traits) {
		return sub
	}
	return o.getOrCreateSubset(sub.Set(), traits)
}

// ChangeTraitsUsingConverters is part of the opt.TraitConverter interface.
// Each intermediate result is registered as equivalent to its input.
func (o *Optimizer) ChangeTraitsUsingConverters(
	rel opt.RelNode, traits *opt.TraitSet,
) (opt.RelNode, bool) {
	return opt.ConvertTraits(o, rel, traits, allowInfiniteCostConverters.Get(o.sv),
		func(converted, from opt.RelNode) opt.RelNode {
			if converted == from {
				return converted
			}
			o.ensureRegistered(converted, from)
			return converted
		})
}

// Clear is part of the opt.Planner interface. Trait defs are kept.
func (o *Optimizer) Clear() {
	for _, r := range o.rules {
		if cr, ok := r.(opt.ConverterRule); ok {
			for _, def := range o.traitDefs {
				def.DeregisterConverterRule(o, cr)
			}
		}
	}
	o.rules = nil
	o.maxOperandDepth = 0
	o.materializations = nil
	o.lattices = nil
	o.init()
}

// Close releases the per-planner state kept by the trait families, such as
// convention conversion graphs.
func (o *Optimizer) Close() {
	for _, def := range o.traitDefs {
		if cd, ok := def.(*opt.ConventionTraitDef); ok {
			cd.ReleasePlanner(o)
		}
	}
}
