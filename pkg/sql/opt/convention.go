// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"github.com/cockroachdb/polyopt/pkg/util/syncutil"
)

// Convention is the trait family that says which engine can execute a node.
// Every expression starts out in the NONE convention, which has infinite cost
// and is never part of a successful plan; converter rules move expressions
// into concrete conventions.
type Convention interface {
	Trait

	// Name returns the name of the convention.
	Name() string

	// IsNone returns whether this is the NONE convention.
	IsNone() bool

	// Executes returns whether the convention can run nodes with the given
	// operator.
	Executes(op string) bool

	// CanConvertConvention returns whether the convention knows how to
	// convert its nodes into the given convention without rules.
	CanConvertConvention(to Convention) bool

	// UseAbstractConvertersForConversion returns whether the planner should
	// insert an abstract converter when changing from one trait set to the
	// other, so that the other trait families are reconciled separately from
	// the change of convention.
	UseAbstractConvertersForConversion(from, to *TraitSet) bool
}

// ConventionSpec describes a concrete convention.
type ConventionSpec struct {
	// Name identifies the convention. Conventions of one trait def are
	// canonicalized by name.
	Name string
	// Ops lists the operators the engine can execute. An empty list means
	// the engine executes every operator.
	Ops []string
	// ConvertibleTo lists conventions this one converts into directly.
	ConvertibleTo []string
	// AbstractConverters requests abstract converters for conversions into
	// this convention.
	AbstractConverters bool
	// Rules are added to a planner the first time it registers a node in
	// this convention.
	Rules []Rule
}

// ConventionImpl is the data-only implementation of Convention.
type ConventionImpl struct {
	def         *ConventionTraitDef
	spec        ConventionSpec
	ops         map[string]struct{}
	convertible map[string]struct{}
	none        bool
}

var _ Convention = (*ConventionImpl)(nil)

// TraitDef is part of the Trait interface.
func (c *ConventionImpl) TraitDef() TraitDef { return c.def }

// Satisfies is part of the Trait interface. Conventions are unordered, so a
// convention only satisfies itself.
func (c *ConventionImpl) Satisfies(required Trait) bool { return Trait(c) == required }

// Register is part of the Trait interface.
func (c *ConventionImpl) Register(p Planner) {
	for _, r := range c.spec.Rules {
		p.AddRule(r)
	}
}

// String is part of the Trait interface.
func (c *ConventionImpl) String() string { return c.spec.Name }

// Name is part of the Convention interface.
func (c *ConventionImpl) Name() string { return c.spec.Name }

// IsNone is part of the Convention interface.
func (c *ConventionImpl) IsNone() bool { return c.none }

// Executes is part of the Convention interface.
func (c *ConventionImpl) Executes(op string) bool {
	if c.none {
		return false
	}
	if len(c.ops) == 0 {
		return true
	}
	_, ok := c.ops[op]
	return ok
}

// CanConvertConvention is part of the Convention interface.
func (c *ConventionImpl) CanConvertConvention(to Convention) bool {
	_, ok := c.convertible[to.Name()]
	return ok
}

// UseAbstractConvertersForConversion is part of the Convention interface.
func (c *ConventionImpl) UseAbstractConvertersForConversion(from, to *TraitSet) bool {
	return c.spec.AbstractConverters
}

// ConventionTraitDef is the family of conventions. It owns the NONE
// convention and, for every planner it is registered with, a graph of the
// converter rules between conventions. It is constructed per planner or
// per session; there is no process-wide instance.
type ConventionTraitDef struct {
	BaseTraitDef
	none *ConventionImpl

	mu struct {
		syncutil.Mutex
		conversions map[Planner]*conversionData
	}
}

var _ TraitDef = (*ConventionTraitDef)(nil)

// NewConventionTraitDef creates a convention family with its NONE value.
func NewConventionTraitDef() *ConventionTraitDef {
	d := &ConventionTraitDef{}
	d.none = d.Canonize(&ConventionImpl{def: d, spec: ConventionSpec{Name: "NONE"}, none: true}).(*ConventionImpl)
	return d
}

// NewConvention returns the canonical convention described by spec.
func (d *ConventionTraitDef) NewConvention(spec ConventionSpec) Convention {
	c := &ConventionImpl{def: d, spec: spec}
	if len(spec.Ops) > 0 {
		c.ops = make(map[string]struct{}, len(spec.Ops))
		for _, op := range spec.Ops {
			c.ops[op] = struct{}{}
		}
	}
	c.convertible = make(map[string]struct{}, len(spec.ConvertibleTo))
	for _, to := range spec.ConvertibleTo {
		c.convertible[to] = struct{}{}
	}
	return d.Canonize(c).(Convention)
}

// None returns the NONE convention of this family.
func (d *ConventionTraitDef) None() Convention { return d.none }

// Name is part of the TraitDef interface.
func (d *ConventionTraitDef) Name() string { return "convention" }

// Multiple is part of the TraitDef interface.
func (d *ConventionTraitDef) Multiple() bool { return false }

// Default is part of the TraitDef interface.
func (d *ConventionTraitDef) Default() Trait { return d.none }

// CanConvert is part of the TraitDef interface.
func (d *ConventionTraitDef) CanConvert(p Planner, from, to Trait) bool {
	fromConv, toConv := from.(Convention), to.(Convention)
	if fromConv.CanConvertConvention(toConv) {
		return true
	}
	data := d.conversionData(p)
	_, ok := data.shortestPath(fromConv, toConv)
	return ok
}

// Convert is part of the TraitDef interface. It tries each path of converter
// rules from rel's convention to the target, shortest first. A path whose
// intermediate result has infinite cost is abandoned unless
// allowInfiniteCostConverters is set.
func (d *ConventionTraitDef) Convert(
	p Planner, rel RelNode, to Trait, allowInfiniteCostConverters bool,
) (RelNode, bool) {
	toConv := to.(Convention)
	fromConv, ok := rel.TraitSet().Convention()
	if !ok {
		return nil, false
	}
	if fromConv.Satisfies(toConv) {
		return rel, true
	}
	data := d.conversionData(p)
nextPath:
	for _, path := range data.paths(fromConv, toConv) {
		converted := rel
		for i := 1; i < len(path); i++ {
			if !allowInfiniteCostConverters && p.Cost(converted).IsInfinite() {
				continue nextPath
			}
			next, ok := data.changeConvention(converted, path[i-1], path[i])
			if !ok {
				continue nextPath
			}
			converted = next
		}
		return converted, true
	}
	return nil, false
}

// RegisterConverterRule is part of the TraitDef interface.
func (d *ConventionTraitDef) RegisterConverterRule(p Planner, r ConverterRule) {
	if r.InTrait().TraitDef() != TraitDef(d) {
		return
	}
	d.conversionData(p).addRule(r)
}

// DeregisterConverterRule is part of the TraitDef interface.
func (d *ConventionTraitDef) DeregisterConverterRule(p Planner, r ConverterRule) {
	if r.InTrait().TraitDef() != TraitDef(d) {
		return
	}
	d.conversionData(p).removeRule(r)
}

// ReleasePlanner drops the conversion graph kept for p.
func (d *ConventionTraitDef) ReleasePlanner(p Planner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.mu.conversions, p)
}

func (d *ConventionTraitDef) conversionData(p Planner) *conversionData {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mu.conversions == nil {
		d.mu.conversions = make(map[Planner]*conversionData)
	}
	data, ok := d.mu.conversions[p]
	if !ok {
		data = &conversionData{}
		d.mu.conversions[p] = data
	}
	return data
}

type conversionArc struct {
	from, to Convention
	rules    []ConverterRule
}

// conversionData is the graph of converter rules registered with one
// planner. Arcs keep registration order so that path enumeration is
// deterministic.
type conversionData struct {
	arcs []*conversionArc
}

func (c *conversionData) arc(from, to Convention) *conversionArc {
	for _, a := range c.arcs {
		if a.from == from && a.to == to {
			return a
		}
	}
	return nil
}

func (c *conversionData) addRule(r ConverterRule) {
	from, to := r.InTrait().(Convention), r.OutTrait().(Convention)
	a := c.arc(from, to)
	if a == nil {
		a = &conversionArc{from: from, to: to}
		c.arcs = append(c.arcs, a)
	}
	a.rules = append(a.rules, r)
}

func (c *conversionData) removeRule(r ConverterRule) {
	for i, a := range c.arcs {
		for j, existing := range a.rules {
			if existing == r {
				a.rules = append(a.rules[:j:j], a.rules[j+1:]...)
				if len(a.rules) == 0 {
					c.arcs = append(c.arcs[:i:i], c.arcs[i+1:]...)
				}
				return
			}
		}
	}
}

func (c *conversionData) successors(from Convention) []Convention {
	var res []Convention
	for _, a := range c.arcs {
		if a.from == from {
			res = append(res, a.to)
		}
	}
	return res
}

// shortestPath returns the conventions along a shortest path of arcs from
// one convention to another, both ends included.
func (c *conversionData) shortestPath(from, to Convention) ([]Convention, bool) {
	prev := map[Convention]Convention{from: nil}
	queue := []Convention{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			var path []Convention
			for n := to; n != nil; n = prev[n] {
				path = append([]Convention{n}, path...)
			}
			return path, true
		}
		for _, next := range c.successors(cur) {
			if _, seen := prev[next]; !seen {
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return nil, false
}

// paths returns every simple path from one convention to another, shortest
// first.
func (c *conversionData) paths(from, to Convention) [][]Convention {
	var res [][]Convention
	var walk func(path []Convention)
	walk = func(path []Convention) {
		cur := path[len(path)-1]
		if cur == to {
			res = append(res, append([]Convention(nil), path...))
			return
		}
		for _, next := range c.successors(cur) {
			seen := false
			for _, p := range path {
				if p == next {
					seen = true
					break
				}
			}
			if !seen {
				walk(append(path, next))
			}
		}
	}
	walk([]Convention{from})
	// Stable sort by length keeps the registration order among equals.
	for i := 1; i < len(res); i++ {
		for j := i; j > 0 && len(res[j]) < len(res[j-1]); j-- {
			res[j], res[j-1] = res[j-1], res[j]
		}
	}
	return res
}

func (c *conversionData) changeConvention(rel RelNode, from, to Convention) (RelNode, bool) {
	a := c.arc(from, to)
	if a == nil {
		return nil, false
	}
	for _, r := range a.rules {
		if converted, ok := r.Convert(rel); ok {
			return converted, true
		}
	}
	return nil, false
}
