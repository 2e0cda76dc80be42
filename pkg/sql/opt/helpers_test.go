// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"strings"

	"github.com/cockroachdb/polyopt/pkg/sql/types"
)

// colorDef is a family whose values only satisfy themselves.
type colorDef struct {
	BaseTraitDef
}

type color struct {
	def  *colorDef
	name string
}

func (d *colorDef) of(name string) Trait { return d.Canonize(&color{def: d, name: name}) }

func (d *colorDef) Name() string                          { return "color" }
func (d *colorDef) Multiple() bool                        { return false }
func (d *colorDef) Default() Trait                        { return d.of("none") }
func (d *colorDef) CanConvert(Planner, Trait, Trait) bool { return false }
func (d *colorDef) Convert(Planner, RelNode, Trait, bool) (RelNode, bool) {
	return nil, false
}

func (c *color) TraitDef() TraitDef     { return c.def }
func (c *color) Satisfies(r Trait) bool { return Trait(c) == r }
func (c *color) Register(Planner)       {}
func (c *color) String() string         { return c.name }

// orderDef is a multiple family of column orderings. An ordering satisfies
// any of its prefixes.
type orderDef struct {
	BaseTraitDef
}

type order struct {
	def  *orderDef
	cols string
}

func (d *orderDef) of(cols string) MultipleTrait {
	return d.Canonize(&order{def: d, cols: cols}).(MultipleTrait)
}

func (d *orderDef) Name() string                          { return "order" }
func (d *orderDef) Multiple() bool                        { return true }
func (d *orderDef) Default() Trait                        { return d.of("") }
func (d *orderDef) CanConvert(Planner, Trait, Trait) bool { return false }
func (d *orderDef) Convert(Planner, RelNode, Trait, bool) (RelNode, bool) {
	return nil, false
}

func (o *order) TraitDef() TraitDef { return o.def }
func (o *order) Register(Planner)   {}
func (o *order) String() string     { return "[" + o.cols + "]" }
func (o *order) IsTop() bool        { return o.cols == "" }
func (o *order) Compare(other MultipleTrait) int {
	return strings.Compare(o.cols, other.(*order).cols)
}
func (o *order) Satisfies(r Trait) bool {
	ro, ok := r.(*order)
	return ok && strings.HasPrefix(o.cols, ro.cols)
}

// testRel is a leaf relational expression.
type testRel struct {
	id     int
	name   string
	traits *TraitSet
	inputs []RelNode
	cost   Cost
}

func (r *testRel) ID() int                                  { return r.id }
func (r *testRel) Op() string                               { return r.name }
func (r *testRel) Cluster() *Cluster                        { return nil }
func (r *testRel) TraitSet() *TraitSet                      { return r.traits }
func (r *testRel) Inputs() []RelNode                        { return r.inputs }
func (r *testRel) Accept(s RelShuttle) RelNode              { return s.Visit(r) }
func (r *testRel) Attrs() string                            { return "" }
func (r *testRel) Digest() string                           { return FormatDigest(r) }
func (r *testRel) EstimateRowCount(RowCountQuery) float64   { return 1 }
func (r *testRel) SelfCost(CostFactory, RowCountQuery) Cost { return r.cost }
func (r *testRel) RowType() RowType {
	return MakeRowType(Field{Name: "x", Type: types.Int})
}
func (r *testRel) Copy(traits *TraitSet, inputs []RelNode) RelNode {
	return &testRel{id: r.id + 1000, name: r.name, traits: traits, inputs: inputs, cost: r.cost}
}

// costPlanner is a Planner that only answers Cost.
type costPlanner struct {
	Planner
	cost func(rel RelNode) Cost
}

func (p *costPlanner) Cost(rel RelNode) Cost { return p.cost(rel) }
