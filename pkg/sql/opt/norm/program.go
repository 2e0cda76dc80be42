// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm

import "github.com/cockroachdb/polyopt/pkg/sql/opt"

// MatchOrder is the order in which the planner visits nodes when looking for
// rule matches.
type MatchOrder int8

const (
	// MatchOrderArbitrary visits nodes in whatever order is cheapest, which
	// is currently the same as MatchOrderDepthFirst.
	MatchOrderArbitrary MatchOrder = iota
	// MatchOrderDepthFirst visits a node, then its inputs.
	MatchOrderDepthFirst
	// MatchOrderBottomUp visits inputs before the nodes that consume them.
	MatchOrderBottomUp
	// MatchOrderTopDown visits consumers before their inputs.
	MatchOrderTopDown
)

var matchOrderNames = [...]string{
	MatchOrderArbitrary:  "arbitrary",
	MatchOrderDepthFirst: "depth-first",
	MatchOrderBottomUp:   "bottom-up",
	MatchOrderTopDown:    "top-down",
}

func (o MatchOrder) String() string { return matchOrderNames[o] }

// ParseMatchOrder returns the match order with the given name.
func ParseMatchOrder(name string) (MatchOrder, bool) {
	for i, n := range matchOrderNames {
		if n == name {
			return MatchOrder(i), true
		}
	}
	return 0, false
}

type instruction interface {
	instruction()
}

// ruleInstructions apply a group of rules until none of them matches.
type ruleInstructions struct {
	rules []opt.Rule
}

type matchOrderInstruction struct {
	order MatchOrder
}

type matchLimitInstruction struct {
	limit int
}

func (*ruleInstructions) instruction()      {}
func (*matchOrderInstruction) instruction() {}
func (*matchLimitInstruction) instruction() {}

// Program is a sequence of rule groups, each applied to a fixed point in
// turn, interleaved with changes to the match order and match limit.
type Program struct {
	instructions []instruction
}

// Rules returns every rule of the program, in order of appearance.
func (p *Program) Rules() []opt.Rule {
	var res []opt.Rule
	for _, in := range p.instructions {
		if r, ok := in.(*ruleInstructions); ok {
			res = append(res, r.rules...)
		}
	}
	return res
}

// ProgramBuilder builds a Program.
type ProgramBuilder struct {
	instructions []instruction
}

// AddRuleCollection adds a group of rules that are applied together until
// none of them matches.
func (b *ProgramBuilder) AddRuleCollection(rules ...opt.Rule) *ProgramBuilder {
	b.instructions = append(b.instructions, &ruleInstructions{rules: rules})
	return b
}

// AddRuleInstance adds a single rule, applied until it no longer matches.
func (b *ProgramBuilder) AddRuleInstance(rule opt.Rule) *ProgramBuilder {
	return b.AddRuleCollection(rule)
}

// AddMatchOrder sets the match order of the instructions that follow.
func (b *ProgramBuilder) AddMatchOrder(order MatchOrder) *ProgramBuilder {
	b.instructions = append(b.instructions, &matchOrderInstruction{order: order})
	return b
}

// AddMatchLimit sets the maximum number of transformations of each rule
// group that follows. Zero means no limit.
func (b *ProgramBuilder) AddMatchLimit(limit int) *ProgramBuilder {
	b.instructions = append(b.instructions, &matchLimitInstruction{limit: limit})
	return b
}

// Build returns the program. The builder may be reused afterwards.
func (b *ProgramBuilder) Build() *Program {
	return &Program{instructions: append([]instruction(nil), b.instructions...)}
}
