// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rules

import (
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
)

// ExpandConversion replaces an abstract converter by a chain of concrete
// converters, one trait family at a time. It only fires in planners that
// implement opt.TraitConverter.
var ExpandConversion = opt.NewRule(
	"ExpandConversion",
	opt.MatchOp(rel.AbstractConverterOp),
	func(call *opt.RuleCall) {
		tc, ok := call.Planner().(opt.TraitConverter)
		if !ok {
			return
		}
		conv := call.Rel(0).(*rel.AbstractConverter)
		if converted, ok := tc.ChangeTraitsUsingConverters(conv.Input(), conv.TraitSet()); ok {
			call.TransformTo(converted)
		}
	},
)

// NewConventionRule returns a converter rule that moves nodes with operator
// op from one convention into another. The inputs of the converted node are
// asked for the new convention through the planner, so the whole subtree
// ends up in it. The conversion fails if an input cannot be converted.
func NewConventionRule(op string, from, to opt.Convention) opt.ConverterRule {
	return opt.NewConverterRule(
		from.Name()+"To"+to.Name()+op+"Rule", op, from, to, true,
		func(n opt.RelNode) (opt.RelNode, bool) {
			if n.Op() != op {
				return nil, false
			}
			p := n.Cluster().Planner()
			inputs := make([]opt.RelNode, len(n.Inputs()))
			for i, in := range n.Inputs() {
				want := in.TraitSet().ReplaceTrait(to)
				if in.TraitSet().Satisfies(want) {
					inputs[i] = in
					continue
				}
				inputs[i] = p.ChangeTraits(in, want)
				if !inputs[i].TraitSet().Satisfies(want) {
					return nil, false
				}
			}
			return n.Copy(n.TraitSet().ReplaceTrait(to), inputs), true
		},
	)
}

// NewConventionRules returns a convention rule for each operator the target
// convention executes, out of ops.
func NewConventionRules(from, to opt.Convention, ops ...string) []opt.Rule {
	var res []opt.Rule
	for _, op := range ops {
		if to.Executes(op) {
			res = append(res, NewConventionRule(op, from, to))
		}
	}
	return res
}
