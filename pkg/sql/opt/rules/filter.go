// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rules

import (
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
)

// FilterMerge merges two adjacent filters into one.
var FilterMerge = opt.NewRule(
	"FilterMerge",
	matchLogical(rel.FilterOp, matchLogical(rel.FilterOp, opt.MatchAny())),
	func(call *opt.RuleCall) {
		top := call.Rel(0).(*rel.Filter)
		bottom := call.Rel(1).(*rel.Filter)
		cond := rex.And(bottom.Condition, top.Condition)
		if cond == nil {
			call.TransformTo(bottom.Input())
			return
		}
		call.TransformTo(rel.NewFilter(top.Cluster(), top.TraitSet(), bottom.Input(), cond))
	},
)

// FilterReduceExpressions folds the constant parts of a filter condition
// with the planner's executor. A filter that is always true is removed, and
// one that is never true becomes an empty Values.
var FilterReduceExpressions = opt.NewRule(
	"FilterReduceExpressions",
	matchLogical(rel.FilterOp, opt.MatchAny()),
	func(call *opt.RuleCall) {
		exec := call.Planner().Executor()
		if exec == nil {
			return
		}
		filter := call.Rel(0).(*rel.Filter)
		conjuncts := rex.Conjunctions(filter.Condition)
		if len(conjuncts) == 0 {
			call.TransformTo(filter.Input())
			return
		}
		reduced := exec.Reduce(conjuncts)
		changed := false
		for i := range conjuncts {
			if !rex.Equal(conjuncts[i], reduced[i]) {
				changed = true
			}
			if rex.IsAlwaysFalse(reduced[i]) {
				call.TransformTo(rel.NewValues(
					filter.Cluster(), filter.TraitSet(), filter.RowType(), nil,
				))
				return
			}
		}
		if !changed {
			return
		}
		cond := rex.And(reduced...)
		if cond == nil {
			call.TransformTo(filter.Input())
			return
		}
		call.TransformTo(rel.NewFilter(filter.Cluster(), filter.TraitSet(), filter.Input(), cond))
	},
)
