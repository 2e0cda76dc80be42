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

// JoinProjectTransposeLeft pulls a projection on the left side of an inner
// join above the join:
//
//	Join(Project(x), y) => Project(Join(x, y))
var JoinProjectTransposeLeft = opt.NewRule(
	"JoinProjectTransposeLeft",
	matchInnerJoin(matchLogical(rel.ProjectOp, opt.MatchAny()), opt.MatchAny()),
	func(call *opt.RuleCall) {
		join := call.Rel(0).(*rel.Join)
		proj := call.Rel(1).(*rel.Project)
		x, y := proj.Input(), join.Right()
		projWidth, xWidth := len(proj.Exprs), x.RowType().Len()

		cond := rex.Replace(join.Condition, func(e opt.ScalarExpr) (opt.ScalarExpr, bool) {
			r, ok := e.(*rex.InputRef)
			if !ok {
				return nil, false
			}
			if r.Index < projWidth {
				return proj.Exprs[r.Index], true
			}
			return rex.NewInputRef(r.Index-projWidth+xWidth, r.Typ), true
		})
		newJoin := rel.NewJoin(join.Cluster(), join.TraitSet(), x, y, rel.InnerJoin, cond)

		exprs := make([]opt.ScalarExpr, 0, join.RowType().Len())
		exprs = append(exprs, proj.Exprs...)
		for i, f := range y.RowType().Fields {
			exprs = append(exprs, rex.NewInputRef(xWidth+i, f.Type))
		}
		call.TransformTo(rel.NewProject(
			join.Cluster(), join.TraitSet(), newJoin, exprs, join.RowType().Names(),
		))
	},
)

// JoinProjectTransposeRight pulls a projection on the right side of an
// inner join above the join:
//
//	Join(x, Project(y)) => Project(Join(x, y))
var JoinProjectTransposeRight = opt.NewRule(
	"JoinProjectTransposeRight",
	matchInnerJoin(opt.MatchAny(), matchLogical(rel.ProjectOp, opt.MatchAny())),
	func(call *opt.RuleCall) {
		join := call.Rel(0).(*rel.Join)
		proj := call.Rel(2).(*rel.Project)
		x, y := join.Left(), proj.Input()
		xWidth := x.RowType().Len()

		cond := rex.Replace(join.Condition, func(e opt.ScalarExpr) (opt.ScalarExpr, bool) {
			r, ok := e.(*rex.InputRef)
			if !ok || r.Index < xWidth {
				return nil, false
			}
			return rex.Shift(proj.Exprs[r.Index-xWidth], xWidth), true
		})
		newJoin := rel.NewJoin(join.Cluster(), join.TraitSet(), x, y, rel.InnerJoin, cond)

		exprs := make([]opt.ScalarExpr, 0, join.RowType().Len())
		for i, f := range x.RowType().Fields {
			exprs = append(exprs, rex.NewInputRef(i, f.Type))
		}
		for _, e := range proj.Exprs {
			exprs = append(exprs, rex.Shift(e, xWidth))
		}
		call.TransformTo(rel.NewProject(
			join.Cluster(), join.TraitSet(), newJoin, exprs, join.RowType().Names(),
		))
	},
)

// FilterIntoJoin pushes the conjuncts of a filter above an inner join, and
// of the join condition, as far down as they go. Conjuncts that reference
// only one side filter that side; the rest form the join condition.
var FilterIntoJoin = opt.NewRule(
	"FilterIntoJoin",
	matchLogical(rel.FilterOp, matchInnerJoin(opt.MatchAny(), opt.MatchAny())),
	func(call *opt.RuleCall) {
		filter := call.Rel(0).(*rel.Filter)
		join := call.Rel(1).(*rel.Join)
		left, right := join.Left(), join.Right()
		leftWidth := left.RowType().Len()

		var leftConds, rightConds, joinConds []opt.ScalarExpr
		conjuncts := append(rex.Conjunctions(filter.Condition), rex.Conjunctions(join.Condition)...)
		for _, c := range conjuncts {
			cols := rex.InputRefs(c).Ordered()
			switch {
			case len(cols) == 0:
				joinConds = append(joinConds, c)
			case cols[0] >= leftWidth:
				rightConds = append(rightConds, rex.Shift(c, -leftWidth))
			case cols[len(cols)-1] < leftWidth:
				leftConds = append(leftConds, c)
			default:
				joinConds = append(joinConds, c)
			}
		}

		cluster := join.Cluster()
		call.TransformTo(rel.NewJoin(
			cluster,
			filter.TraitSet(),
			rel.NewFilterOrInput(cluster, left, leftConds...),
			rel.NewFilterOrInput(cluster, right, rightConds...),
			rel.InnerJoin,
			rex.And(joinConds...),
		))
	},
)
