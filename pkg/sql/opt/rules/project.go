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

// ProjectRemove replaces a projection that outputs exactly its input
// columns by its input.
var ProjectRemove = opt.NewRule(
	"ProjectRemove",
	&opt.Operand{
		Op: rel.ProjectOp,
		Predicate: func(n opt.RelNode) bool {
			return logical(n) && n.(*rel.Project).IsTrivial()
		},
	},
	func(call *opt.RuleCall) {
		call.TransformTo(call.Rel(0).(*rel.Project).Input())
	},
)

// ProjectMerge merges two adjacent projections into one.
var ProjectMerge = opt.NewRule(
	"ProjectMerge",
	matchLogical(rel.ProjectOp, matchLogical(rel.ProjectOp, opt.MatchAny())),
	func(call *opt.RuleCall) {
		top := call.Rel(0).(*rel.Project)
		bottom := call.Rel(1).(*rel.Project)
		exprs := make([]opt.ScalarExpr, len(top.Exprs))
		for i, e := range top.Exprs {
			exprs[i] = inline(e, bottom.Exprs)
		}
		call.TransformTo(rel.NewProject(
			top.Cluster(), top.TraitSet(), bottom.Input(), exprs, top.Names,
		))
	},
)

// ProjectFilterTranspose moves a projection that only reorders or drops
// columns below the filter under it, when the filter only reads columns the
// projection keeps:
//
//	Project(Filter(x)) => Filter(Project(x))
var ProjectFilterTranspose = opt.NewRule(
	"ProjectFilterTranspose",
	matchLogical(rel.ProjectOp, matchLogical(rel.FilterOp, opt.MatchAny())),
	func(call *opt.RuleCall) {
		proj := call.Rel(0).(*rel.Project)
		filter := call.Rel(1).(*rel.Filter)
		m, ok := proj.Mapping()
		if !ok {
			return
		}
		canPermute := true
		rex.InputRefs(filter.Condition).ForEach(func(i int) {
			if _, ok := m.Target(i); !ok {
				canPermute = false
			}
		})
		if !canPermute {
			return
		}
		newProj := rel.NewProject(proj.Cluster(), nil, filter.Input(), proj.Exprs, proj.Names)
		call.TransformTo(rel.NewFilter(
			proj.Cluster(), proj.TraitSet(), newProj, rex.Permute(filter.Condition, m),
		))
	},
)

// inline replaces the column references of e by the expressions they refer
// to.
func inline(e opt.ScalarExpr, exprs []opt.ScalarExpr) opt.ScalarExpr {
	return rex.Replace(e, func(e opt.ScalarExpr) (opt.ScalarExpr, bool) {
		if r, ok := e.(*rex.InputRef); ok {
			return exprs[r.Index], true
		}
		return nil, false
	})
}
