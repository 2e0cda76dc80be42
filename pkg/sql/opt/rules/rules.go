// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package rules holds the transformation rules shared by the planners.
//
// Logical rules only match nodes in the NONE convention (or nodes built
// without a convention family), so the cost-based planner never rewrites
// the physical alternatives produced by converter rules. Rules build their
// results in the cluster of the matched root and leave traits they do not
// care about to the cluster defaults.
package rules

import (
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
)

// LeafJoinRules returns the rules that pull projections above joins and push
// filters into them, so that a query becomes a tree of joins whose leaves
// are filtered, projected scans.
func LeafJoinRules() []opt.Rule {
	return []opt.Rule{
		JoinProjectTransposeLeft,
		JoinProjectTransposeRight,
		FilterIntoJoin,
		ProjectRemove,
		ProjectMerge,
	}
}

// CleanupRules returns the rules that tidy up a plan after a materialized
// view has been substituted into it.
func CleanupRules() []opt.Rule {
	return []opt.Rule{
		ProjectFilterTranspose,
		AggregateProjectMerge,
		AggregateFilterTranspose,
	}
}

// All returns every logical rule of the package.
func All() []opt.Rule {
	res := append(LeafJoinRules(), CleanupRules()...)
	return append(res, FilterMerge, FilterReduceExpressions, ExpandConversion)
}

// logical returns whether n is a logical node.
func logical(n opt.RelNode) bool {
	conv, ok := n.TraitSet().Convention()
	return !ok || conv.IsNone()
}

// innerJoin returns whether n is a logical inner join.
func innerJoin(n opt.RelNode) bool {
	j, ok := n.(*rel.Join)
	return ok && j.Type == rel.InnerJoin && logical(n)
}

// matchLogical returns an operand for a logical node of the given operator.
func matchLogical(op string, children ...*opt.Operand) *opt.Operand {
	return &opt.Operand{Op: op, Predicate: logical, Children: children}
}

// matchInnerJoin returns an operand for a logical inner join.
func matchInnerJoin(left, right *opt.Operand) *opt.Operand {
	return &opt.Operand{Op: rel.JoinOp, Predicate: innerJoin, Children: []*opt.Operand{left, right}}
}
