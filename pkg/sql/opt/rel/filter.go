// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rel

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
	"github.com/cockroachdb/polyopt/pkg/sql/types"
)

// Filter returns the input rows for which Condition is true.
type Filter struct {
	base
	Condition opt.ScalarExpr
}

var _ opt.RelNode = (*Filter)(nil)

// NewFilter returns a filter of input. The condition must be boolean.
func NewFilter(
	cluster *opt.Cluster, traits *opt.TraitSet, input opt.RelNode, cond opt.ScalarExpr,
) *Filter {
	if cond == nil {
		panic(errors.AssertionFailedf("filter requires a condition"))
	}
	if !cond.Type().Equivalent(types.Bool) {
		panic(errors.AssertionFailedf("filter condition %s has type %s", cond, cond.Type()))
	}
	n := &Filter{Condition: cond}
	n.init(cluster, traits, input.RowType(), input)
	finish(n, &n.base)
	return n
}

// NewFilterOrInput returns a filter of input by the conjunction of conds, or
// input itself if there are no conditions.
func NewFilterOrInput(cluster *opt.Cluster, input opt.RelNode, conds ...opt.ScalarExpr) opt.RelNode {
	cond := rex.And(conds...)
	if cond == nil {
		return input
	}
	return NewFilter(cluster, nil, input, cond)
}

// Input returns the filtered expression.
func (n *Filter) Input() opt.RelNode { return n.input() }

// Op is part of the opt.RelNode interface.
func (n *Filter) Op() string { return FilterOp }

// Attrs is part of the opt.RelNode interface.
func (n *Filter) Attrs() string { return "condition=" + n.Condition.String() }

// Copy is part of the opt.RelNode interface.
func (n *Filter) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	return NewFilter(n.cluster, traits, inputs[0], n.Condition)
}

// Accept is part of the opt.RelNode interface.
func (n *Filter) Accept(s opt.RelShuttle) opt.RelNode { return s.Visit(n) }

// EstimateRowCount is part of the opt.RelNode interface.
func (n *Filter) EstimateRowCount(mq opt.RowCountQuery) float64 {
	return n.inputRows(mq, 0) * rex.Selectivity(n.Condition)
}

// SelfCost is part of the opt.RelNode interface.
func (n *Filter) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	rows := n.inputRows(mq, 0)
	return f.MakeCost(rows, rows, 0)
}
