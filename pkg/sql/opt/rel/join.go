// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rel

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
)

// JoinType says which unmatched rows a join keeps.
type JoinType int

const (
	// InnerJoin keeps only matched pairs.
	InnerJoin JoinType = iota
	// LeftJoin also keeps unmatched left rows.
	LeftJoin
	// RightJoin also keeps unmatched right rows.
	RightJoin
	// FullJoin keeps unmatched rows of both sides.
	FullJoin
)

var joinTypeNames = [...]string{
	InnerJoin: "inner",
	LeftJoin:  "left",
	RightJoin: "right",
	FullJoin:  "full",
}

func (t JoinType) String() string { return joinTypeNames[t] }

// ParseJoinType returns the join type with the given name.
func ParseJoinType(name string) (JoinType, bool) {
	for t, n := range joinTypeNames {
		if n == name {
			return JoinType(t), true
		}
	}
	return 0, false
}

// GeneratesNullsOnLeft returns whether left columns of the output may be
// NULL because a right row had no match.
func (t JoinType) GeneratesNullsOnLeft() bool { return t == RightJoin || t == FullJoin }

// GeneratesNullsOnRight returns whether right columns of the output may be
// NULL because a left row had no match.
func (t JoinType) GeneratesNullsOnRight() bool { return t == LeftJoin || t == FullJoin }

// Join combines the rows of two inputs. Its output columns are the left
// columns followed by the right columns. Condition refers to those output
// columns; a nil condition is TRUE.
type Join struct {
	base
	Type      JoinType
	Condition opt.ScalarExpr
}

var _ opt.RelNode = (*Join)(nil)

// NewJoin returns a join of left and right.
func NewJoin(
	cluster *opt.Cluster,
	traits *opt.TraitSet,
	left, right opt.RelNode,
	typ JoinType,
	cond opt.ScalarExpr,
) *Join {
	if cond != nil && rex.IsAlwaysTrue(cond) {
		cond = nil
	}
	width := left.RowType().Len() + right.RowType().Len()
	if cond != nil {
		if col, ok := rex.InputRefs(cond).Next(width); ok {
			panic(errors.AssertionFailedf("join condition %s references column $%d of %d", cond, col, width))
		}
	}
	leftType, rightType := left.RowType(), right.RowType()
	if typ.GeneratesNullsOnLeft() {
		leftType = nullable(leftType)
	}
	if typ.GeneratesNullsOnRight() {
		rightType = nullable(rightType)
	}
	n := &Join{Type: typ, Condition: cond}
	n.init(cluster, traits, leftType.Concat(rightType), left, right)
	finish(n, &n.base)
	return n
}

func nullable(rt opt.RowType) opt.RowType {
	fields := append([]opt.Field(nil), rt.Fields...)
	for i := range fields {
		fields[i].Nullable = true
	}
	return opt.MakeRowType(fields...)
}

// Left returns the left input.
func (n *Join) Left() opt.RelNode { return n.inputs[0] }

// Right returns the right input.
func (n *Join) Right() opt.RelNode { return n.inputs[1] }

// Op is part of the opt.RelNode interface.
func (n *Join) Op() string { return JoinOp }

// Attrs is part of the opt.RelNode interface.
func (n *Join) Attrs() string {
	cond := "true"
	if n.Condition != nil {
		cond = n.Condition.String()
	}
	return "type=" + n.Type.String() + ", condition=" + cond
}

// Copy is part of the opt.RelNode interface.
func (n *Join) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	return NewJoin(n.cluster, traits, inputs[0], inputs[1], n.Type, n.Condition)
}

// Accept is part of the opt.RelNode interface.
func (n *Join) Accept(s opt.RelShuttle) opt.RelNode { return s.Visit(n) }

// EstimateRowCount is part of the opt.RelNode interface.
func (n *Join) EstimateRowCount(mq opt.RowCountQuery) float64 {
	left, right := n.inputRows(mq, 0), n.inputRows(mq, 1)
	rows := left * right * rex.Selectivity(n.Condition)
	switch n.Type {
	case LeftJoin:
		rows = max(rows, left)
	case RightJoin:
		rows = max(rows, right)
	case FullJoin:
		rows = max(rows, left+right)
	}
	return rows
}

// SelfCost is part of the opt.RelNode interface.
func (n *Join) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	left, right := n.inputRows(mq, 0), n.inputRows(mq, 1)
	return f.MakeCost(mq.RowCount(n), left+right, 0)
}
