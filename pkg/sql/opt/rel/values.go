// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rel

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
)

// Values returns literal rows.
type Values struct {
	base
	Rows [][]*rex.Literal
}

var _ opt.RelNode = (*Values)(nil)

// NewValues returns the given rows, which must each have one literal per
// column of rowType.
func NewValues(
	cluster *opt.Cluster, traits *opt.TraitSet, rowType opt.RowType, rows [][]*rex.Literal,
) *Values {
	for _, row := range rows {
		if len(row) != rowType.Len() {
			panic(errors.AssertionFailedf("values row has %d columns, expected %d", len(row), rowType.Len()))
		}
	}
	n := &Values{Rows: rows}
	n.init(cluster, traits, rowType)
	finish(n, &n.base)
	return n
}

// Op is part of the opt.RelNode interface.
func (n *Values) Op() string { return ValuesOp }

// Attrs is part of the opt.RelNode interface.
func (n *Values) Attrs() string {
	var b strings.Builder
	b.WriteString("rows=[")
	for i, row := range n.Rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('[')
		for j, l := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(l.String())
		}
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}

// Copy is part of the opt.RelNode interface.
func (n *Values) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	return NewValues(n.cluster, traits, n.rowType, n.Rows)
}

// Accept is part of the opt.RelNode interface.
func (n *Values) Accept(s opt.RelShuttle) opt.RelNode { return s.Visit(n) }

// EstimateRowCount is part of the opt.RelNode interface.
func (n *Values) EstimateRowCount(opt.RowCountQuery) float64 { return float64(len(n.Rows)) }

// SelfCost is part of the opt.RelNode interface.
func (n *Values) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	return f.MakeCost(float64(len(n.Rows)), 1, 0)
}
