// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rel

import (
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
)

// Scan reads every row of a table.
type Scan struct {
	base
	Table cat.Table
}

var _ opt.RelNode = (*Scan)(nil)

// NewScan returns a scan of table. A nil traits uses the cluster's default
// traits.
func NewScan(cluster *opt.Cluster, traits *opt.TraitSet, table cat.Table) *Scan {
	n := &Scan{Table: table}
	n.init(cluster, traits, TableRowType(table))
	finish(n, &n.base)
	return n
}

// TableRowType returns the row type of a table's columns.
func TableRowType(table cat.Table) opt.RowType {
	fields := make([]opt.Field, table.ColumnCount())
	for i := range fields {
		c := table.Column(i)
		fields[i] = opt.Field{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return opt.MakeRowType(fields...)
}

// Op is part of the opt.RelNode interface.
func (n *Scan) Op() string { return ScanOp }

// Attrs is part of the opt.RelNode interface.
func (n *Scan) Attrs() string { return "table=" + cat.FormatQualifiedName(n.Table) }

// Copy is part of the opt.RelNode interface.
func (n *Scan) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	return NewScan(n.cluster, traits, n.Table)
}

// Accept is part of the opt.RelNode interface.
func (n *Scan) Accept(s opt.RelShuttle) opt.RelNode { return s.Visit(n) }

// EstimateRowCount is part of the opt.RelNode interface.
func (n *Scan) EstimateRowCount(opt.RowCountQuery) float64 { return n.Table.RowCount() }

// SelfCost is part of the opt.RelNode interface.
func (n *Scan) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	rows := n.Table.RowCount()
	return f.MakeCost(rows, rows+1, 0)
}
