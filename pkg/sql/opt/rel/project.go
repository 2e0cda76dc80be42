// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rel

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/mapping"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
)

// Project computes one output column per expression over each input row.
type Project struct {
	base
	Exprs []opt.ScalarExpr
	Names []string
}

var _ opt.RelNode = (*Project)(nil)

// NewProject returns a projection of input. Names may be nil, in which case
// column references keep their input names and other columns are named
// "expr$i".
func NewProject(
	cluster *opt.Cluster,
	traits *opt.TraitSet,
	input opt.RelNode,
	exprs []opt.ScalarExpr,
	names []string,
) *Project {
	if names == nil {
		names = make([]string, len(exprs))
		inFields := input.RowType().Fields
		for i, e := range exprs {
			if r, ok := e.(*rex.InputRef); ok && r.Index < len(inFields) {
				names[i] = inFields[r.Index].Name
			} else {
				names[i] = "expr$" + strconv.Itoa(i)
			}
		}
	}
	if len(names) != len(exprs) {
		panic(errors.AssertionFailedf("project has %d exprs but %d names", len(exprs), len(names)))
	}
	fields := make([]opt.Field, len(exprs))
	for i, e := range exprs {
		fields[i] = opt.Field{Name: names[i], Type: e.Type(), Nullable: true}
		if r, ok := e.(*rex.InputRef); ok {
			fields[i].Nullable = input.RowType().Fields[r.Index].Nullable
		}
	}
	n := &Project{Exprs: exprs, Names: names}
	n.init(cluster, traits, opt.MakeRowType(fields...), input)
	finish(n, &n.base)
	return n
}

// NewProjectOfTargets returns a projection of input that outputs the input
// columns listed in targets, in order.
func NewProjectOfTargets(cluster *opt.Cluster, input opt.RelNode, targets []int) *Project {
	fields := input.RowType().Fields
	exprs := make([]opt.ScalarExpr, len(targets))
	for i, t := range targets {
		if t < 0 || t >= len(fields) {
			panic(errors.AssertionFailedf("column %d is not an input column of %s", t, input.Op()))
		}
		exprs[i] = rex.NewInputRef(t, fields[t].Type)
	}
	return NewProject(cluster, nil, input, exprs, nil)
}

// Input returns the projected expression.
func (n *Project) Input() opt.RelNode { return n.input() }

// Op is part of the opt.RelNode interface.
func (n *Project) Op() string { return ProjectOp }

// Attrs is part of the opt.RelNode interface.
func (n *Project) Attrs() string { return "exprs=" + formatExprs(n.Exprs) }

// Copy is part of the opt.RelNode interface.
func (n *Project) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	return NewProject(n.cluster, traits, inputs[0], n.Exprs, n.Names)
}

// Accept is part of the opt.RelNode interface.
func (n *Project) Accept(s opt.RelShuttle) opt.RelNode { return s.Visit(n) }

// EstimateRowCount is part of the opt.RelNode interface.
func (n *Project) EstimateRowCount(mq opt.RowCountQuery) float64 { return n.inputRows(mq, 0) }

// SelfCost is part of the opt.RelNode interface.
func (n *Project) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	rows := mq.RowCount(n)
	return f.MakeCost(rows, rows*float64(len(n.Exprs))*0.1, 0)
}

// Mapping returns the mapping from input columns to output columns if every
// expression is a reference to a distinct input column.
func (n *Project) Mapping() (*mapping.Mapping, bool) {
	m := mapping.New(n.input().RowType().Len(), len(n.Exprs))
	for i, e := range n.Exprs {
		r, ok := e.(*rex.InputRef)
		if !ok {
			return nil, false
		}
		if _, dup := m.Target(r.Index); dup {
			return nil, false
		}
		m.Set(r.Index, i)
	}
	return m, true
}

// IsTrivial returns whether the projection outputs exactly the input
// columns, in order.
func (n *Project) IsTrivial() bool {
	if len(n.Exprs) != n.input().RowType().Len() {
		return false
	}
	for i, e := range n.Exprs {
		if r, ok := e.(*rex.InputRef); !ok || r.Index != i {
			return false
		}
	}
	return true
}

func formatExprs(exprs []opt.ScalarExpr) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}
