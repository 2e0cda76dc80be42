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
	"github.com/cockroachdb/polyopt/pkg/sql/types"
)

// AggFunc is an aggregate function.
type AggFunc int

const (
	// CountFunc counts rows, or the non-NULL values of its argument.
	CountFunc AggFunc = iota
	SumFunc
	MinFunc
	MaxFunc
)

var aggFuncNames = [...]string{
	CountFunc: "count",
	SumFunc:   "sum",
	MinFunc:   "min",
	MaxFunc:   "max",
}

func (f AggFunc) String() string { return aggFuncNames[f] }

// ParseAggFunc returns the aggregate function with the given name.
func ParseAggFunc(name string) (AggFunc, bool) {
	for f, n := range aggFuncNames {
		if n == name {
			return AggFunc(f), true
		}
	}
	return 0, false
}

// AggCall is one aggregate computed by an Aggregate. Args are input column
// ordinals; COUNT may have none.
type AggCall struct {
	Func AggFunc
	Args []int
	Name string
}

func (a AggCall) String() string {
	var b strings.Builder
	b.WriteString(a.Func.String())
	b.WriteByte('(')
	for i, arg := range a.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(arg))
	}
	b.WriteByte(')')
	return b.String()
}

// Aggregate groups its input by the GroupKey columns and computes the
// aggregates of each group. Its output columns are the group columns in
// increasing ordinal order, followed by one column per aggregate.
type Aggregate struct {
	base
	GroupKey []int
	Aggs     []AggCall
}

var _ opt.RelNode = (*Aggregate)(nil)

// NewAggregate returns an aggregation of input. GroupKey must be strictly
// increasing.
func NewAggregate(
	cluster *opt.Cluster, traits *opt.TraitSet, input opt.RelNode, groupKey []int, aggs []AggCall,
) *Aggregate {
	inFields := input.RowType().Fields
	fields := make([]opt.Field, 0, len(groupKey)+len(aggs))
	for i, k := range groupKey {
		if k < 0 || k >= len(inFields) || (i > 0 && groupKey[i-1] >= k) {
			panic(errors.AssertionFailedf("invalid group key %v for %d input columns", groupKey, len(inFields)))
		}
		fields = append(fields, inFields[k])
	}
	for i, a := range aggs {
		for _, arg := range a.Args {
			if arg < 0 || arg >= len(inFields) {
				panic(errors.AssertionFailedf("aggregate %s references column $%d of %d", a, arg, len(inFields)))
			}
		}
		name := a.Name
		if name == "" {
			name = "agg$" + strconv.Itoa(i)
		}
		f := opt.Field{Name: name, Type: types.Int}
		if a.Func != CountFunc {
			if len(a.Args) != 1 {
				panic(errors.AssertionFailedf("aggregate %s takes one argument", a))
			}
			f.Type = inFields[a.Args[0]].Type
			f.Nullable = true
		}
		fields = append(fields, f)
	}
	n := &Aggregate{GroupKey: groupKey, Aggs: aggs}
	n.init(cluster, traits, opt.MakeRowType(fields...), input)
	finish(n, &n.base)
	return n
}

// Input returns the aggregated expression.
func (n *Aggregate) Input() opt.RelNode { return n.input() }

// Op is part of the opt.RelNode interface.
func (n *Aggregate) Op() string { return AggregateOp }

// Attrs is part of the opt.RelNode interface.
func (n *Aggregate) Attrs() string {
	var b strings.Builder
	b.WriteString("group=[")
	for i, k := range n.GroupKey {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(k))
	}
	b.WriteString("], aggs=[")
	for i, a := range n.Aggs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(']')
	return b.String()
}

// Copy is part of the opt.RelNode interface.
func (n *Aggregate) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	return NewAggregate(n.cluster, traits, inputs[0], n.GroupKey, n.Aggs)
}

// Accept is part of the opt.RelNode interface.
func (n *Aggregate) Accept(s opt.RelShuttle) opt.RelNode { return s.Visit(n) }

// EstimateRowCount is part of the opt.RelNode interface.
func (n *Aggregate) EstimateRowCount(mq opt.RowCountQuery) float64 {
	if len(n.GroupKey) == 0 {
		return 1
	}
	return max(1, n.inputRows(mq, 0)*0.1)
}

// SelfCost is part of the opt.RelNode interface.
func (n *Aggregate) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	rows := n.inputRows(mq, 0)
	return f.MakeCost(rows, rows*float64(len(n.Aggs)+1), 0)
}
