// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rel

import (
	"math"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
)

// AbstractConverter is a placeholder for a conversion of its input to the
// node's traits that the planner has not worked out yet. The planner
// expands it through the trait families' converters; the placeholder itself
// can never be executed.
type AbstractConverter struct {
	base
}

var _ opt.Converter = (*AbstractConverter)(nil)

// NewAbstractConverter returns a placeholder converting input to traits.
func NewAbstractConverter(cluster *opt.Cluster, traits *opt.TraitSet, input opt.RelNode) *AbstractConverter {
	n := &AbstractConverter{}
	n.init(cluster, traits, input.RowType(), input)
	finish(n, &n.base)
	return n
}

// Input returns the converted expression.
func (n *AbstractConverter) Input() opt.RelNode { return n.input() }

// InputTraits is part of the opt.Converter interface.
func (n *AbstractConverter) InputTraits() *opt.TraitSet { return n.input().TraitSet() }

// Op is part of the opt.RelNode interface.
func (n *AbstractConverter) Op() string { return AbstractConverterOp }

// Attrs is part of the opt.RelNode interface.
func (n *AbstractConverter) Attrs() string { return "" }

// Copy is part of the opt.RelNode interface.
func (n *AbstractConverter) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	return NewAbstractConverter(n.cluster, traits, inputs[0])
}

// Accept is part of the opt.RelNode interface.
func (n *AbstractConverter) Accept(s opt.RelShuttle) opt.RelNode { return s.Visit(n) }

// EstimateRowCount is part of the opt.RelNode interface.
func (n *AbstractConverter) EstimateRowCount(mq opt.RowCountQuery) float64 {
	return n.inputRows(mq, 0)
}

// SelfCost is part of the opt.RelNode interface.
func (n *AbstractConverter) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	return f.Infinite()
}

// Sort orders the rows of its input. It enforces a collation trait.
type Sort struct {
	base
	Collation opt.Trait
}

var _ opt.Converter = (*Sort)(nil)

// NewSort returns a sort of input. The node's traits are those of input with
// the collation replaced.
func NewSort(cluster *opt.Cluster, input opt.RelNode, collation opt.Trait) *Sort {
	n := &Sort{Collation: collation}
	n.init(cluster, input.TraitSet().ReplaceTrait(collation), input.RowType(), input)
	finish(n, &n.base)
	return n
}

// Input returns the sorted expression.
func (n *Sort) Input() opt.RelNode { return n.input() }

// InputTraits is part of the opt.Converter interface.
func (n *Sort) InputTraits() *opt.TraitSet { return n.input().TraitSet() }

// Op is part of the opt.RelNode interface.
func (n *Sort) Op() string { return SortOp }

// Attrs is part of the opt.RelNode interface.
func (n *Sort) Attrs() string { return "collation=" + n.Collation.String() }

// Copy is part of the opt.RelNode interface. The traits are derived from the
// new input and the collation.
func (n *Sort) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	if c, ok := traits.TraitOf(n.Collation.TraitDef()); ok {
		return NewSort(n.cluster, inputs[0], c)
	}
	return NewSort(n.cluster, inputs[0], n.Collation)
}

// Accept is part of the opt.RelNode interface.
func (n *Sort) Accept(s opt.RelShuttle) opt.RelNode { return s.Visit(n) }

// EstimateRowCount is part of the opt.RelNode interface.
func (n *Sort) EstimateRowCount(mq opt.RowCountQuery) float64 { return n.inputRows(mq, 0) }

// SelfCost is part of the opt.RelNode interface.
func (n *Sort) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	rows := max(n.inputRows(mq, 0), 1)
	return f.MakeCost(rows, rows*math.Log2(rows+1), 0)
}

// Exchange redistributes the rows of its input. It enforces a distribution
// trait.
type Exchange struct {
	base
	Distribution opt.Trait
}

var _ opt.Converter = (*Exchange)(nil)

// NewExchange returns an exchange of input. The node's traits are those of
// input with the distribution replaced.
func NewExchange(cluster *opt.Cluster, input opt.RelNode, distribution opt.Trait) *Exchange {
	n := &Exchange{Distribution: distribution}
	n.init(cluster, input.TraitSet().ReplaceTrait(distribution), input.RowType(), input)
	finish(n, &n.base)
	return n
}

// Input returns the redistributed expression.
func (n *Exchange) Input() opt.RelNode { return n.input() }

// InputTraits is part of the opt.Converter interface.
func (n *Exchange) InputTraits() *opt.TraitSet { return n.input().TraitSet() }

// Op is part of the opt.RelNode interface.
func (n *Exchange) Op() string { return ExchangeOp }

// Attrs is part of the opt.RelNode interface.
func (n *Exchange) Attrs() string { return "distribution=" + n.Distribution.String() }

// Copy is part of the opt.RelNode interface.
func (n *Exchange) Copy(traits *opt.TraitSet, inputs []opt.RelNode) opt.RelNode {
	if d, ok := traits.TraitOf(n.Distribution.TraitDef()); ok {
		return NewExchange(n.cluster, inputs[0], d)
	}
	return NewExchange(n.cluster, inputs[0], n.Distribution)
}

// Accept is part of the opt.RelNode interface.
func (n *Exchange) Accept(s opt.RelShuttle) opt.RelNode { return s.Visit(n) }

// EstimateRowCount is part of the opt.RelNode interface.
func (n *Exchange) EstimateRowCount(mq opt.RowCountQuery) float64 { return n.inputRows(mq, 0) }

// SelfCost is part of the opt.RelNode interface.
func (n *Exchange) SelfCost(f opt.CostFactory, mq opt.RowCountQuery) opt.Cost {
	rows := n.inputRows(mq, 0)
	return f.MakeCost(rows, rows, rows*2)
}
