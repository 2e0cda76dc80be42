// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package rel defines the relational operators the planners work with:
// scans, projections, filters, joins, aggregations, literal rows and the
// enforcers that change the physical properties of their input.
//
// Nodes are immutable. Constructors fill in the trait slots a node lacks
// from its cluster's default trait set and compute the node's digest, so a
// node never changes once it is built.
package rel

import (
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
)

// Operator names.
const (
	ScanOp              = "Scan"
	ProjectOp           = "Project"
	FilterOp            = "Filter"
	JoinOp              = "Join"
	AggregateOp         = "Aggregate"
	ValuesOp            = "Values"
	AbstractConverterOp = "AbstractConverter"
	SortOp              = "Sort"
	ExchangeOp          = "Exchange"
)

// base holds the fields shared by every node.
type base struct {
	id      int
	cluster *opt.Cluster
	traits  *opt.TraitSet
	inputs  []opt.RelNode
	rowType opt.RowType
	digest  string
}

func (b *base) init(
	cluster *opt.Cluster, traits *opt.TraitSet, rowType opt.RowType, inputs ...opt.RelNode,
) {
	b.id = cluster.NextID()
	b.cluster = cluster
	if traits == nil {
		traits = cluster.TraitSet()
	} else {
		traits = traits.FillFrom(cluster.TraitSet())
	}
	b.traits = traits
	b.rowType = rowType
	b.inputs = inputs
}

// ID is part of the opt.RelNode interface.
func (b *base) ID() int { return b.id }

// Cluster is part of the opt.RelNode interface.
func (b *base) Cluster() *opt.Cluster { return b.cluster }

// TraitSet is part of the opt.RelNode interface.
func (b *base) TraitSet() *opt.TraitSet { return b.traits }

// RowType is part of the opt.RelNode interface.
func (b *base) RowType() opt.RowType { return b.rowType }

// Inputs is part of the opt.RelNode interface.
func (b *base) Inputs() []opt.RelNode { return b.inputs }

// Digest is part of the opt.RelNode interface.
func (b *base) Digest() string { return b.digest }

// finish computes the digest of a fully built node.
func finish(n opt.RelNode, b *base) {
	b.digest = opt.FormatDigest(n)
}

// input returns the single input of a node.
func (b *base) input() opt.RelNode { return b.inputs[0] }

// inputRows returns the estimated row count of input i.
func (b *base) inputRows(mq opt.RowCountQuery, i int) float64 {
	return mq.RowCount(b.inputs[i])
}
