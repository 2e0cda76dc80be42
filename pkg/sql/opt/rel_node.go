// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/polyopt/pkg/sql/types"
)

// RelNode is a relational expression. Nodes are immutable once built: a
// rewrite creates a new node with Copy rather than editing inputs or traits
// in place. A node's traits have a slot for every family registered with
// its planner, filled in when the node is constructed.
type RelNode interface {
	// ID returns the identifier of the node, unique within its cluster.
	ID() int

	// Op returns the name of the operator, such as "Scan" or "Join".
	Op() string

	// Cluster returns the environment the node was built in.
	Cluster() *Cluster

	// TraitSet returns the physical properties of the node.
	TraitSet() *TraitSet

	// RowType returns the type of the rows the node produces.
	RowType() RowType

	// Inputs returns the input expressions of the node.
	Inputs() []RelNode

	// Copy returns a node of the same operator and attributes with the given
	// traits and inputs.
	Copy(traits *TraitSet, inputs []RelNode) RelNode

	// Accept applies the shuttle to the node and returns its replacement.
	Accept(s RelShuttle) RelNode

	// Attrs formats the attributes of the node that are not inputs, such as
	// "table=a" or "condition=(= $0 $3)".
	Attrs() string

	// Digest identifies the node for deduplication: two nodes with equal
	// digests compute the same rows with the same traits.
	Digest() string

	// EstimateRowCount returns the estimated number of rows produced.
	EstimateRowCount(mq RowCountQuery) float64

	// SelfCost returns the cost of the node, not counting its inputs.
	SelfCost(f CostFactory, mq RowCountQuery) Cost
}

// Converter is a node whose only purpose is to change the traits of its
// input. Converters are registered in the equivalence class of their input.
type Converter interface {
	RelNode

	// InputTraits returns the traits the converter consumes.
	InputTraits() *TraitSet
}

// RowCountQuery provides row counts to cost functions.
type RowCountQuery interface {
	RowCount(rel RelNode) float64
}

// RelShuttle visits the nodes of a tree and returns a replacement for each.
type RelShuttle interface {
	Visit(rel RelNode) RelNode
}

// RelShuttleFunc adapts a function to RelShuttle.
type RelShuttleFunc func(rel RelNode) RelNode

// Visit is part of the RelShuttle interface.
func (f RelShuttleFunc) Visit(rel RelNode) RelNode { return f(rel) }

// VisitInputs applies the shuttle to each input of rel and returns a copy of
// rel over the replaced inputs, or rel itself if no input changed.
func VisitInputs(rel RelNode, s RelShuttle) RelNode {
	inputs := rel.Inputs()
	var replaced []RelNode
	for i, in := range inputs {
		newIn := s.Visit(in)
		if newIn != in && replaced == nil {
			replaced = append([]RelNode(nil), inputs...)
		}
		if replaced != nil {
			replaced[i] = newIn
		}
	}
	if replaced == nil {
		return rel
	}
	return rel.Copy(rel.TraitSet(), replaced)
}

// FormatDigest builds the digest of a node from its operator, traits,
// attributes and the digests of its inputs.
func FormatDigest(rel RelNode) string {
	var b strings.Builder
	b.WriteString(rel.Op())
	b.WriteByte('.')
	b.WriteString(rel.TraitSet().String())
	b.WriteByte('(')
	attrs := rel.Attrs()
	b.WriteString(attrs)
	for i, in := range rel.Inputs() {
		if i > 0 || attrs != "" {
			b.WriteString(", ")
		}
		b.WriteString("input=")
		b.WriteString(in.Digest())
	}
	b.WriteByte(')')
	return b.String()
}

// Cluster is the environment shared by the nodes of one planning session.
type Cluster struct {
	planner Planner
	nextID  atomic.Int64
}

// NewCluster creates a cluster whose nodes are planned by p.
func NewCluster(p Planner) *Cluster {
	return &Cluster{planner: p}
}

// Planner returns the planner of the cluster.
func (c *Cluster) Planner() Planner { return c.planner }

// NextID returns a fresh node identifier.
func (c *Cluster) NextID() int { return int(c.nextID.Add(1)) }

// TraitSet returns the planner's empty trait set: the default value of every
// registered family.
func (c *Cluster) TraitSet() *TraitSet { return c.planner.EmptyTraitSet() }

// TraitSetOf returns the planner's empty trait set with the given
// convention.
func (c *Cluster) TraitSetOf(conv Convention) *TraitSet {
	return c.planner.EmptyTraitSet().ReplaceTrait(conv)
}

// Field is a named, typed column of a row type.
type Field struct {
	Name     string
	Type     *types.T
	Nullable bool
}

// RowType is the ordered list of columns a node produces.
type RowType struct {
	Fields []Field
}

// MakeRowType builds a row type from fields.
func MakeRowType(fields ...Field) RowType {
	return RowType{Fields: fields}
}

// Len returns the number of columns.
func (r RowType) Len() int { return len(r.Fields) }

// Names returns the column names.
func (r RowType) Names() []string {
	names := make([]string, len(r.Fields))
	for i := range r.Fields {
		names[i] = r.Fields[i].Name
	}
	return names
}

// Equivalent returns whether the two row types have the same number of
// columns with equivalent types. Names and nullability are ignored.
func (r RowType) Equivalent(other RowType) bool {
	if len(r.Fields) != len(other.Fields) {
		return false
	}
	for i := range r.Fields {
		if !r.Fields[i].Type.Equivalent(other.Fields[i].Type) {
			return false
		}
	}
	return true
}

// Concat returns the columns of r followed by those of other.
func (r RowType) Concat(other RowType) RowType {
	fields := make([]Field, 0, len(r.Fields)+len(other.Fields))
	fields = append(fields, r.Fields...)
	fields = append(fields, other.Fields...)
	return RowType{Fields: fields}
}

// String formats the row type as "(a int, b string)".
func (r RowType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, f := range r.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte(' ')
		b.WriteString(f.Type.String())
	}
	b.WriteByte(')')
	return b.String()
}

// ScalarExpr is a row-level expression, such as a filter condition or a
// projected column.
type ScalarExpr interface {
	// Type returns the type of the value computed.
	Type() *types.T
	// String formats the expression; structurally equal expressions format
	// identically.
	String() string
}

// Executor reduces constant scalar expressions to literals. Expressions it
// cannot reduce are returned unchanged.
type Executor interface {
	Reduce(exprs []ScalarExpr) []ScalarExpr
}
