// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
)

// Planner transforms a relational expression into a semantically equivalent
// one with the required traits and, for cost-based planners, the lowest
// cost. The cost-based planner lives in package xform and the rule-based
// fixed-point planner in package norm.
//
// A planner is used by one goroutine at a time. Separate planners may run
// concurrently as long as they do not share trait families that keep
// per-planner state outside a planner-keyed map.
type Planner interface {
	// SetRoot sets the expression to plan. For the cost-based planner, the
	// root's traits become the required traits of the result.
	SetRoot(rel RelNode)

	// Root returns the expression being planned.
	Root() RelNode

	// AddTraitDef registers a trait family. It returns false if the family
	// was already registered. Families must be registered before any node is
	// built; nodes built earlier get the missing slots filled with defaults.
	AddTraitDef(def TraitDef) bool

	// ClearTraitDefs removes every registered family.
	ClearTraitDefs()

	// TraitDefs returns the registered families in registration order.
	TraitDefs() []TraitDef

	// EmptyTraitSet returns the set holding the default of every registered
	// family.
	EmptyTraitSet() *TraitSet

	// AddRule adds a rule. It returns false if a rule with the same name is
	// already present.
	AddRule(r Rule) bool

	// RemoveRule removes a rule. It returns false if the rule was absent.
	RemoveRule(r Rule) bool

	// Rules returns the rules in the order they were added.
	Rules() []Rule

	// Register records rel, and recursively its inputs, as equivalent to
	// equiv, which may be nil for the first node of a new equivalence class.
	// It returns the node that represents rel from now on; the node itself is
	// never modified.
	Register(rel RelNode, equiv RelNode) RelNode

	// EnsureRegistered registers rel if it is not already registered, and
	// returns its representative either way. Calling it twice with the same
	// node has no further effect.
	EnsureRegistered(rel RelNode, equiv RelNode) RelNode

	// IsRegistered returns whether rel has been registered.
	IsRegistered(rel RelNode) bool

	// ChangeTraits returns a node equivalent to rel with the given traits.
	// The cost-based planner returns a placeholder for the required traits
	// and defers the conversion to the search; other planners may convert
	// eagerly. It panics if rel already satisfies traits.
	ChangeTraits(rel RelNode, traits *TraitSet) RelNode

	// FindBestExp plans the root. It fails with a CannotPlan error when no
	// expression with the required traits exists, and with a query canceled
	// error when cancellation is requested.
	FindBestExp(ctx context.Context) (RelNode, error)

	// AddMaterialization adds a materialized view that FindBestExp may
	// substitute into the plan.
	AddMaterialization(m *Materialization)

	// Materializations returns the added materializations.
	Materializations() []*Materialization

	// AddLattice adds a lattice, along with its materialization if it has
	// one.
	AddLattice(l *Lattice)

	// Lattice returns the lattice whose star table is t.
	Lattice(t cat.Table) (*Lattice, bool)

	// SetImportance sets the importance of rel. Zero importance means the
	// planner never fires rules on rel again.
	SetImportance(rel RelNode, importance float64)

	// RelMetadataTimestamp returns a value that changes whenever metadata
	// derived from rel may be stale.
	RelMetadataTimestamp(rel RelNode) int64

	// Cost returns the cost of rel, including its inputs.
	Cost(rel RelNode) Cost

	// CostFactory returns the factory used to build costs.
	CostFactory() CostFactory

	// Executor returns the constant reducer, or nil.
	Executor() Executor

	// SetExecutor sets the constant reducer.
	SetExecutor(e Executor)

	// Context returns the context values the planner was created with.
	Context() optctx.Context

	// Clear forgets every registered node, rule and materialization.
	Clear()
}

// TraitConverter is implemented by planners that can convert a node using
// the converter rules of its trait families directly.
type TraitConverter interface {
	// ChangeTraitsUsingConverters converts rel to the given traits, family
	// by family. It returns false if some family cannot be converted.
	ChangeTraitsUsingConverters(rel RelNode, traits *TraitSet) (RelNode, bool)
}

// CancelFlag lets another goroutine ask a running planner to stop. Pass it
// to the planner through its context values.
type CancelFlag struct {
	requested atomic.Bool
}

// RequestCancel asks the planner to stop at the next rule firing.
func (f *CancelFlag) RequestCancel() { f.requested.Store(true) }

// IsCancelRequested returns whether cancellation was requested.
func (f *CancelFlag) IsCancelRequested() bool { return f.requested.Load() }

// Clear resets the flag so it can be reused for another planning session.
func (f *CancelFlag) Clear() { f.requested.Store(false) }

// Materialization is a stored query result that a planner may read instead
// of recomputing the query.
type Materialization struct {
	// TableRel scans the stored result.
	TableRel RelNode
	// QueryRel is the query the stored result was computed from.
	QueryRel RelNode
	// StarTable is the star table the query joins, if it is a star query.
	StarTable *cat.StarTable
	// QualifiedTableName names the table holding the result.
	QualifiedTableName []string
}

// Lattice is a star schema: a star table together with the query that joins
// its constituents, and optionally a materialization of that query.
type Lattice struct {
	Name            string
	StarTable       *cat.StarTable
	RootRel         RelNode
	Materialization *Materialization
}
