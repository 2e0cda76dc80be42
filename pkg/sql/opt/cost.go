// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"fmt"
	"math"

	"github.com/cockroachdb/redact"
)

// Cost is the best-effort approximation of the actual cost of executing an
// expression. Lower costs are better. Costs are compared first by their
// penalty flags and then by magnitude.
type Cost struct {
	C     float64
	Flags CostFlags
}

// CostFlags are penalties that dominate the magnitude of a cost.
type CostFlags uint8

const (
	// HugeCostPenalty marks an expression that must be avoided whenever
	// another alternative exists, such as an expression in the NONE
	// convention or an abstract converter.
	HugeCostPenalty CostFlags = 1 << iota
)

// Less returns true if the flags of the receiver are "better" than other.
func (f CostFlags) Less(other CostFlags) bool {
	return f < other
}

// MaxCost is the cost of an expression that cannot be implemented.
var MaxCost = Cost{C: math.Inf(+1), Flags: HugeCostPenalty}

// Less returns true if this cost is lower than the given cost.
func (c Cost) Less(other Cost) bool {
	if c.Flags != other.Flags {
		return c.Flags.Less(other.Flags)
	}
	// Costs built from the same components in a different order can differ
	// in the last bits, so values within ulpTolerance representable floats
	// of each other are equal. The mantissa is in the low bits, so the bit
	// patterns can be compared as integers.
	const ulpTolerance = 1000
	return math.Float64bits(c.C)+ulpTolerance <= math.Float64bits(other.C)
}

// Add adds the other cost to this cost.
func (c *Cost) Add(other Cost) {
	c.C += other.C
	c.Flags |= other.Flags
}

// Plus returns the sum of the two costs.
func (c Cost) Plus(other Cost) Cost {
	c.Add(other)
	return c
}

// IsInfinite returns whether the cost marks an expression that cannot be
// implemented.
func (c Cost) IsInfinite() bool {
	return math.IsInf(c.C, +1)
}

// String implements fmt.Stringer.
func (c Cost) String() string {
	return redact.StringWithoutMarkers(c)
}

// SafeFormat implements redact.SafeFormatter.
func (c Cost) SafeFormat(w redact.SafePrinter, _ rune) {
	if c.IsInfinite() {
		w.SafeString("inf")
	} else {
		w.SafeString(redact.SafeString(fmt.Sprintf("%.2f", c.C)))
	}
	if c.Flags&HugeCostPenalty != 0 {
		w.SafeString(" (huge)")
	}
}

// CostFactory creates costs. Planners use it so that costing policy can be
// replaced without touching the nodes.
type CostFactory interface {
	// MakeCost returns the cost of processing rows rows with the given cpu
	// and io effort.
	MakeCost(rows, cpu, io float64) Cost
	// Infinite returns the cost of an expression that cannot be implemented.
	Infinite() Cost
	// Huge returns a finite cost that loses to any ordinary plan.
	Huge() Cost
	// Tiny returns a cost that is cheaper than any ordinary plan.
	Tiny() Cost
	// Zero returns the zero cost.
	Zero() Cost
}

// DefaultCostFactory adds rows, cpu and io into a single magnitude.
type DefaultCostFactory struct{}

var _ CostFactory = DefaultCostFactory{}

// MakeCost is part of the CostFactory interface.
func (DefaultCostFactory) MakeCost(rows, cpu, io float64) Cost {
	return Cost{C: rows + cpu + io}
}

// Infinite is part of the CostFactory interface.
func (DefaultCostFactory) Infinite() Cost { return MaxCost }

// Huge is part of the CostFactory interface.
func (DefaultCostFactory) Huge() Cost { return Cost{C: math.MaxFloat64 / 1e10, Flags: HugeCostPenalty} }

// Tiny is part of the CostFactory interface.
func (DefaultCostFactory) Tiny() Cost { return Cost{C: 1} }

// Zero is part of the CostFactory interface.
func (DefaultCostFactory) Zero() Cost { return Cost{} }
