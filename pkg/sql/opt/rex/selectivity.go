// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rex

import "github.com/cockroachdb/polyopt/pkg/sql/opt"

const (
	eqSelectivity         = 0.15
	comparisonSelectivity = 0.5
	defaultSelectivity    = 0.25
)

// Selectivity guesses the fraction of rows that satisfy cond, without
// statistics. Conjuncts are treated as independent.
func Selectivity(cond opt.ScalarExpr) float64 {
	if cond == nil || IsAlwaysTrue(cond) {
		return 1
	}
	if IsAlwaysFalse(cond) {
		return 0
	}
	sel := 1.0
	for _, c := range Conjunctions(cond) {
		call, ok := c.(*Call)
		switch {
		case !ok:
			sel *= defaultSelectivity
		case call.Op == EqOp:
			sel *= eqSelectivity
		case call.Op.IsComparison():
			sel *= comparisonSelectivity
		case call.Op == IsNotNullOp:
			sel *= 0.9
		default:
			sel *= defaultSelectivity
		}
	}
	return sel
}
