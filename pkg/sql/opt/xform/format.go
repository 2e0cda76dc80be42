// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"fmt"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/memo"
	"github.com/cockroachdb/polyopt/pkg/util/treeprinter"
)

// Dump renders the memo: every live set with its subsets, and under each
// subset the expressions that satisfy its traits with their costs. The best
// expression of a subset is marked with '*'. For example:
//
//	memo (root: subset 4)
//	 └── set 1 (a1 int, a2 int)
//	      ├── subset 2 NONE (best: none)
//	      │    └── Scan.NONE(table=t.a) [cost: inf]
//	      └── subset 4 ROW (best: cost 201.00)
//	           └── * Scan.ROW(table=t.a) [cost: 201.00]
func (o *Optimizer) Dump() string {
	tp := treeprinter.New()
	title := "memo"
	if o.root != nil {
		title = fmt.Sprintf("memo (root: subset %d)", o.rootSubset().ID())
	}
	top := tp.Child(title)
	for _, set := range o.sets {
		if set.IsMerged() {
			continue
		}
		sn := top.Childf("set %d %s", set.ID(), set.RowType())
		for _, sub := range set.Subsets() {
			best := "none"
			if sub.Best != nil {
				best = "cost " + sub.BestCost.String()
			}
			subn := sn.Childf("subset %d %s (best: %s)", sub.ID(), sub.TraitSet(), best)
			for _, n := range sub.Rels() {
				mark := ""
				if n == sub.Best {
					mark = "* "
				}
				subn.Childf("%s%s [cost: %s]", mark, o.formatRel(n), o.Cost(n))
			}
		}
	}
	return tp.String()
}

// formatRel formats an expression with its inputs shown as subset ids.
func (o *Optimizer) formatRel(n opt.RelNode) string {
	s := n.Op() + "." + n.TraitSet().String() + "(" + n.Attrs()
	for i, in := range n.Inputs() {
		if i > 0 || n.Attrs() != "" {
			s += ", "
		}
		if sub, ok := in.(*memo.Subset); ok {
			s += fmt.Sprintf("subset %d", sub.Canonical().ID())
		} else {
			s += in.Digest()
		}
	}
	return s + ")"
}
