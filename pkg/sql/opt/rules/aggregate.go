// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rules

import (
	"sort"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
	"github.com/cockroachdb/polyopt/pkg/util"
)

// AggregateProjectMerge folds a projection that only reorders or drops
// columns into the aggregation above it. If the group columns come out in a
// different order, a projection on top restores the original order.
var AggregateProjectMerge = opt.NewRule(
	"AggregateProjectMerge",
	matchLogical(rel.AggregateOp, matchLogical(rel.ProjectOp, opt.MatchAny())),
	func(call *opt.RuleCall) {
		agg := call.Rel(0).(*rel.Aggregate)
		proj := call.Rel(1).(*rel.Project)
		m, ok := proj.Mapping()
		if !ok {
			return
		}
		source := func(col int) int {
			s, _ := m.Source(col)
			return s
		}

		groupKey := make([]int, len(agg.GroupKey))
		for i, k := range agg.GroupKey {
			groupKey[i] = source(k)
		}
		sortedKey := append([]int(nil), groupKey...)
		sort.Ints(sortedKey)

		aggs := make([]rel.AggCall, len(agg.Aggs))
		for i, a := range agg.Aggs {
			args := make([]int, len(a.Args))
			for j, arg := range a.Args {
				args[j] = source(arg)
			}
			aggs[i] = rel.AggCall{Func: a.Func, Args: args, Name: a.Name}
		}

		cluster := agg.Cluster()
		newAgg := rel.NewAggregate(cluster, agg.TraitSet(), proj.Input(), sortedKey, aggs)
		if sort.IntsAreSorted(groupKey) {
			call.TransformTo(newAgg)
			return
		}

		// Restore the original column order.
		pos := make(map[int]int, len(sortedKey))
		for i, k := range sortedKey {
			pos[k] = i
		}
		fields := newAgg.RowType().Fields
		exprs := make([]opt.ScalarExpr, 0, len(fields))
		for _, k := range groupKey {
			exprs = append(exprs, rex.NewInputRef(pos[k], fields[pos[k]].Type))
		}
		for i := len(groupKey); i < len(fields); i++ {
			exprs = append(exprs, rex.NewInputRef(i, fields[i].Type))
		}
		call.TransformTo(rel.NewProject(cluster, agg.TraitSet(), newAgg, exprs, agg.RowType().Names()))
	},
)

// AggregateFilterTranspose moves a filter that only reads group columns
// above the aggregation:
//
//	Aggregate(Filter(x)) => Filter(Aggregate(x))
//
// Aggregations without group columns are left alone, since they produce a
// row even when no input row passes the filter.
var AggregateFilterTranspose = opt.NewRule(
	"AggregateFilterTranspose",
	matchLogical(rel.AggregateOp, matchLogical(rel.FilterOp, opt.MatchAny())),
	func(call *opt.RuleCall) {
		agg := call.Rel(0).(*rel.Aggregate)
		filter := call.Rel(1).(*rel.Filter)
		if len(agg.GroupKey) == 0 {
			return
		}
		var keyCols util.FastIntSet
		pos := make(map[int]int, len(agg.GroupKey))
		for i, k := range agg.GroupKey {
			keyCols.Add(k)
			pos[k] = i
		}
		if !rex.InputRefs(filter.Condition).SubsetOf(keyCols) {
			return
		}
		cluster := agg.Cluster()
		newAgg := rel.NewAggregate(cluster, nil, filter.Input(), agg.GroupKey, agg.Aggs)
		cond := rex.Remap(filter.Condition, func(i int) int { return pos[i] })
		call.TransformTo(rel.NewFilter(cluster, agg.TraitSet(), newAgg, cond))
	},
)
