// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package props derives logical properties of relational expressions, such
// as row counts and selectivities, and caches them for the duration of a
// planning session.
package props

import (
	"math"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
	"github.com/cockroachdb/polyopt/pkg/util"
)

type metadataKind int8

const (
	rowCountKind metadataKind = iota
	distinctKind
)

type cacheKey struct {
	id   int
	kind metadataKind
	cols string
}

type cacheEntry struct {
	timestamp int64
	value     float64
}

// MetadataQuery answers metadata questions about the expressions of one
// planner. Answers are cached per expression and reused as long as the
// planner's metadata timestamp for the expression has not changed.
//
// A MetadataQuery is not safe for concurrent use.
type MetadataQuery struct {
	planner    opt.Planner
	cache      map[cacheKey]cacheEntry
	inProgress map[cacheKey]struct{}

	// Hits and Misses count cache lookups.
	Hits, Misses int
}

var _ opt.RowCountQuery = (*MetadataQuery)(nil)

// NewMetadataQuery returns a metadata query for the expressions of p.
func NewMetadataQuery(p opt.Planner) *MetadataQuery {
	return &MetadataQuery{
		planner:    p,
		cache:      make(map[cacheKey]cacheEntry),
		inProgress: make(map[cacheKey]struct{}),
	}
}

func (mq *MetadataQuery) lookup(key cacheKey, rel opt.RelNode, compute func() float64) float64 {
	ts := mq.planner.RelMetadataTimestamp(rel)
	if e, ok := mq.cache[key]; ok && e.timestamp == ts {
		mq.Hits++
		return e.value
	}
	if _, ok := mq.inProgress[key]; ok {
		// The expression is its own input through an equivalence class; give
		// up on this path without caching.
		return 1
	}
	mq.Misses++
	mq.inProgress[key] = struct{}{}
	v := compute()
	delete(mq.inProgress, key)
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	mq.cache[key] = cacheEntry{timestamp: ts, value: v}
	return v
}

// RowCount returns the estimated number of rows produced by rel. It is part
// of the opt.RowCountQuery interface.
func (mq *MetadataQuery) RowCount(rel opt.RelNode) float64 {
	return mq.lookup(cacheKey{id: rel.ID(), kind: rowCountKind}, rel, func() float64 {
		return rel.EstimateRowCount(mq)
	})
}

// Selectivity returns the estimated fraction of rel's rows that satisfy
// cond.
func (mq *MetadataQuery) Selectivity(rel opt.RelNode, cond opt.ScalarExpr) float64 {
	return rex.Selectivity(cond)
}

// DistinctRowCount returns the estimated number of distinct values of the
// given columns among rel's rows. Without statistics, each column is
// assumed to halve the duplication of the others.
func (mq *MetadataQuery) DistinctRowCount(rel opt.RelNode, cols util.FastIntSet) float64 {
	key := cacheKey{id: rel.ID(), kind: distinctKind, cols: cols.String()}
	return mq.lookup(key, rel, func() float64 {
		rows := mq.RowCount(rel)
		if cols.Empty() {
			return math.Min(rows, 1)
		}
		return rows * (1 - math.Pow(0.5, float64(cols.Len())))
	})
}

// CumulativeCost returns the cost of rel and all its inputs, as computed by
// rel's self cost functions with this query's row counts.
func (mq *MetadataQuery) CumulativeCost(f opt.CostFactory, rel opt.RelNode) opt.Cost {
	c := rel.SelfCost(f, mq)
	for _, in := range rel.Inputs() {
		c.Add(mq.CumulativeCost(f, in))
	}
	return c
}

// Reset drops every cached answer.
func (mq *MetadataQuery) Reset() {
	mq.cache = make(map[cacheKey]cacheEntry)
}
