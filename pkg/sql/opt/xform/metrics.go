// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import "github.com/cockroachdb/polyopt/pkg/util/metric"

var (
	metaRulesFired = metric.Metadata{
		Name: "sql.opt.rules.fired",
		Help: "Number of rule firings by the cost-based planner",
	}
	metaRelsRegistered = metric.Metadata{
		Name: "sql.opt.rels.registered",
		Help: "Number of expressions registered in the memo",
	}
	metaSetsMerged = metric.Metadata{
		Name: "sql.opt.sets.merged",
		Help: "Number of equivalence classes merged after being found equivalent",
	}
	metaCannotPlan = metric.Metadata{
		Name: "sql.opt.cannot_plan",
		Help: "Number of planning sessions that found no implementable plan",
	}
	metaCanceled = metric.Metadata{
		Name: "sql.opt.canceled",
		Help: "Number of planning sessions stopped by cancellation",
	}
	metaMaterializationsUsed = metric.Metadata{
		Name: "sql.opt.materializations.used",
		Help: "Number of materialized view substitutions registered",
	}
	metaActiveSessions = metric.Metadata{
		Name: "sql.opt.sessions.active",
		Help: "Number of planning sessions searching for a plan",
	}
)

// Metrics holds the counters of the cost-based planner. A Metrics may be
// shared by concurrent planners by passing it through their context.
type Metrics struct {
	RulesFired           *metric.Counter
	RelsRegistered       *metric.Counter
	SetsMerged           *metric.Counter
	CannotPlan           *metric.Counter
	Canceled             *metric.Counter
	MaterializationsUsed *metric.Counter
	ActiveSessions       *metric.Gauge
}

// MakeMetrics instantiates the metrics of the cost-based planner.
func MakeMetrics() *Metrics {
	return &Metrics{
		RulesFired:           metric.NewCounter(metaRulesFired),
		RelsRegistered:       metric.NewCounter(metaRelsRegistered),
		SetsMerged:           metric.NewCounter(metaSetsMerged),
		CannotPlan:           metric.NewCounter(metaCannotPlan),
		Canceled:             metric.NewCounter(metaCanceled),
		MaterializationsUsed: metric.NewCounter(metaMaterializationsUsed),
		ActiveSessions:       metric.NewGauge(metaActiveSessions),
	}
}
