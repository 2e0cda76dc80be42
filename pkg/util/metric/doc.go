// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

/*
Package metric provides optimizer metrics (a.k.a. transient stats) backed by
Prometheus collectors.

# Adding a new metric

First, describe the metric with a Metadata and create it:

	metaRulesFired := metric.Metadata{
		Name: "sql.opt.rules.fired",
		Help: "Number of rule matches fired by the cost-based planner",
	}
	m := Metrics{RulesFired: metric.NewCounter(metaRulesFired)}

Next, add the struct holding the metrics to a Registry. Every exported field
that implements Iterable is registered:

	registry := metric.NewRegistry()
	registry.AddMetricStruct(m)

The metric can then be updated through the field:

	m.RulesFired.Inc(1)

# Exporting

Registry.WriteText writes every registered metric in the Prometheus text
exposition format. Dots in metric names are exported as underscores.
*/
package metric
