// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package metric

import (
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metadata holds the name and help text of a metric.
type Metadata struct {
	Name string
	Help string
}

// GetName returns the metric name.
func (m *Metadata) GetName() string { return m.Name }

// GetHelp returns the help text.
func (m *Metadata) GetHelp() string { return m.Help }

// exportedName converts a dotted metric name to a Prometheus name.
func exportedName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

// Iterable provides a method for synchronized access to interior metrics.
type Iterable interface {
	// GetName returns the fully-qualified name of the metric.
	GetName() string
	// GetHelp returns the help text for the metric.
	GetHelp() string
	// Collector returns the Prometheus collector backing the metric.
	Collector() prometheus.Collector
}

// Counter is a monotonically increasing count.
type Counter struct {
	Metadata
	count atomic.Int64
	prom  prometheus.Counter
}

var _ Iterable = (*Counter)(nil)

// NewCounter creates a counter.
func NewCounter(metadata Metadata) *Counter {
	return &Counter{
		Metadata: metadata,
		prom: prometheus.NewCounter(prometheus.CounterOpts{
			Name: exportedName(metadata.Name),
			Help: metadata.Help,
		}),
	}
}

// Inc increments the counter by v, which must be non-negative.
func (c *Counter) Inc(v int64) {
	c.count.Add(v)
	c.prom.Add(float64(v))
}

// Count returns the current value of the counter.
func (c *Counter) Count() int64 {
	return c.count.Load()
}

// Collector implements Iterable.
func (c *Counter) Collector() prometheus.Collector { return c.prom }

// Gauge atomically stores a single integer value. The Prometheus gauge
// reads the value when it is collected.
type Gauge struct {
	Metadata
	value atomic.Int64
	prom  prometheus.GaugeFunc
}

var _ Iterable = (*Gauge)(nil)

// NewGauge creates a gauge.
func NewGauge(metadata Metadata) *Gauge {
	g := &Gauge{Metadata: metadata}
	g.prom = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: exportedName(metadata.Name),
		Help: metadata.Help,
	}, func() float64 { return float64(g.Value()) })
	return g
}

// Update sets the gauge's value.
func (g *Gauge) Update(v int64) {
	g.value.Store(v)
}

// Inc increments the gauge's value.
func (g *Gauge) Inc(i int64) {
	g.value.Add(i)
}

// Dec decrements the gauge's value.
func (g *Gauge) Dec(i int64) {
	g.Inc(-i)
}

// Value returns the gauge's current value.
func (g *Gauge) Value() int64 {
	return g.value.Load()
}

// Collector implements Iterable.
func (g *Gauge) Collector() prometheus.Collector { return g.prom }
