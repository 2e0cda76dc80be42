// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package metric

import (
	"io"
	"reflect"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/util/syncutil"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// A Registry is a list of metrics. It provides a simple way of iterating over
// them and of exporting them to Prometheus.
type Registry struct {
	mu struct {
		syncutil.Mutex
		tracked map[string]Iterable
	}
	prom *prometheus.Registry
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	r := &Registry{prom: prometheus.NewRegistry()}
	r.mu.tracked = make(map[string]Iterable)
	return r
}

// AddMetric adds the passed-in metric to the registry. Adding two metrics
// with the same name is an error.
func (r *Registry) AddMetric(metric Iterable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mu.tracked[metric.GetName()]; ok {
		return errors.Newf("metric %q already registered", metric.GetName())
	}
	if err := r.prom.Register(metric.Collector()); err != nil {
		return errors.Wrapf(err, "registering %q", metric.GetName())
	}
	r.mu.tracked[metric.GetName()] = metric
	return nil
}

// AddMetricStruct examines all fields of metricStruct and adds all Iterable
// implementations to the registry. Nil fields are skipped.
func (r *Registry) AddMetricStruct(metricStruct interface{}) error {
	v := reflect.ValueOf(metricStruct)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.AssertionFailedf("expected struct, got %T", metricStruct)
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		vfield := v.Field(i)
		if vfield.Kind() == reflect.Ptr && vfield.IsNil() {
			continue
		}
		m, ok := vfield.Interface().(Iterable)
		if !ok {
			continue
		}
		if err := r.AddMetric(m); err != nil {
			return err
		}
	}
	return nil
}

// Each calls the given closure for all metrics, in name order.
func (r *Registry) Each(f func(name string, val interface{})) {
	r.mu.Lock()
	names := make([]string, 0, len(r.mu.tracked))
	for name := range r.mu.tracked {
		names = append(names, name)
	}
	tracked := make(map[string]Iterable, len(r.mu.tracked))
	for k, v := range r.mu.tracked {
		tracked[k] = v
	}
	r.mu.Unlock()
	sort.Strings(names)
	for _, name := range names {
		f(name, tracked[name])
	}
}

// Gather returns a snapshot of every metric, sorted by exported name.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	families, err := r.prom.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gathering metrics")
	}
	return families, nil
}

// WriteText writes every metric in the Prometheus text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	families, err := r.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "writing metrics")
		}
	}
	return nil
}
