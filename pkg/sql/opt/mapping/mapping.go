// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package mapping implements partial, injective functions between column
// ordinals. A mapping relates the columns of a source row (such as a table)
// to the columns of a target row (such as the output of a projection).
package mapping

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Mapping is a partial injective function from [0, SourceCount) to
// [0, TargetCount). Mappings are built with New and Set and are not
// modified once handed out.
type Mapping struct {
	targets []int // by source; -1 if unmapped
	sources []int // by target; -1 if unmapped
	size    int
}

// New returns an empty mapping with the given domain and range sizes.
func New(sourceCount, targetCount int) *Mapping {
	m := &Mapping{targets: make([]int, sourceCount), sources: make([]int, targetCount)}
	for i := range m.targets {
		m.targets[i] = -1
	}
	for i := range m.sources {
		m.sources[i] = -1
	}
	return m
}

// Identity returns the mapping of each of n columns to itself.
func Identity(n int) *Mapping {
	m := New(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i)
	}
	return m
}

// CreateShiftMapping returns a mapping with the given source count built
// from (target, source, length) triples: source+i maps to target+i for i in
// [0, length). The target count is the highest target mapped plus one.
func CreateShiftMapping(sourceCount int, triples ...int) *Mapping {
	if len(triples)%3 != 0 {
		panic(errors.AssertionFailedf("shift mapping needs (target, source, length) triples, got %d ints", len(triples)))
	}
	targetCount := 0
	for i := 0; i < len(triples); i += 3 {
		if end := triples[i] + triples[i+2]; end > targetCount {
			targetCount = end
		}
	}
	m := New(sourceCount, targetCount)
	for i := 0; i < len(triples); i += 3 {
		target, source, length := triples[i], triples[i+1], triples[i+2]
		for j := 0; j < length; j++ {
			m.Set(source+j, target+j)
		}
	}
	return m
}

// Set maps source to target. Mapping a source or a target twice is a
// programming error and panics.
func (m *Mapping) Set(source, target int) {
	if source < 0 || source >= len(m.targets) || target < 0 || target >= len(m.sources) {
		panic(errors.AssertionFailedf(
			"pair %d->%d out of bounds for mapping %d->%d",
			source, target, len(m.targets), len(m.sources)))
	}
	if m.targets[source] == target {
		return
	}
	if m.targets[source] >= 0 || m.sources[target] >= 0 {
		panic(errors.AssertionFailedf("pair %d->%d conflicts with mapping %s", source, target, m))
	}
	m.targets[source] = target
	m.sources[target] = source
	m.size++
}

// SourceCount returns the size of the domain.
func (m *Mapping) SourceCount() int { return len(m.targets) }

// TargetCount returns the size of the range.
func (m *Mapping) TargetCount() int { return len(m.sources) }

// Size returns the number of mapped pairs.
func (m *Mapping) Size() int { return m.size }

// Target returns the target of source, if it is mapped.
func (m *Mapping) Target(source int) (int, bool) {
	if source < 0 || source >= len(m.targets) || m.targets[source] < 0 {
		return 0, false
	}
	return m.targets[source], true
}

// Source returns the source mapped to target, if any.
func (m *Mapping) Source(target int) (int, bool) {
	if target < 0 || target >= len(m.sources) || m.sources[target] < 0 {
		return 0, false
	}
	return m.sources[target], true
}

// ForEach calls fn for each pair in increasing source order.
func (m *Mapping) ForEach(fn func(source, target int)) {
	for s, t := range m.targets {
		if t >= 0 {
			fn(s, t)
		}
	}
}

// IsIdentity returns whether the mapping maps each of its columns to itself
// and has equal source and target counts.
func (m *Mapping) IsIdentity() bool {
	if len(m.targets) != len(m.sources) || m.size != len(m.targets) {
		return false
	}
	for s, t := range m.targets {
		if s != t {
			return false
		}
	}
	return true
}

// IsSurjective returns whether every target is mapped.
func (m *Mapping) IsSurjective() bool { return m.size == len(m.sources) }

// Inverse returns the mapping from targets back to sources.
func (m *Mapping) Inverse() *Mapping {
	inv := New(len(m.sources), len(m.targets))
	m.ForEach(func(s, t int) { inv.Set(t, s) })
	return inv
}

// TargetList returns, for each target, the source mapped to it, or -1.
func (m *Mapping) TargetList() []int {
	return append([]int(nil), m.sources...)
}

// SourceList returns, for each source, its target, or -1.
func (m *Mapping) SourceList() []int {
	return append([]int(nil), m.targets...)
}

// OffsetSource returns a mapping whose sources are shifted up by offset. The
// source count grows by offset.
func OffsetSource(m *Mapping, offset int) *Mapping {
	res := New(len(m.targets)+offset, len(m.sources))
	m.ForEach(func(s, t int) { res.Set(s+offset, t) })
	return res
}

// OffsetTarget returns a mapping whose targets are shifted up by offset. The
// target count grows by offset.
func OffsetTarget(m *Mapping, offset int) *Mapping {
	res := New(len(m.targets), len(m.sources)+offset)
	m.ForEach(func(s, t int) { res.Set(s, t+offset) })
	return res
}

// Merge returns the union of two mappings, with the larger of their source
// and target counts. The pairs of the two mappings may not conflict.
func Merge(a, b *Mapping) *Mapping {
	sourceCount, targetCount := len(a.targets), len(a.sources)
	if len(b.targets) > sourceCount {
		sourceCount = len(b.targets)
	}
	if len(b.sources) > targetCount {
		targetCount = len(b.sources)
	}
	res := New(sourceCount, targetCount)
	a.ForEach(res.Set)
	b.ForEach(res.Set)
	return res
}

// Compose returns the mapping that applies a, then b. Sources of a whose
// target is not mapped by b are dropped.
func Compose(a, b *Mapping) *Mapping {
	res := New(len(a.targets), len(b.sources))
	a.ForEach(func(s, t int) {
		if t2, ok := b.Target(t); ok {
			res.Set(s, t2)
		}
	})
	return res
}

// String formats the mapping as its counts followed by its pairs, such as
// "[3->2, 0:1, 2:0]".
func (m *Mapping) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d->%d", len(m.targets), len(m.sources))
	m.ForEach(func(s, t int) { fmt.Fprintf(&b, ", %d:%d", s, t) })
	b.WriteByte(']')
	return b.String()
}
