// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package optctx provides the capability lookup object through which a
// planner finds optional collaborators, such as a cancellation flag or a
// connection configuration, without widening its constructor.
package optctx

import "reflect"

// Context wraps zero or more values that can be looked up by type. Contexts
// are immutable. Implementations must be comparable, since chains remove
// duplicate contexts by identity.
type Context interface {
	// values returns the wrapped values in lookup order.
	values() []interface{}
}

type emptyContext struct{}

func (emptyContext) values() []interface{} { return nil }

// wrapContext holds a single value. It is always handled by pointer, so two
// wraps of the same value are distinct contexts.
type wrapContext struct {
	target interface{}
}

func (w *wrapContext) values() []interface{} { return []interface{}{w.target} }

// chainContext consults its members in order. Members are never chains
// themselves.
type chainContext struct {
	contexts []Context
}

func (c *chainContext) values() []interface{} {
	var res []interface{}
	for _, ctx := range c.contexts {
		res = append(res, ctx.values()...)
	}
	return res
}

// Empty returns a context that wraps nothing.
func Empty() Context {
	return emptyContext{}
}

// Of returns a context wrapping the given values. Nil values, including
// typed nil pointers, are ignored; a value that is itself a Context is
// chained rather than wrapped.
func Of(vals ...interface{}) Context {
	contexts := make([]Context, 0, len(vals))
	for _, v := range vals {
		if isNil(v) {
			continue
		}
		switch t := v.(type) {
		case Context:
			contexts = append(contexts, t)
		default:
			contexts = append(contexts, &wrapContext{target: v})
		}
	}
	return Chain(contexts...)
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Chain returns a context that consults each of the given contexts in turn.
// Nested chains are flattened into one level, empty contexts are dropped and
// a context that appears more than once is kept only at its first position.
func Chain(contexts ...Context) Context {
	var flat []Context
	var add func(c Context)
	add = func(c Context) {
		switch t := c.(type) {
		case nil, emptyContext:
		case *chainContext:
			for _, m := range t.contexts {
				add(m)
			}
		default:
			for _, existing := range flat {
				if existing == c {
					return
				}
			}
			flat = append(flat, c)
		}
	}
	for _, c := range contexts {
		add(c)
	}
	switch len(flat) {
	case 0:
		return Empty()
	case 1:
		return flat[0]
	}
	return &chainContext{contexts: flat}
}

// Unwrap returns the first value in c, in chain order, that has type T.
func Unwrap[T any](c Context) (T, bool) {
	if c != nil {
		for _, v := range c.values() {
			if t, ok := v.(T); ok {
				return t, true
			}
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of top-level members of c: zero for an empty
// context, one for a wrapped value, and the member count of a chain.
func Len(c Context) int {
	switch t := c.(type) {
	case nil, emptyContext:
		return 0
	case *chainContext:
		return len(t.contexts)
	}
	return 1
}
