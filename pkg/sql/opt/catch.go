// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"runtime"

	"github.com/cockroachdb/errors"
)

// CatchOptimizerError converts a value recovered from a planner panic into
// an error. Planner internals report precondition violations by panicking
// with assertion failures, so entry points that return errors use:
//
//	defer func() {
//	  if r := recover(); r != nil {
//	    err = opt.CatchOptimizerError(r)
//	  }
//	}()
//
// Values that are not errors come from the Go runtime (scheduler or
// allocator failures) and are re-raised.
func CatchOptimizerError(r interface{}) error {
	err, ok := r.(error)
	if !ok {
		panic(r)
	}
	if errors.HasInterface(err, (*runtime.Error)(nil)) {
		// Runtime errors such as nil dereferences become assertion failures,
		// which carry stacks.
		return errors.HandleAsAssertionFailure(err)
	}
	return err
}
