// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
	"github.com/stretchr/testify/require"
)

func TestCannotPlanError(t *testing.T) {
	d := NewConventionTraitDef()
	required := NewEmptyTraitSet().Plus(d.NewConvention(ConventionSpec{Name: "ROW"}))
	root := &testRel{id: 1, name: "Scan", traits: required}

	err := NewCannotPlanError(required, root)
	require.True(t, IsCannotPlan(err))
	require.False(t, IsQueryCanceled(err))
	require.Equal(t, pgcode.PlanningFailure, pgerror.GetPGCode(err))
	require.Contains(t, err.Error(), "could not plan Scan with traits ROW")
	require.NotEmpty(t, errors.GetAllHints(err))

	wrapped := errors.Wrap(err, "optimizing")
	require.True(t, IsCannotPlan(wrapped))

	canceled := NewQueryCanceledError()
	require.True(t, IsQueryCanceled(canceled))
	require.Equal(t, pgcode.QueryCanceled, pgerror.GetPGCode(canceled))
}

func TestCatchOptimizerError(t *testing.T) {
	run := func(f func()) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = CatchOptimizerError(r)
			}
		}()
		f()
		return nil
	}

	err := run(func() { panic(errors.AssertionFailedf("bad slot")) })
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))

	err = run(func() {
		var m map[string]int
		m["x"] = 1
	})
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))

	require.NoError(t, run(func() {}))
	require.Panics(t, func() { _ = run(func() { panic("not an error") }) })
}
