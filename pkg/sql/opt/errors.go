// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
)

// ErrCannotPlan marks errors returned when a planner finds no implementable
// expression with the required traits.
var ErrCannotPlan = errors.New("cannot plan")

// ErrQueryCanceled marks errors returned when planning is canceled.
var ErrQueryCanceled = errors.New("query canceled")

// NewCannotPlanError returns the error reported when no expression in an
// executable convention satisfies required. It carries the PlanningFailure
// code so that it is reported apart from execution errors.
func NewCannotPlanError(required *TraitSet, root RelNode) error {
	err := pgerror.Newf(pgcode.PlanningFailure,
		"could not plan %s with traits %s", errors.Safe(root.Op()), errors.Safe(required.String()))
	err = errors.Mark(err, ErrCannotPlan)
	return errors.WithHint(err,
		"no rule or converter implements the expression in the required convention")
}

// IsCannotPlan returns whether err reports a planning failure.
func IsCannotPlan(err error) bool {
	return errors.Is(err, ErrCannotPlan)
}

// NewQueryCanceledError returns the error reported when planning stops on
// a cancellation request.
func NewQueryCanceledError() error {
	return errors.Mark(
		pgerror.New(pgcode.QueryCanceled, "query execution canceled during planning"),
		ErrQueryCanceled)
}

// IsQueryCanceled returns whether err reports a canceled planning session.
func IsQueryCanceled(err error) bool {
	return errors.Is(err, ErrQueryCanceled)
}
