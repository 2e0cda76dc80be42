// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package materialize rewrites queries to read materialized views instead
// of the tables they were computed from.
//
// Queries are first brought into leaf-join form, a tree of inner joins whose
// leaves are scans with at most a projection and a filter on top. Star
// substitution then walks the tree bottom-up, folding every join of two
// leaves that belong to the same star table into a scan of the star table.
package materialize

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rules"
)

var leafJoinProgram = (&norm.ProgramBuilder{}).
	AddMatchOrder(norm.MatchOrderBottomUp).
	AddRuleCollection(rules.LeafJoinRules()...).
	Build()

var cleanupProgram = (&norm.ProgramBuilder{}).
	AddRuleCollection(rules.CleanupRules()...).
	Build()

// ToLeafJoinForm returns rel with projections pulled above joins and
// filters pushed into them. Applying it to its own result returns an
// equivalent tree.
func ToLeafJoinForm(ctx context.Context, rel opt.RelNode) (opt.RelNode, error) {
	res, err := norm.Rewrite(ctx, leafJoinProgram, rel)
	if err != nil {
		return nil, errors.Wrap(err, "computing leaf-join form")
	}
	return res, nil
}
