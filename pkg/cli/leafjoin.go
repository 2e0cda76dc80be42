// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/materialize"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optgen/exprgen"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/spf13/cobra"
)

var leafJoinCmd = &cobra.Command{
	Use:   "leafjoin [query...]",
	Short: "print queries in leaf-join form",
	Long: `
Rewrite each query so that projections sit above joins and filters are
pushed into them, the form in which queries are matched against
materialized views.
`,
	RunE: runLeafJoin,
}

var starCmd = &cobra.Command{
	Use:   "star --star <name> [query...]",
	Short: "rewrite queries to read a star table",
	Long: `
Rewrite each query to read the star table named by --star wherever it
joins the star's constituent tables. Queries that cannot use the star are
reported as such.
`,
	RunE: runStar,
}

// eachQuery builds every query of the command and calls fn on it. The
// queries are built in a cluster of their own, planned by no one.
func eachQuery(
	cmd *cobra.Command,
	args []string,
	tag string,
	fn func(ctx context.Context, e *env, n opt.RelNode) (string, error),
) error {
	ctx := logtags.AddTag(context.Background(), tag, nil)
	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	queries, err := readQueries(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	cluster := norm.New(nil, optctx.Of(e.sv)).Cluster()
	out := cmd.OutOrStdout()
	for i, q := range queries {
		n, err := exprgen.Build(ctx, cluster, e.catalog, q)
		if err != nil {
			return errors.Wrapf(err, "query %d", i+1)
		}
		res, err := fn(ctx, e, n)
		if err != nil {
			return errors.Wrapf(err, "query %d", i+1)
		}
		if len(queries) > 1 {
			fmt.Fprintf(out, "query %d:\n", i+1)
		}
		fmt.Fprint(out, res)
	}
	return nil
}

func runLeafJoin(cmd *cobra.Command, args []string) error {
	return eachQuery(cmd, args, "leafjoin",
		func(ctx context.Context, _ *env, n opt.RelNode) (string, error) {
			res, err := materialize.ToLeafJoinForm(ctx, n)
			if err != nil {
				return "", err
			}
			return rel.Format(res, 0), nil
		})
}

func runStar(cmd *cobra.Command, args []string) error {
	return eachQuery(cmd, args, "star",
		func(ctx context.Context, e *env, n opt.RelNode) (string, error) {
			star, err := e.resolveStar(ctx, starCtx.star)
			if err != nil {
				return "", err
			}
			leaf, err := materialize.ToLeafJoinForm(ctx, n)
			if err != nil {
				return "", err
			}
			res, ok := materialize.TryUseStar(ctx, leaf, star)
			if !ok {
				return "no match\n", nil
			}
			return rel.Format(res, 0), nil
		})
}
