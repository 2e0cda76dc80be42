// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cli implements the polyopt command: it loads a catalog and
// planner settings from files and plans queries written in the expression
// language of package exprgen.
package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/cli/exit"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "output version information",
	Long: `
Output build version information.
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "polyopt (unknown version)")
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "polyopt %s\n", info.Main.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Go Version: %s\n", info.GoVersion)
	},
}

var polyoptCmd = &cobra.Command{
	Use:   "polyopt [command] (flags)",
	Short: "query planner command-line interface",
	Long: `
Plan relational expressions against a catalog described in YAML, with
cost-based or rule-based planners.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.EnableCommandSorting = false
	polyoptCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagError(err)
	})

	polyoptCmd.AddCommand(
		planCmd,
		leafJoinCmd,
		starCmd,
		settingsCmd,
		versionCmd,
	)
}

// Main is the entry point for the polyopt command.
func Main() {
	err := Run(os.Args[1:])
	code := exitCode(err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		for _, h := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "HINT: %s\n", h)
		}
		log.Infof(context.Background(), "exiting with code %d (%s)", code.Int(), code)
	}
	exit.WithCode(code)
}

// Run executes the polyopt command with the given arguments.
func Run(args []string) error {
	polyoptCmd.SetArgs(args)
	return polyoptCmd.Execute()
}

// flagError marks errors caused by the command line.
type flagError struct {
	cause error
}

func newFlagError(cause error) error { return &flagError{cause: cause} }

func (e *flagError) Error() string { return e.cause.Error() }
func (e *flagError) Cause() error  { return e.cause }
func (e *flagError) Unwrap() error { return e.cause }

// exitCode maps the error returned by a command to the process exit code.
func exitCode(err error) exit.Code {
	if err == nil {
		return exit.Success()
	}
	if errors.HasType(err, (*flagError)(nil)) {
		return exit.CommandLineFlagError()
	}
	if opt.IsCannotPlan(err) {
		return exit.PlanningFailure()
	}
	return exit.UnspecifiedError()
}
