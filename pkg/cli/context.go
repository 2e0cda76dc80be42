// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import "github.com/cockroachdb/polyopt/pkg/sql/opt/exec"

// cliContext holds the values of the command-line flags shared by all
// commands.
type cliContext struct {
	// schemaPath is the YAML file describing the catalog.
	schemaPath string
	// settingsPath is the TOML file overriding planner settings.
	settingsPath string
	// verbosity is the log verbosity.
	verbosity int
}

// planContext holds the values of the flags of the plan command.
type planContext struct {
	convention string
	ops        []string
	planner    string
	matchOrder string
	parallel   int
	metrics    bool
	traits     bool
}

// starContext holds the values of the flags of the star command.
type starContext struct {
	star string
}

var cliCtx cliContext
var planCtx planContext
var starCtx starContext

// initCLIDefaults resets the flag values to their defaults. It is called
// once at initialization and by tests between commands, since cobra does
// not reset flags between executions.
func initCLIDefaults() {
	cliCtx = cliContext{}
	planCtx = planContext{
		convention: exec.RowEngineName,
		planner:    volcanoPlanner,
		matchOrder: "depth-first",
		parallel:   4,
	}
	starCtx = starContext{}
}

const (
	volcanoPlanner = "volcano"
	hepPlanner     = "hep"
)
