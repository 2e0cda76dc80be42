// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cliflags defines the names, environment variables and help texts
// of the command-line flags of polyopt.
package cliflags

import (
	"fmt"
	"strings"
)

// FlagInfo contains the static information for a CLI flag and helper
// to format the description.
type FlagInfo struct {
	// Name of the flag as used on the command line.
	Name string

	// Shorthand is the short form of the flag (optional).
	Shorthand string

	// EnvVar is the name of the environment variable through which the flag
	// value can be controlled (optional).
	EnvVar string

	// Description of the flag.
	Description string
}

// Usage returns a formatted usage string for the flag, including the
// environment variable if there is one.
func (f FlagInfo) Usage() string {
	s := "\n" + strings.TrimSpace(f.Description) + "\n"
	if f.EnvVar != "" {
		s += fmt.Sprintf("Environment variable: %s\n", f.EnvVar)
	}
	// Pad the usage so that pflag's column layout does not join it to the
	// flag name.
	return strings.ReplaceAll(s, "\n", "\n   ")
}

// Attrs and help strings for the flags of the polyopt commands.
var (
	Schema = FlagInfo{
		Name:   "schema",
		EnvVar: "POLYOPT_SCHEMA",
		Description: `
Path to a YAML file describing the tables, star tables, materializations
and lattices that queries may reference.`,
	}

	Settings = FlagInfo{
		Name:   "settings",
		EnvVar: "POLYOPT_SETTINGS",
		Description: `
Path to a TOML file overriding planner settings. Nested tables are
flattened into dotted setting names.`,
	}

	Convention = FlagInfo{
		Name:   "convention",
		EnvVar: "POLYOPT_CONVENTION",
		Description: `
Name of the calling convention plans are requested in. ROW selects the
built-in row engine; any other name creates an engine executing the
operators listed with --ops.`,
	}

	Ops = FlagInfo{
		Name: "ops",
		Description: `
Comma-separated list of operators executed by a --convention other
than ROW. An empty list means every operator.`,
	}

	Planner = FlagInfo{
		Name:   "planner",
		EnvVar: "POLYOPT_PLANNER",
		Description: `
The planner to use: "volcano" for the cost-based planner or "hep" for
the rule-based planner.`,
	}

	Star = FlagInfo{
		Name:        "star",
		Description: `Name of the star table queries are rewritten against.`,
	}

	Metrics = FlagInfo{
		Name: "metrics",
		Description: `
Print the planner metrics in the Prometheus text format after all
queries were planned.`,
	}

	Parallel = FlagInfo{
		Name:   "parallel",
		EnvVar: "POLYOPT_PARALLEL",
		Description: `
Number of queries planned concurrently. Each query is planned in a
planner of its own.`,
	}

	Traits = FlagInfo{
		Name:        "traits",
		Description: `Include the traits of each expression in the printed plans.`,
	}

	MatchOrder = FlagInfo{
		Name: "match-order",
		Description: `
Order in which the rule-based planner visits expressions: arbitrary,
depth-first, bottom-up or top-down.`,
	}

	Verbosity = FlagInfo{
		Name:      "verbosity",
		Shorthand: "v",
		EnvVar:    "POLYOPT_VERBOSITY",
		Description: `
Log verbosity. Planner events are logged to stderr at levels 1 and
above.`,
	}
)
