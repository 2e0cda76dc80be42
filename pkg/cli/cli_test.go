// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/cli/exit"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
)

const testSchema = `
tables:
  - name: a
    rows: 100
    columns:
      - {name: a1, type: int, nullable: false}
      - {name: a2, type: int}
      - {name: a3, type: string}
  - name: b
    rows: 10
    columns:
      - {name: b1, type: int, nullable: false}
      - {name: b2, type: int}
      - {name: b3, type: string}
  - name: mv
    rows: 5
    columns:
      - {name: a1, type: int, nullable: false}
      - {name: a2, type: int}
      - {name: a3, type: string}
stars:
  - name: s
    tables: [a, b]
materializations:
  - table: mv
    query: (Filter (Scan a) (= $0 10))
`

// writeFile writes contents to a file in a temporary directory and returns
// its path.
func writeFile(t *testing.T, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

// runCLI runs the command with the given arguments and standard input, and
// returns its output.
func runCLI(stdin string, args ...string) (string, error) {
	initCLIDefaults()
	var out bytes.Buffer
	polyoptCmd.SetOut(&out)
	polyoptCmd.SetErr(&out)
	polyoptCmd.SetIn(strings.NewReader(stdin))
	err := Run(args)
	return out.String(), err
}

func TestPlan(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	schema := writeFile(t, "schema.yaml", testSchema)

	out, err := runCLI("", "plan", "--schema", schema, "--traits", "(Filter (Scan b) (= $0 10))")
	require.NoError(t, err)
	require.Equal(t, "Filter.ROW(condition=(= $0 10))\n └── Scan.ROW(table=t.b)\n", out)

	// The materialized view answers the query it stores.
	out, err = runCLI("", "plan", "--schema", schema, "(Filter (Scan a) (= $0 10))")
	require.NoError(t, err)
	require.Equal(t, "Scan(table=t.mv)\n", out)

	settings := writeFile(t, "settings.toml", `
[sql.opt.materializations]
enabled = false
`)
	out, err = runCLI("", "plan", "--schema", schema, "--settings", settings,
		"(Filter (Scan a) (= $0 10))")
	require.NoError(t, err)
	require.Equal(t, "Filter(condition=(= $0 10))\n └── Scan(table=t.a)\n", out)

	// Queries are read from standard input when there are no arguments.
	out, err = runCLI("(Scan a)\n\n(Filter (Scan a)\n  (= 1 2))\n;\n", "plan", "--schema", schema,
		"--parallel", "1")
	require.NoError(t, err)
	require.Equal(t, "query 1:\nScan(table=t.a)\nquery 2:\nValues(rows=[])\n", out)
}

func TestPlanLattice(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	schema := writeFile(t, "schema.yaml", testSchema+`
lattices:
  - name: l
    star: s
    query: (Join inner (Scan a) (Scan b) (= $1 $3))
`)
	out, err := runCLI("", "plan", "--schema", schema,
		"(Join inner (Join inner (Scan a) (Scan b) (= $1 $3)) (Scan b) (= $0 $6))")
	require.NoError(t, err)
	require.Contains(t, out, "Join(type=inner")
	require.Contains(t, out, "Scan(table=t.b)")

	out, err = runCLI("", "star", "--schema", schema, "--star", "s",
		"(Join inner (Join inner (Scan a) (Scan b) (= $1 $3)) (Scan b) (= $0 $6))")
	require.NoError(t, err)
	require.Contains(t, out, "Scan(table=t.s)")
}

func TestPlanHep(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	schema := writeFile(t, "schema.yaml", testSchema)
	out, err := runCLI("", "plan", "--schema", schema, "--planner", "hep", "--traits",
		"(Filter (Filter (Scan a) (= $0 1)) (> $1 2))")
	require.NoError(t, err)
	require.Equal(t,
		"Filter.ROW(condition=(and (= $0 1) (> $1 2)))\n └── Scan.ROW(table=t.a)\n", out)
}

func TestPlanMetrics(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	schema := writeFile(t, "schema.yaml", testSchema)
	out, err := runCLI("", "plan", "--schema", schema, "--metrics",
		"(Scan a)", "(Scan b)", "(Join inner (Scan a) (Scan b) (= $0 $3))")
	require.NoError(t, err)
	require.Contains(t, out, "query 3:\n")
	require.Contains(t, out, "# TYPE sql_opt_rules_fired counter")
	require.Contains(t, out, "# HELP sql_opt_cannot_plan ")
	require.Contains(t, out, "sql_opt_sessions_active 0")
	require.Contains(t, out, "sql_opt_hep_transformations")
}

func TestPlanErrors(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	schema := writeFile(t, "schema.yaml", testSchema)
	for _, tc := range []struct {
		name string
		args []string
		code exit.Code
		msg  string
	}{
		{
			name: "cannot plan",
			args: []string{"--convention", "scanonly", "--ops", "Scan", "(Filter (Scan a) (= $0 1))"},
			code: exit.PlanningFailure(),
			msg:  "query 1: planning for SCANONLY",
		},
		{
			name: "unknown op",
			args: []string{"--ops", "Scan,Window", "(Scan a)"},
			code: exit.CommandLineFlagError(),
			msg:  `unknown operator "Window"`,
		},
		{
			name: "parallel",
			args: []string{"--parallel", "0", "(Scan a)"},
			code: exit.CommandLineFlagError(),
			msg:  "--parallel must be at least 1",
		},
		{
			name: "planner",
			args: []string{"--planner", "greedy", "(Scan a)"},
			code: exit.CommandLineFlagError(),
			msg:  `unknown planner "greedy"`,
		},
		{
			name: "match order",
			args: []string{"--match-order", "sideways", "(Scan a)"},
			code: exit.CommandLineFlagError(),
			msg:  `unknown match order "sideways"`,
		},
		{
			name: "unknown flag",
			args: []string{"--nope", "(Scan a)"},
			code: exit.CommandLineFlagError(),
			msg:  "unknown flag: --nope",
		},
		{
			name: "no queries",
			args: nil,
			code: exit.CommandLineFlagError(),
			msg:  "no queries given",
		},
		{
			name: "bad query",
			args: []string{"(Scan a)", "(Scan nope)"},
			code: exit.UnspecifiedError(),
			msg:  "query 2: no data source matches prefix: nope",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI("", append([]string{"plan", "--schema", schema}, tc.args...)...)
			require.Error(t, err)
			require.Equal(t, tc.code, exitCode(err))
			require.Contains(t, err.Error(), tc.msg)
		})
	}

	_, err := runCLI("", "plan", "--schema", filepath.Join(t.TempDir(), "missing.yaml"), "(Scan a)")
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading schema")

	_, err = runCLI("", "plan", "--convention", "scanonly", "--ops", "Scan", "--schema", schema,
		"(Filter (Scan a) (= $0 1))")
	require.True(t, opt.IsCannotPlan(err))
}

func TestLeafJoin(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	schema := writeFile(t, "schema.yaml", testSchema)
	out, err := runCLI("", "leafjoin", "--schema", schema,
		"(Filter (Join inner (Scan a) (Scan b) (= $0 $3)) (= $1 10))")
	require.NoError(t, err)
	require.Equal(t, `Join(type=inner, condition=(= $0 $3))
 ├── Filter(condition=(= $1 10))
 │    └── Scan(table=t.a)
 └── Scan(table=t.b)
`, out)
}

func TestStar(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	schema := writeFile(t, "schema.yaml", testSchema)
	out, err := runCLI("", "star", "--schema", schema, "--star", "s",
		"(Filter (Join inner (Scan a) (Scan b) (= $1 $3)) (= $0 10))",
		"(Scan b)")
	require.NoError(t, err)
	require.Equal(t, `query 1:
Filter(condition=(and (= $0 10) (= $1 $3)))
 └── Project(exprs=[$0, $1, $2, $3, $4, $5])
      └── Scan(table=t.s)
query 2:
no match
`, out)

	_, err = runCLI("", "star", "--schema", schema, "--star", "a", "(Scan a)")
	require.Error(t, err)
	require.Contains(t, err.Error(), "a is not a star table")
}

func TestSettings(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	settings := writeFile(t, "settings.toml", `
[sql.opt]
max_rule_firings = 500
`)
	out, err := runCLI("", "settings", "--settings", settings)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, []string{"name", "type", "default", "value", "description"},
		strings.Fields(lines[0]))

	var found bool
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if fields[0] == "sql.opt.max_rule_firings" {
			found = true
			require.Equal(t, []string{"int", "10000", "500"}, fields[1:4])
		}
	}
	require.True(t, found, out)
	require.Contains(t, out, "sql.opt.hep.match_limit")

	_, err = runCLI("", "settings", "sql.opt.nope")
	require.Equal(t, exit.CommandLineFlagError(), exitCode(err))

	bad := writeFile(t, "bad.toml", `
[sql.opt]
max_rule_firings = -1
`)
	_, err = runCLI("", "settings", "--settings", bad)
	require.Error(t, err)
}
