// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/settings"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings [name...]",
	Short: "list planner settings",
	Long: `
List the planner settings with their type, default and current value.
Current values reflect the file given with --settings.
`,
	RunE: runSettings,
}

var settingTypes = map[string]string{
	"b": "bool",
	"i": "int",
	"f": "float",
	"s": "string",
}

func runSettings(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(context.Background())
	if err != nil {
		return err
	}
	keys := args
	if len(keys) == 0 {
		keys = settings.Keys()
	}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		s, desc, ok := settings.Lookup(k)
		if !ok {
			return newFlagError(errors.Newf("unknown setting %q", k))
		}
		rows = append(rows, []string{k, settingTypes[s.Typ()], s.EncodedDefault(), s.Encoded(e.sv), desc})
	}

	// A borderless table, one setting per line.
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.SetHeader([]string{"name", "type", "default", "value", "description"})
	table.AppendBulk(rows)
	table.Render()
	return nil
}
