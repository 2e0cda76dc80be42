// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/cli/cliflags"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// AddPersistentPreRunE add 'fn' as a persistent pre-run function to 'cmd'.
// If the command has an existing pre-run function, it is saved and will be called
// at the beginning of 'fn'.
// This allows an arbitrary number of pre-run functions with ordering based
// on the order in which AddPersistentPreRunE is called (usually package init order).
func AddPersistentPreRunE(cmd *cobra.Command, fn func(*cobra.Command, []string) error) {
	// Save any existing hooks.
	wrapped := cmd.PersistentPreRunE

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Run the previous hook if it exists.
		if wrapped != nil {
			if err := wrapped(cmd, args); err != nil {
				return err
			}
		}

		// Now we can call the new function.
		return fn(cmd, args)
	}
}

func setFlagFromEnv(f *pflag.FlagSet, flagInfo cliflags.FlagInfo) {
	if flagInfo.EnvVar != "" {
		if value, set := os.LookupEnv(flagInfo.EnvVar); set {
			if err := f.Set(flagInfo.Name, value); err != nil {
				panic(errors.Wrapf(err, "invalid value for %s", flagInfo.EnvVar))
			}
		}
	}
}

// StringFlag creates a string flag and registers it with the FlagSet.
func StringFlag(f *pflag.FlagSet, valPtr *string, flagInfo cliflags.FlagInfo, defaultVal string) {
	f.StringVarP(valPtr, flagInfo.Name, flagInfo.Shorthand, defaultVal, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

// StringSliceFlag creates a string slice flag and registers it with the
// FlagSet.
func StringSliceFlag(
	f *pflag.FlagSet, valPtr *[]string, flagInfo cliflags.FlagInfo, defaultVal []string,
) {
	f.StringSliceVarP(valPtr, flagInfo.Name, flagInfo.Shorthand, defaultVal, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

// IntFlag creates an int flag and registers it with the FlagSet.
func IntFlag(f *pflag.FlagSet, valPtr *int, flagInfo cliflags.FlagInfo, defaultVal int) {
	f.IntVarP(valPtr, flagInfo.Name, flagInfo.Shorthand, defaultVal, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

// BoolFlag creates a bool flag and registers it with the FlagSet.
func BoolFlag(f *pflag.FlagSet, valPtr *bool, flagInfo cliflags.FlagInfo, defaultVal bool) {
	f.BoolVarP(valPtr, flagInfo.Name, flagInfo.Shorthand, defaultVal, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

func init() {
	initCLIDefaults()

	// Every command reads the catalog and the settings.
	{
		f := polyoptCmd.PersistentFlags()
		StringFlag(f, &cliCtx.schemaPath, cliflags.Schema, cliCtx.schemaPath)
		StringFlag(f, &cliCtx.settingsPath, cliflags.Settings, cliCtx.settingsPath)
		IntFlag(f, &cliCtx.verbosity, cliflags.Verbosity, cliCtx.verbosity)
	}

	{
		f := planCmd.Flags()
		StringFlag(f, &planCtx.convention, cliflags.Convention, planCtx.convention)
		StringSliceFlag(f, &planCtx.ops, cliflags.Ops, planCtx.ops)
		StringFlag(f, &planCtx.planner, cliflags.Planner, planCtx.planner)
		StringFlag(f, &planCtx.matchOrder, cliflags.MatchOrder, planCtx.matchOrder)
		IntFlag(f, &planCtx.parallel, cliflags.Parallel, planCtx.parallel)
		BoolFlag(f, &planCtx.metrics, cliflags.Metrics, planCtx.metrics)
		BoolFlag(f, &planCtx.traits, cliflags.Traits, planCtx.traits)
	}

	{
		f := starCmd.Flags()
		StringFlag(f, &starCtx.star, cliflags.Star, starCtx.star)
		_ = starCmd.MarkFlagRequired(cliflags.Star.Name)
	}

	AddPersistentPreRunE(polyoptCmd, func(_ *cobra.Command, _ []string) error {
		if cliCtx.verbosity < 0 {
			return newFlagError(errors.Newf("--%s must not be negative", cliflags.Verbosity.Name))
		}
		log.SetVerbosity(int32(cliCtx.verbosity))
		return nil
	})
}
