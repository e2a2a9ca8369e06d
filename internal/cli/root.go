// Package cli implements the swimeeter operator commands.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	Format  string // "json" | "text"
	Host    string
	Policy  string
	Trace   bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the swimeeter CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "swimeeter",
		Short: "Swim meet invariant engine",
		Long: `Operate on stored swim meets: load YAML fixtures through the validated
service API, audit every invariant rule, and export or archive meets.

Settings come from SWIMEETER_* environment variables, optionally read from
a dotenv file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Host, "host", "", "host id to act as")
	cmd.PersistentFlags().StringVar(&opts.Policy, "duplicate-handling", "", "duplicate policy (keep_both|keep_new|keep_originals)")
	cmd.PersistentFlags().BoolVar(&opts.Trace, "trace", false, "trace service operations (JSON spans on stderr, or OpenTelemetry with SWIMEETER_TRACER=otel)")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewArchivesCommand(opts))

	return cmd
}
