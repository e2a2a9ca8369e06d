package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"swimeeter/internal/fixture"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <fixture.yaml>",
		Short: "Create a meet from a YAML fixture",
		Long: `Create a meet, its sessions, events, teams, swimmers and entries from a
YAML fixture. Every record goes through the validated service API as the
--host caller; if any record is rejected the partial meet is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fixture.ParseFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid fixture", err)
			}
			return withApp(cmd, rootOpts, func(a *app) error {
				return loadFixture(cmd, a, f)
			})
		},
	}
}

func loadFixture(cmd *cobra.Command, a *app, f fixture.Fixture) error {
	req, err := a.request()
	if err != nil {
		return err
	}
	svc, err := a.service(cmd.Context())
	if err != nil {
		return err
	}
	sum, err := fixture.Load(cmd.Context(), svc, req, f)
	if err != nil {
		return WrapExitError(ExitFailure, "load rejected", err)
	}
	a.logger.Info("meet loaded", "meet_id", sum.MeetID, "events", sum.Events, "entries", sum.Entries+sum.Relays)
	return emit(cmd.OutOrStdout(), a.opts.Format, sum, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "meet %s: %d sessions, %d events, %d teams, %d swimmers, %d entries, %d relays, %d seeded\n",
			sum.MeetID, sum.Sessions, sum.Events, sum.Teams, sum.Swimmers, sum.Entries, sum.Relays, sum.Seeded)
		for _, d := range sum.Duplicates {
			if err == nil {
				_, err = fmt.Fprintf(w, "duplicate %s\n", d)
			}
		}
		return err
	})
}
