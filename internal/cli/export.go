package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"swimeeter/internal/archive"
	"swimeeter/internal/core"
	"swimeeter/internal/fixture"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		toArchive bool
		asFixture bool
	)
	cmd := &cobra.Command{
		Use:   "export <meet-id>",
		Short: "Export a meet as JSON, as a YAML fixture, or into the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				svc, err := a.service(cmd.Context())
				if err != nil {
					return err
				}
				req, err := a.request()
				if err != nil {
					return err
				}
				export, err := svc.ExportMeet(cmd.Context(), req.Caller, args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "export", err)
				}
				if toArchive {
					store, err := a.archives(cmd.Context())
					if err != nil {
						return err
					}
					entry, err := store.Save(cmd.Context(), export)
					if err != nil {
						return WrapExitError(ExitFailure, "archive", err)
					}
					a.logger.Info("meet archived", "meet_id", entry.MeetID, "key", entry.Key)
					return writeEntry(cmd.OutOrStdout(), rootOpts.Format, entry)
				}
				return writeExport(cmd.OutOrStdout(), export, asFixture)
			})
		},
	}
	cmd.Flags().BoolVar(&toArchive, "archive", false, "store the export as a new archive snapshot")
	cmd.Flags().BoolVar(&asFixture, "fixture", false, "write a YAML fixture that load accepts")
	return cmd
}

func writeExport(w io.Writer, export core.MeetExport, asFixture bool) error {
	if !asFixture {
		return emit(w, "json", export, nil)
	}
	doc, err := fixture.Marshal(fixture.FromExport(export))
	if err != nil {
		return err
	}
	_, err = w.Write(doc)
	return err
}

func writeEntry(w io.Writer, format string, entry archive.Entry) error {
	return emit(w, format, entry, func(w io.Writer) error {
		return entryLines(w, []archive.Entry{entry})
	})
}

func writeEntries(w io.Writer, format string, entries []archive.Entry) error {
	return emit(w, format, entries, func(w io.Writer) error {
		return entryLines(w, entries)
	})
}

func entryLines(w io.Writer, entries []archive.Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d bytes\t%s\n", e.Key, e.Taken.Format("2006-01-02 15:04:05Z07:00"), e.Size, e.Driver); err != nil {
			return err
		}
	}
	return nil
}
