package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"swimeeter/internal/archive"
	"swimeeter/internal/fixture"
)

// NewArchivesCommand creates the archives command group.
func NewArchivesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archives",
		Short: "Inspect and restore archived meet snapshots",
	}
	cmd.AddCommand(
		newArchivesListCommand(rootOpts),
		newArchivesLatestCommand(rootOpts),
		newArchivesShowCommand(rootOpts),
		newArchivesLinkCommand(rootOpts),
		newArchivesPruneCommand(rootOpts),
		newArchivesRestoreCommand(rootOpts),
	)
	return cmd
}

// withArchive runs fn against the configured archive store.
func withArchive(cmd *cobra.Command, opts *RootOptions, fn func(*app, *archive.Archive) error) error {
	return withApp(cmd, opts, func(a *app) error {
		store, err := a.archives(cmd.Context())
		if err != nil {
			return err
		}
		return fn(a, store)
	})
}

func archiveFailure(op string, err error) error {
	if errors.Is(err, archive.ErrNotFound) {
		return WrapExitError(ExitFailure, op, err)
	}
	return WrapExitError(ExitCommandError, op, err)
}

func newArchivesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [meet-id]",
		Short: "List snapshots, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meetID := ""
			if len(args) == 1 {
				meetID = args[0]
			}
			return withArchive(cmd, rootOpts, func(_ *app, store *archive.Archive) error {
				entries, err := store.List(cmd.Context(), meetID)
				if err != nil {
					return archiveFailure("list", err)
				}
				return writeEntries(cmd.OutOrStdout(), rootOpts.Format, entries)
			})
		},
	}
}

func newArchivesLatestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "latest <meet-id>",
		Short: "Show the newest snapshot of a meet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd, rootOpts, func(_ *app, store *archive.Archive) error {
				entry, err := store.Latest(cmd.Context(), args[0])
				if err != nil {
					return archiveFailure("latest", err)
				}
				return writeEntry(cmd.OutOrStdout(), rootOpts.Format, entry)
			})
		},
	}
}

func newArchivesShowCommand(rootOpts *RootOptions) *cobra.Command {
	var asFixture bool
	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Print a snapshot as JSON or as a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd, rootOpts, func(_ *app, store *archive.Archive) error {
				export, err := store.Load(cmd.Context(), args[0])
				if err != nil {
					return archiveFailure("show", err)
				}
				return writeExport(cmd.OutOrStdout(), export, asFixture)
			})
		},
	}
	cmd.Flags().BoolVar(&asFixture, "fixture", false, "write a YAML fixture that load accepts")
	return cmd
}

func newArchivesLinkCommand(rootOpts *RootOptions) *cobra.Command {
	var expiry time.Duration
	cmd := &cobra.Command{
		Use:   "link <key>",
		Short: "Print a time-limited download URL for a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd, rootOpts, func(_ *app, store *archive.Archive) error {
				url, err := store.Link(cmd.Context(), args[0], expiry)
				if err != nil {
					return archiveFailure("link", err)
				}
				return emit(cmd.OutOrStdout(), rootOpts.Format, map[string]string{"key": args[0], "url": url}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, url)
					return err
				})
			})
		},
	}
	cmd.Flags().DurationVar(&expiry, "expiry", 15*time.Minute, "how long the URL stays valid")
	return cmd
}

func newArchivesPruneCommand(rootOpts *RootOptions) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune <meet-id>",
		Short: "Delete all but the newest snapshots of a meet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd, rootOpts, func(a *app, store *archive.Archive) error {
				removed, err := store.Prune(cmd.Context(), args[0], keep)
				if err != nil {
					return archiveFailure("prune", err)
				}
				a.logger.Info("snapshots pruned", "meet_id", args[0], "removed", len(removed))
				if removed == nil {
					removed = []string{}
				}
				return emit(cmd.OutOrStdout(), rootOpts.Format, removed, func(w io.Writer) error {
					for _, key := range removed {
						if _, err := fmt.Fprintf(w, "removed %s\n", key); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 5, "number of newest snapshots to keep")
	return cmd
}

func newArchivesRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <key>",
		Short: "Recreate an archived meet as a new meet",
		Long: `Recreate an archived meet through the validated service API as the
--host caller. The restored meet and its records get new ids.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd, rootOpts, func(a *app, store *archive.Archive) error {
				export, err := store.Load(cmd.Context(), args[0])
				if err != nil {
					return archiveFailure("restore", err)
				}
				return loadFixture(cmd, a, fixture.FromExport(export))
			})
		},
	}
}
