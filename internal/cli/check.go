package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"swimeeter/pkg/domain"
)

// CheckReport is the output of the check command.
type CheckReport struct {
	OK         bool              `json:"ok"`
	Violations []ViolationReport `json:"violations"`
}

// ViolationReport is one rule violation found by check.
type ViolationReport struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
	Message  string `json:"message"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate every invariant rule over the stored meets",
		Long: `Evaluate every registered invariant rule against the whole store.

Exits 1 when any violation is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				svc, err := a.service(cmd.Context())
				if err != nil {
					return err
				}
				res, err := svc.Audit(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "audit", err)
				}
				return writeCheckReport(cmd.OutOrStdout(), rootOpts.Format, res)
			})
		},
	}
}

func writeCheckReport(w io.Writer, format string, res domain.Result) error {
	report := CheckReport{OK: len(res.Violations) == 0, Violations: make([]ViolationReport, 0, len(res.Violations))}
	for _, v := range res.Violations {
		report.Violations = append(report.Violations, ViolationReport{
			Rule:     v.Rule,
			Severity: string(v.Severity),
			Entity:   string(v.Entity),
			EntityID: v.EntityID,
			Message:  v.Message,
		})
	}
	err := emit(w, format, report, func(w io.Writer) error {
		if report.OK {
			_, err := fmt.Fprintln(w, "ok: no invariant violations")
			return err
		}
		for _, v := range report.Violations {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n", v.Severity, v.Rule, v.Entity, v.EntityID, v.Message); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !report.OK {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invariant violation(s)", len(report.Violations)))
	}
	return nil
}

// withApp opens the invocation state, runs fn and closes what fn opened.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(*app) error) (err error) {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(a)
}
