package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerguard/internal/domain"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <invoice-id>",
		Short: "Run the full audit pipeline on an invoice",
		Long: `Run deterministic checks, the deep audit and (when the budget check fails)
the spend-velocity analysis, then commit the outcome.

Example:
  ledgerguard audit inv-1
  ledgerguard audit inv-1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			inv, err := s.app.Pipeline.Run(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(inv, describeInvoice(inv)...)
		},
	}
}

// NewEscalateCommand creates the escalate command.
func NewEscalateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "escalate <invoice-id>",
		Short: "Request the one-time chief auditor review",
		Long: `Ask the chief auditor to rule on an invoice held for review.
Each invoice may be reviewed at most once.

Example:
  ledgerguard escalate inv-2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			review, err := s.app.Reviewer.Review(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			lines := []string{
				fmt.Sprintf("Determination: %s (confidence %d)", review.Determination, review.Confidence),
				fmt.Sprintf("Verdict: %s", review.FinalVerdict),
			}
			if len(review.Citations) > 0 {
				lines = append(lines, "Citations: "+strings.Join(review.Citations, "; "))
			}
			return f.Success(review, lines...)
		},
	}
}

// NewDraftCommand creates the draft-rejection command.
func NewDraftCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "draft-rejection <invoice-id>",
		Short: "Draft vendor and client rejection messages",
		Long: `Generate the vendor dispute notice and the client courtesy message for an
invoice and store them on the record. Re-running replaces the drafts.

Example:
  ledgerguard draft-rejection inv-2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			drafts, err := s.app.Drafter.Draft(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(drafts,
				"Vendor: "+drafts.Vendor.Subject,
				drafts.Vendor.Body,
				"",
				"Client: "+drafts.Client.Subject,
				drafts.Client.Body,
			)
		},
	}
}

type decision string

const (
	decisionApprove decision = "approve"
	decisionReject  decision = "reject"
)

// DecisionOptions holds flags for approve and reject.
type DecisionOptions struct {
	*RootOptions
	Actor string
}

// NewDecisionCommand creates the approve or reject command.
func NewDecisionCommand(rootOpts *RootOptions, d decision) *cobra.Command {
	opts := &DecisionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   string(d) + " <invoice-id>",
		Short: "Record a manual " + string(d) + " decision",
		Long: fmt.Sprintf(`Move an invoice to its terminal state and notify subscribers.

Example:
  ledgerguard %s inv-1 --actor jo`, d),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			var inv *domain.Invoice
			if d == decisionApprove {
				inv, err = s.app.Pipeline.Approve(cmd.Context(), args[0], opts.Actor)
			} else {
				inv, err = s.app.Pipeline.Reject(cmd.Context(), args[0], opts.Actor)
			}
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(inv, fmt.Sprintf("%s: %s", inv.ID, inv.Status))
		},
	}

	cmd.Flags().StringVar(&opts.Actor, "actor", "", "who made the decision (default \"operator\")")
	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var withLog bool

	cmd := &cobra.Command{
		Use:           "show <invoice-id>",
		Short:         "Show an invoice and its audit log",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			inv, err := s.store.Invoice(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			if !withLog {
				return f.Success(inv, describeInvoice(inv)...)
			}
			entries, err := s.store.AuditLog(cmd.Context(), inv.ID)
			if err != nil {
				return f.Fail(err)
			}
			lines := describeInvoice(inv)
			lines = append(lines, "Audit log:")
			for _, e := range entries {
				lines = append(lines, fmt.Sprintf("  %s  %-14s %-18s %s",
					e.Ts.Format("2006-01-02 15:04:05"), e.Actor, e.Action, e.Detail))
			}
			return f.Success(map[string]any{"invoice": inv, "auditLog": entries}, lines...)
		},
	}

	cmd.Flags().BoolVar(&withLog, "log", false, "include the audit log")
	return cmd
}

// describeInvoice renders the text summary of an invoice.
func describeInvoice(inv *domain.Invoice) []string {
	lines := []string{fmt.Sprintf("Invoice %s (%s): %s", inv.ID, inv.InvoiceNumber, inv.Status)}
	if inv.RiskAssessment != nil {
		lines = append(lines, fmt.Sprintf("Risk: %s (%d)", inv.RiskAssessment.Level, inv.RiskAssessment.Score))
	}
	for _, r := range inv.ValidationResults {
		mark := "✓"
		if r.Result == domain.OutcomeFail {
			mark = "✗"
		}
		lines = append(lines, fmt.Sprintf("  %s %-20s %-8s %s", mark, r.RuleID, r.Severity, r.Details))
	}
	return lines
}
