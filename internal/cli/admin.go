package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/store"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default settings file",
		Long: `Write the built-in default settings to --config so they can be edited.

Example:
  ledgerguard init --config ./ledgerguard.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			path := rootOpts.Config
			if _, err := os.Stat(path); err == nil && !force {
				return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists (use --force to overwrite)", path))
			}
			if err := config.WriteDefault(path); err != nil {
				return WrapExitError(ExitCommandError, "failed to write settings", err)
			}
			return f.Success(map[string]any{"path": path}, "Wrote "+path)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Tenant string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <fixtures.yaml>",
		Short: "Load purchase orders, clients and invoices",
		Long: `Upsert purchase orders, client profiles and invoices from a YAML file.
Invoices without a tenant or status get the default tenant and EXTRACTED.

Example:
  ledgerguard import ./fixtures.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)

			file, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open fixtures", err)
			}
			defer file.Close()
			fixtures, err := store.DecodeFixtures(file)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to parse fixtures", err)
			}

			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			tenant := opts.Tenant
			if tenant == "" {
				tenant = s.settings.Audit.DefaultTenant
			}
			summary, err := s.store.Import(cmd.Context(), fixtures, tenant, domain.SystemClock{}.Now())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to import fixtures", err)
			}
			return f.Success(summary, fmt.Sprintf("Imported %d purchase orders, %d clients, %d invoices",
				summary.PurchaseOrders, summary.Clients, summary.Invoices))
		},
	}

	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant for invoices without one (default from settings)")
	return cmd
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and edit notification rules",
	}
	cmd.AddCommand(newRulesListCommand(rootOpts))
	cmd.AddCommand(newRulesSetCommand(rootOpts))
	return cmd
}

func newRulesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List notification rules",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			rules := s.app.Settings.Rules()
			lines := make([]string, 0, len(rules))
			for _, r := range rules {
				lines = append(lines, describeRule(r))
			}
			if len(lines) == 0 {
				lines = append(lines, "No notification rules")
			}
			return f.Success(rules, lines...)
		},
	}
}

// RuleSetOptions holds flags for rules set.
type RuleSetOptions struct {
	*RootOptions
	InApp      bool
	Email      bool
	Recipients string
}

func newRulesSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RuleSetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <trigger>",
		Short: "Create or update the rule for a trigger",
		Long: `Update the rule for one trigger. Only flags given on the command line
change; the rule is saved to the database and survives restarts.

Triggers: AUDIT_FAILED, HIGH_RISK_DETECTED, INVOICE_APPROVED, INVOICE_REJECTED

Example:
  ledgerguard rules set AUDIT_FAILED --email --recipients "ap@example.org"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			trigger := domain.Trigger(strings.ToUpper(args[0]))
			if !trigger.IsValid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown trigger %q", args[0]))
			}

			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			flags := cmd.Flags()
			rule, err := s.app.Settings.UpsertRule(trigger, func(r *domain.NotificationRule) {
				if flags.Changed("in-app") {
					r.InApp = opts.InApp
				}
				if flags.Changed("email") {
					r.Email = opts.Email
				}
				if flags.Changed("recipients") {
					r.Recipients = opts.Recipients
				}
			})
			if err != nil {
				return WrapExitError(ExitFailure, "failed to save rule", err)
			}
			return f.Success(rule, describeRule(rule))
		},
	}

	cmd.Flags().BoolVar(&opts.InApp, "in-app", false, "deliver to the in-app inbox")
	cmd.Flags().BoolVar(&opts.Email, "email", false, "deliver by email")
	cmd.Flags().StringVar(&opts.Recipients, "recipients", "", "comma-separated email recipients")
	return cmd
}

func describeRule(r domain.NotificationRule) string {
	var channels []string
	if r.InApp {
		channels = append(channels, "in-app")
	}
	if r.Email {
		channels = append(channels, "email")
	}
	if len(channels) == 0 {
		channels = append(channels, "off")
	}
	line := fmt.Sprintf("%-20s %s", r.Trigger, strings.Join(channels, "+"))
	if r.Recipients != "" {
		line += " -> " + r.Recipients
	}
	return line
}

// InboxOptions holds flags for the inbox command.
type InboxOptions struct {
	*RootOptions
	Tenant string
	Unread bool
}

// NewInboxCommand creates the inbox command.
func NewInboxCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InboxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List in-app notifications",
		Long: `List in-app notifications for a tenant, newest first.

Example:
  ledgerguard inbox --unread
  ledgerguard inbox read <notification-id>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			s, err := openSession(cmd.Context(), rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			tenant := opts.Tenant
			if tenant == "" {
				tenant = s.settings.Audit.DefaultTenant
			}
			items, err := s.store.Notifications(cmd.Context(), tenant, opts.Unread)
			if err != nil {
				return f.Fail(err)
			}
			lines := make([]string, 0, len(items))
			for _, n := range items {
				mark := " "
				if !n.Read {
					mark = "*"
				}
				lines = append(lines, fmt.Sprintf("%s %s  %-18s %s  %s", mark, n.ID, n.Trigger, n.InvoiceID, n.Message))
			}
			if len(lines) == 0 {
				lines = append(lines, "Inbox is empty")
			}
			return f.Success(items, lines...)
		},
	}

	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant to list (default from settings)")
	cmd.Flags().BoolVar(&opts.Unread, "unread", false, "only unread notifications")

	cmd.AddCommand(&cobra.Command{
		Use:           "read <notification-id>",
		Short:         "Mark a notification as read",
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

			if err := s.store.MarkRead(cmd.Context(), args[0]); err != nil {
				return f.Fail(err)
			}
			return f.Success(map[string]any{"id": args[0], "read": true}, "Marked "+args[0]+" read")
		},
	})
	return cmd
}
