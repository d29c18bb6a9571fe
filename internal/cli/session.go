package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/kvledger/internal/amount"
	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/ir"
)

// SessionRecordOptions holds flags for session record.
type SessionRecordOptions struct {
	*RootOptions
	Tutor    string
	Student  string
	Duration uint32
}

// SessionPayOptions holds flags for session pay.
type SessionPayOptions struct {
	*RootOptions
	Rate string // decimal, up to 2^128-1
}

// NewSessionCommand creates the session command group.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Record, confirm and pay tutoring sessions",
		Long: `Record, confirm and pay tutoring sessions.

A session moves from created to confirmed (by its student) to paid. Paying
credits duration_minutes x rate to the tutor's balance, which the tutor can
withdraw.`,
	}

	cmd.AddCommand(newSessionRecordCommand(rootOpts))
	cmd.AddCommand(newSessionConfirmCommand(rootOpts))
	cmd.AddCommand(newSessionPayCommand(rootOpts))
	cmd.AddCommand(newSessionViewCommand(rootOpts))
	cmd.AddCommand(newSessionWithdrawCommand(rootOpts))
	cmd.AddCommand(newSessionBalanceCommand(rootOpts))
	cmd.AddCommand(newSessionCountCommand(rootOpts))

	return cmd
}

func newSessionRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionRecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a new tutoring session",
		Long: `Record a new tutoring session and print its id.

Example:
  kvledger session record --tutor T --student S --duration 30`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app) error {
				id, err := a.ledger.Sessions.RecordSession(ctx, host.Principal(opts.Tutor), host.Principal(opts.Student), opts.Duration)
				if err != nil {
					return a.out.Refusal("record session", err)
				}
				return a.out.Object(ir.Object{"session_id": ir.Uint64(id)})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Tutor, "tutor", "", "tutor identity (required)")
	cmd.Flags().StringVar(&opts.Student, "student", "", "student identity (required)")
	cmd.Flags().Uint32Var(&opts.Duration, "duration", 0, "duration in minutes")
	_ = cmd.MarkFlagRequired("tutor")
	_ = cmd.MarkFlagRequired("student")

	return cmd
}

func newSessionConfirmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <session-id>",
		Short: "Confirm a session as its student",
		Long: `Confirm a session. The caller given with --as must be the session's student.

Example:
  kvledger --as S session confirm 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("session id", args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				if err := a.ledger.Sessions.ConfirmSession(ctx, id, a.caller); err != nil {
					return a.out.Refusal("confirm session", err)
				}
				return a.out.Object(ir.Object{"session_id": ir.Uint64(id), "status": ir.String("confirmed")})
			})
		},
	}
}

func newSessionPayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionPayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pay <session-id>",
		Short: "Pay a confirmed session",
		Long: `Pay a confirmed session, crediting duration x rate to the tutor.

Example:
  kvledger session pay 1 --rate 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("session id", args[0])
			if err != nil {
				return err
			}
			rate, err := amount.Parse(opts.Rate)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --rate", err)
			}
			return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app) error {
				if err := a.ledger.Sessions.PaySession(ctx, a.caller, id, rate); err != nil {
					return a.out.Refusal("pay session", err)
				}
				return a.out.Object(ir.Object{"session_id": ir.Uint64(id), "status": ir.String("paid")})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Rate, "rate", "", "payment per minute as a decimal (required)")
	_ = cmd.MarkFlagRequired("rate")

	return cmd
}

func newSessionViewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "view <session-id>",
		Short:         "Show a stored session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("session id", args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				s, err := a.ledger.Sessions.ViewSession(ctx, id)
				if err != nil {
					return a.out.Refusal("view session", err)
				}
				obj := s.Object()
				obj["status"] = ir.String(s.Status())
				return a.out.Object(obj)
			})
		},
	}
}

func newSessionWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <identity>",
		Short: "Withdraw an identity's whole balance",
		Long: `Withdraw an identity's whole balance and reset it to zero.

When the config sets sessions.self_withdraw_only, --as must equal identity.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := host.Principal(args[0])
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				amt, err := a.ledger.Sessions.Withdraw(ctx, a.caller, identity)
				if err != nil {
					return a.out.Refusal("withdraw", err)
				}
				return a.out.Object(ir.Object{"identity": ir.String(identity), "amount": ir.String(amt.String())})
			})
		},
	}
}

func newSessionBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "balance <identity>",
		Short:         "Show an identity's accrued balance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := host.Principal(args[0])
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				bal, err := a.ledger.Sessions.BalanceOf(ctx, identity)
				if err != nil {
					return a.out.Refusal("balance", err)
				}
				return a.out.Object(ir.Object{"identity": ir.String(identity), "amount": ir.String(bal.String())})
			})
		},
	}
}

func newSessionCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "count",
		Short:         "Show the id of the most recent session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				n, err := a.ledger.Sessions.SessionCount(ctx)
				if err != nil {
					return a.out.Refusal("count sessions", err)
				}
				return a.out.Object(ir.Object{"count": ir.Uint64(n)})
			})
		},
	}
}
