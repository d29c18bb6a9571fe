package cli

import (
	"context"
	"encoding/hex"

	"github.com/spf13/cobra"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/inspection"
	"github.com/roach88/kvledger/internal/ir"
)

// StampCreateOptions holds flags for stamp create.
type StampCreateOptions struct {
	*RootOptions
	AssetID   string
	Inspector string
	Passed    bool
	Notes     string
	Evidence  string // hex
}

// NewStampCommand creates the stamp command group.
func NewStampCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stamp",
		Short: "Record and query inspection stamps",
	}

	cmd.AddCommand(newStampCreateCommand(rootOpts))
	cmd.AddCommand(newStampRevokeCommand(rootOpts))
	cmd.AddCommand(newStampValidCommand(rootOpts))
	cmd.AddCommand(newStampGetCommand(rootOpts))

	return cmd
}

func newStampCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StampCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <stamp-id>",
		Short: "Create or replace an inspection stamp",
		Long: `Create an inspection stamp, timestamped with the current ledger time.

An existing stamp with the same id is replaced unless the config sets
stamps.reject_duplicates.

Example:
  kvledger stamp create 1 --asset PUMP-3 --inspector ACME --passed --evidence ab12`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createStamp(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.AssetID, "asset", "", "inspected asset id")
	cmd.Flags().StringVar(&opts.Inspector, "inspector", "", "inspector symbol (required)")
	cmd.Flags().BoolVar(&opts.Passed, "passed", false, "the asset passed inspection")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&opts.Evidence, "evidence", "", "evidence hash as hex")
	_ = cmd.MarkFlagRequired("inspector")

	return cmd
}

func createStamp(opts *StampCreateOptions, idArg string, cmd *cobra.Command) error {
	id, err := parseID("stamp id", idArg)
	if err != nil {
		return err
	}
	evidence, err := hex.DecodeString(opts.Evidence)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --evidence", err)
	}

	return withApp(opts.RootOptions, cmd, func(ctx context.Context, a *app) error {
		in := inspection.StampInput{
			StampID:      id,
			AssetID:      opts.AssetID,
			Inspector:    inspection.Symbol(opts.Inspector),
			Passed:       opts.Passed,
			Notes:        opts.Notes,
			EvidenceHash: evidence,
		}
		if err := a.ledger.Stamps.CreateStamp(ctx, a.caller, in); err != nil {
			return a.out.Refusal("create stamp", err)
		}
		return a.out.Object(ir.Object{"stamp_id": ir.Uint64(id)})
	})
}

func newStampRevokeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "revoke <stamp-id>",
		Short:         "Revoke an inspection stamp",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("stamp id", args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				if err := a.ledger.Stamps.RevokeStamp(ctx, a.caller, id); err != nil {
					return a.out.Refusal("revoke stamp", err)
				}
				return a.out.Object(ir.Object{"stamp_id": ir.Uint64(id), "revoked": ir.Bool(true)})
			})
		},
	}
}

func newStampValidCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "valid <stamp-id>",
		Short: "Check whether a stamp exists, passed and is not revoked",
		Long: `Check whether a stamp exists, passed and is not revoked.

An unknown stamp id is reported as not valid, not as an error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("stamp id", args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				valid, err := a.ledger.Stamps.IsStampValid(ctx, id)
				if err != nil {
					return a.out.Refusal("check stamp", err)
				}
				return a.out.Object(ir.Object{"stamp_id": ir.Uint64(id), "valid": ir.Bool(valid)})
			})
		},
	}
}

func newStampGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <stamp-id>",
		Short:         "Show a stored stamp",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("stamp id", args[0])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				stamp, ok, err := a.ledger.Stamps.GetStamp(ctx, id)
				if err != nil {
					return a.out.Refusal("get stamp", err)
				}
				if !ok {
					return a.out.Refusal("get stamp", fault.NotFound("stamp %d not found", id))
				}
				obj := stamp.Object()
				obj["valid"] = ir.Bool(stamp.Valid())
				return a.out.Object(obj)
			})
		},
	}
}
