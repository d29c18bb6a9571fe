package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration commands would run with: schema defaults,
then the --config file, then KVLEDGER_* environment variables, then flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			cfg, err := rootOpts.resolveConfig()
			if err != nil {
				_ = out.Error(ErrCodeConfig, err.Error(), nil)
				e := WrapExitError(ExitCommandError, "failed to load config", err)
				e.Reported = true
				return e
			}
			if rootOpts.Format == "json" {
				return out.Success(cfg)
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
