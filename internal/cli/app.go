package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/kvledger/internal/config"
	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/ledger"
)

// app is what an operation command runs against.
type app struct {
	ledger *ledger.Ledger
	out    *OutputFormatter
	caller host.Principal
	close  func()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// resolveConfig loads the config file and environment, then applies the
// global flags on top.
func (o *RootOptions) resolveConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Database != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.Path = o.Database
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// openApp resolves configuration, opens the store and assembles the ledger.
// The caller must call app.close.
func openApp(o *RootOptions, cmd *cobra.Command) (*app, error) {
	out := o.formatter(cmd)

	cfg, err := o.resolveConfig()
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		e := WrapExitError(ExitCommandError, "failed to load config", err)
		e.Reported = true
		return nil, e
	}

	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())
	logger.Debug("opening store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)

	st, err := ledger.OpenStore(cfg.Store)
	if err != nil {
		_ = out.Error(ErrCodeStore, err.Error(), nil)
		e := WrapExitError(ExitCommandError, "failed to open store", err)
		e.Reported = true
		return nil, e
	}

	rtOpts := []host.Option{host.WithLogger(logger)}
	if o.Clock != nil {
		rtOpts = append(rtOpts, host.WithClock(o.Clock))
	}
	if o.IDs != nil {
		rtOpts = append(rtOpts, host.WithIDGenerator(o.IDs))
	}
	rt := host.NewRuntime(st, rtOpts...)

	return &app{
		ledger: ledger.New(rt, ledger.Options{
			Stamps:   cfg.Stamps,
			Sessions: cfg.Sessions,
		}),
		out:    out,
		caller: host.Principal(o.As),
		close: func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing store", "error", err)
			}
		},
	}, nil
}

// withApp opens the ledger, runs fn and closes the ledger again.
func withApp(o *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(o, cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(commandContext(cmd), a)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseID parses a positional record id.
func parseID(name, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s %q: must be an unsigned integer", name, s))
	}
	return n, nil
}
