// Package ledger assembles the registries from configuration. It is the
// composition root shared by the CLI and the scenario harness.
package ledger

import (
	"fmt"

	"github.com/roach88/kvledger/internal/authz"
	"github.com/roach88/kvledger/internal/config"
	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/inspection"
	"github.com/roach88/kvledger/internal/kv"
	"github.com/roach88/kvledger/internal/store"
	"github.com/roach88/kvledger/internal/store/postgres"
	"github.com/roach88/kvledger/internal/tutoring"
)

// Ledger holds both registries over one runtime.
type Ledger struct {
	Runtime  *host.Runtime
	Stamps   *inspection.Registry
	Sessions *tutoring.Registry
}

// Options selects registry behavior.
type Options struct {
	Stamps   config.StampsConfig
	Sessions config.SessionsConfig

	// Rail receives withdrawals. Nil means a LogRail on the runtime's logger.
	Rail tutoring.Rail
}

// New builds both registries on rt.
func New(rt *host.Runtime, opts Options) *Ledger {
	stampOpts := []inspection.Option{
		inspection.RejectDuplicates(opts.Stamps.RejectDuplicates),
	}
	if len(opts.Stamps.Inspectors) > 0 {
		allowed := make([]host.Principal, len(opts.Stamps.Inspectors))
		for i, p := range opts.Stamps.Inspectors {
			allowed[i] = host.Principal(p)
		}
		stampOpts = append(stampOpts, inspection.WithAuthorizer(authz.Allowlist(authz.ActionCreateStamp, allowed...)))
	}

	rail := opts.Rail
	if rail == nil {
		rail = tutoring.LogRail{Logger: rt.Logger()}
	}
	sessionOpts := []tutoring.Option{tutoring.WithRail(rail)}
	if opts.Sessions.SelfWithdrawOnly {
		sessionOpts = append(sessionOpts, tutoring.WithAuthorizer(authz.SelfOnly(authz.ActionWithdraw)))
	}

	return &Ledger{
		Runtime:  rt,
		Stamps:   inspection.NewRegistry(rt, stampOpts...),
		Sessions: tutoring.NewRegistry(rt, sessionOpts...),
	}
}

// OpenStore opens the backend named by cfg.Driver.
func OpenStore(cfg config.StoreConfig) (kv.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return kv.NewMemory(), nil
	case config.DriverSQLite, "":
		st, err := store.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverPostgres:
		st, err := postgres.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
