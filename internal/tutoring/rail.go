package tutoring

import (
	"context"
	"log/slog"

	"github.com/roach88/kvledger/internal/amount"
	"github.com/roach88/kvledger/internal/host"
)

// Rail moves withdrawn funds off the ledger.
//
// Transfer runs inside the withdraw invocation; an error aborts it and the
// balance stays where it was.
type Rail interface {
	Transfer(ctx context.Context, t Transfer) error
}

// Transfer describes one payout handed to a Rail.
type Transfer struct {
	InvocationID string
	Identity     host.Principal
	Amount       amount.U128
}

// LogRail records transfers in the log and moves nothing.
type LogRail struct {
	Logger *slog.Logger
}

// Transfer implements Rail.
func (r LogRail) Transfer(ctx context.Context, t Transfer) error {
	if r.Logger == nil {
		return nil
	}
	r.Logger.InfoContext(ctx, "payout transfer",
		"invocation_id", t.InvocationID,
		"identity", string(t.Identity),
		"amount", t.Amount.String(),
	)
	return nil
}

// RailFunc adapts a function to Rail.
type RailFunc func(ctx context.Context, t Transfer) error

// Transfer implements Rail.
func (f RailFunc) Transfer(ctx context.Context, t Transfer) error {
	return f(ctx, t)
}
