package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/host"
)

func TestAllowAll(t *testing.T) {
	assert.NoError(t, AllowAll{}.Authorize(context.Background(), Request{Action: ActionWithdraw}))
}

func TestSelfOnly(t *testing.T) {
	ctx := context.Background()
	g := SelfOnly(ActionWithdraw)

	assert.NoError(t, g.Authorize(ctx, Request{Caller: "T", Action: ActionWithdraw, Subject: "T"}))
	assert.ErrorIs(t, g.Authorize(ctx, Request{Caller: "S", Action: ActionWithdraw, Subject: "T"}), fault.ErrUnauthorized)
	assert.ErrorIs(t, g.Authorize(ctx, Request{Caller: host.Anonymous, Action: ActionWithdraw, Subject: host.Anonymous}), fault.ErrUnauthorized)

	// Other actions pass through.
	assert.NoError(t, g.Authorize(ctx, Request{Caller: "S", Action: ActionCreateStamp, Subject: "T"}))
}

func TestAllowlist(t *testing.T) {
	ctx := context.Background()
	g := Allowlist(ActionCreateStamp, "INSP_A", "INSP_B")

	assert.NoError(t, g.Authorize(ctx, Request{Caller: "INSP_B", Action: ActionCreateStamp}))
	assert.ErrorIs(t, g.Authorize(ctx, Request{Caller: "mallory", Action: ActionCreateStamp}), fault.ErrUnauthorized)
	assert.NoError(t, g.Authorize(ctx, Request{Caller: "mallory", Action: ActionWithdraw}))
}

func TestGuardsCompareNormalizedIdentities(t *testing.T) {
	ctx := context.Background()
	const composed, decomposed host.Principal = "Jos\u00e9", "Jose\u0301"

	self := SelfOnly(ActionWithdraw)
	assert.NoError(t, self.Authorize(ctx, Request{Caller: decomposed, Action: ActionWithdraw, Subject: composed}))
	assert.ErrorIs(t, self.Authorize(ctx, Request{Caller: "\xff", Action: ActionWithdraw, Subject: "\xfe"}), fault.ErrUnauthorized)

	allow := Allowlist(ActionCreateStamp, composed)
	assert.NoError(t, allow.Authorize(ctx, Request{Caller: decomposed, Action: ActionCreateStamp}))
	assert.ErrorIs(t, allow.Authorize(ctx, Request{Caller: "\ufffd", Action: ActionCreateStamp}), fault.ErrUnauthorized)
}

func TestChainStopsAtFirstRefusal(t *testing.T) {
	ctx := context.Background()
	calls := 0
	counter := Func(func(context.Context, Request) error {
		calls++
		return nil
	})

	g := Chain(counter, Allowlist(ActionCreateStamp, "INSP_A"), counter)

	assert.NoError(t, g.Authorize(ctx, Request{Caller: "INSP_A", Action: ActionCreateStamp}))
	assert.Equal(t, 2, calls)

	assert.ErrorIs(t, g.Authorize(ctx, Request{Caller: "x", Action: ActionCreateStamp}), fault.ErrUnauthorized)
	assert.Equal(t, 3, calls)
}
