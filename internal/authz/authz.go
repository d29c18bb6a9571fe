// Package authz provides the authorization guards composed around registry
// operations.
//
// The registries never decide who may create a stamp or drain a balance;
// they ask an Authorizer before doing the work. The default AllowAll leaves
// those decisions to whatever sits in front of the ledger.
package authz

import (
	"context"
	"slices"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/host"
)

// Actions guarded by the registries.
const (
	ActionCreateStamp = "stamp.create"
	ActionWithdraw    = "session.withdraw"
)

// Request describes one guarded call.
type Request struct {
	Caller host.Principal
	Action string
	// Subject is the principal acted upon: the inspector for stamp.create,
	// the balance owner for session.withdraw.
	Subject host.Principal
}

// Authorizer decides whether a request may proceed. A refusal is an
// UNAUTHORIZED fault.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) error
}

// Func adapts a function to Authorizer.
type Func func(ctx context.Context, req Request) error

// Authorize implements Authorizer.
func (f Func) Authorize(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// AllowAll permits every request.
type AllowAll struct{}

// Authorize implements Authorizer.
func (AllowAll) Authorize(context.Context, Request) error { return nil }

// SelfOnly requires Caller == Subject, compared in NFC form, for the listed
// actions and ignores every other action.
func SelfOnly(actions ...string) Authorizer {
	return Func(func(_ context.Context, req Request) error {
		if !slices.Contains(actions, req.Action) {
			return nil
		}
		if req.Caller == host.Anonymous || req.Caller.Normalize() != req.Subject.Normalize() {
			return fault.Unauthorized("%s: caller %q may only act on itself, not %q", req.Action, req.Caller, req.Subject)
		}
		return nil
	})
}

// Allowlist permits action only for the listed callers and ignores every
// other action.
func Allowlist(action string, callers ...host.Principal) Authorizer {
	return Func(func(_ context.Context, req Request) error {
		if req.Action != action {
			return nil
		}
		caller := req.Caller.Normalize()
		if !slices.ContainsFunc(callers, func(p host.Principal) bool { return p.Normalize() == caller }) {
			return fault.Unauthorized("%s: caller %q is not permitted", req.Action, req.Caller)
		}
		return nil
	})
}

// Chain runs guards in order and stops at the first refusal.
func Chain(guards ...Authorizer) Authorizer {
	return Func(func(ctx context.Context, req Request) error {
		for _, g := range guards {
			if err := g.Authorize(ctx, req); err != nil {
				return err
			}
		}
		return nil
	})
}
