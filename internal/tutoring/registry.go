// Package tutoring implements the tutoring-session registry: sessions with a
// created, confirmed, paid lifecycle, and the per-identity balances their
// payouts accrue to.
package tutoring

import (
	"context"
	"math"

	"github.com/roach88/kvledger/internal/amount"
	"github.com/roach88/kvledger/internal/authz"
	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/keyspace"
	"github.com/roach88/kvledger/internal/kv"
	"github.com/roach88/kvledger/internal/record"
)

// Registry manages sessions and balances.
type Registry struct {
	rt    *host.Runtime
	guard authz.Authorizer
	rail  Rail
}

// Option configures a Registry.
type Option func(*Registry)

// WithAuthorizer sets the guard consulted before Withdraw.
func WithAuthorizer(a authz.Authorizer) Option {
	return func(r *Registry) { r.guard = a }
}

// WithRail sets where withdrawn funds go. Default: a LogRail without a logger.
func WithRail(rail Rail) Option {
	return func(r *Registry) { r.rail = rail }
}

// NewRegistry creates a registry running on rt.
func NewRegistry(rt *host.Runtime, opts ...Option) *Registry {
	r := &Registry{rt: rt, guard: authz.AllowAll{}, rail: LogRail{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordSession creates an unconfirmed, unpaid session and returns its id.
// Ids start at 1. The counter saturates at math.MaxUint64, after which every
// new session reuses that id.
//
// Tutor and student must be non-empty valid UTF-8 and are stored in NFC form.
// Otherwise RecordSession fails with InvalidArgument and writes nothing.
func (r *Registry) RecordSession(ctx context.Context, tutor, student host.Principal, durationMinutes uint32) (uint64, error) {
	tutor, err := host.ParsePrincipal("tutor", string(tutor))
	if err != nil {
		return 0, err
	}
	student, err = host.ParsePrincipal("student", string(student))
	if err != nil {
		return 0, err
	}

	var id uint64
	err = r.rt.Invoke(ctx, "record_session", tutor, func(env *host.Env) error {
		count, err := readCount(ctx, env.Txn)
		if err != nil {
			return err
		}
		id = count
		if id < math.MaxUint64 {
			id++
		}

		if err := record.Save(ctx, env.Txn, keyspace.SessionCount(), counterObject(id)); err != nil {
			return err
		}
		s := Session{
			ID:              id,
			Tutor:           tutor,
			Student:         student,
			Timestamp:       env.Timestamp,
			DurationMinutes: durationMinutes,
		}
		if err := record.Save(ctx, env.Txn, keyspace.SessionRecord(id), s.Object()); err != nil {
			return err
		}

		env.Logger.Debug("session recorded", "session_id", id, "duration_minutes", durationMinutes)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ConfirmSession marks a session confirmed by its student.
//
// Checks run in order: the session must exist, must not already be
// confirmed, and caller must be its student. The caller is compared in NFC
// form, so any spelling of the student's identity confirms.
func (r *Registry) ConfirmSession(ctx context.Context, id uint64, caller host.Principal) error {
	return r.rt.Invoke(ctx, "confirm_session", caller, func(env *host.Env) error {
		s, err := loadSession(ctx, env.Txn, id)
		if err != nil {
			return err
		}
		if s.Confirmed {
			return fault.InvalidState("session %d already confirmed", id)
		}
		if caller.Normalize() != s.Student {
			return fault.Unauthorized("session %d can only be confirmed by its student", id)
		}

		s.Confirmed = true
		return record.Save(ctx, env.Txn, keyspace.SessionRecord(id), s.Object())
	})
}

// PaySession marks a confirmed session paid and credits duration times rate
// to the tutor's balance. Both writes commit together or not at all.
func (r *Registry) PaySession(ctx context.Context, caller host.Principal, id uint64, rate amount.U128) error {
	return r.rt.Invoke(ctx, "pay_session", caller, func(env *host.Env) error {
		s, err := loadSession(ctx, env.Txn, id)
		if err != nil {
			return err
		}
		if !s.Confirmed {
			return fault.InvalidState("session %d not confirmed", id)
		}
		if s.Paid {
			return fault.InvalidState("session %d already paid", id)
		}

		s.Paid = true
		if err := record.Save(ctx, env.Txn, keyspace.SessionRecord(id), s.Object()); err != nil {
			return err
		}

		payout := s.Payout(rate)
		bal, err := readBalance(ctx, env.Txn, s.Tutor)
		if err != nil {
			return err
		}
		bal = bal.SaturatingAdd(payout)
		if err := record.Save(ctx, env.Txn, keyspace.BalanceKey(string(s.Tutor)), balanceObject(s.Tutor, bal)); err != nil {
			return err
		}

		env.Logger.Debug("session paid", "session_id", id, "payout", payout.String(), "balance", bal.String())
		return nil
	})
}

// Withdraw drains identity's balance, hands it to the payment rail and
// returns the amount. An empty balance withdraws zero. Identity is validated
// like a tutor in RecordSession.
func (r *Registry) Withdraw(ctx context.Context, caller, identity host.Principal) (amount.U128, error) {
	identity, err := host.ParsePrincipal("identity", string(identity))
	if err != nil {
		return amount.Zero, err
	}
	req := authz.Request{Caller: caller, Action: authz.ActionWithdraw, Subject: identity}
	if err := r.guard.Authorize(ctx, req); err != nil {
		return amount.Zero, err
	}

	var out amount.U128
	err = r.rt.Invoke(ctx, "withdraw", caller, func(env *host.Env) error {
		bal, err := readBalance(ctx, env.Txn, identity)
		if err != nil {
			return err
		}
		if err := record.Save(ctx, env.Txn, keyspace.BalanceKey(string(identity)), balanceObject(identity, amount.Zero)); err != nil {
			return err
		}
		if err := r.rail.Transfer(ctx, Transfer{InvocationID: env.InvocationID, Identity: identity, Amount: bal}); err != nil {
			return err
		}
		out = bal
		return nil
	})
	if err != nil {
		return amount.Zero, err
	}
	return out, nil
}

// ViewSession returns the stored session.
func (r *Registry) ViewSession(ctx context.Context, id uint64) (Session, error) {
	var s Session
	err := r.rt.Read(ctx, "view_session", func(env *host.ReadEnv) error {
		var err error
		s, err = loadSession(ctx, env.Reader, id)
		return err
	})
	return s, err
}

// BalanceOf returns identity's accrued balance, zero if never credited.
func (r *Registry) BalanceOf(ctx context.Context, identity host.Principal) (amount.U128, error) {
	identity, err := host.ParsePrincipal("identity", string(identity))
	if err != nil {
		return amount.Zero, err
	}
	var bal amount.U128
	err = r.rt.Read(ctx, "balance_of", func(env *host.ReadEnv) error {
		var err error
		bal, err = readBalance(ctx, env.Reader, identity)
		return err
	})
	return bal, err
}

// SessionCount returns the id of the most recently recorded session, or 0.
func (r *Registry) SessionCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.rt.Read(ctx, "session_count", func(env *host.ReadEnv) error {
		var err error
		n, err = readCount(ctx, env.Reader)
		return err
	})
	return n, err
}

func readCount(ctx context.Context, rd kv.Reader) (uint64, error) {
	key := keyspace.SessionCount()
	obj, ok, err := record.Load(ctx, rd, key)
	if err != nil || !ok {
		return 0, err
	}
	return record.Decode(key, obj, counterFromObject)
}

func readBalance(ctx context.Context, rd kv.Reader, identity host.Principal) (amount.U128, error) {
	key := keyspace.BalanceKey(string(identity))
	obj, ok, err := record.Load(ctx, rd, key)
	if err != nil || !ok {
		return amount.Zero, err
	}
	return record.Decode(key, obj, balanceFromObject)
}

func loadSession(ctx context.Context, rd kv.Reader, id uint64) (Session, error) {
	key := keyspace.SessionRecord(id)
	obj, ok, err := record.Load(ctx, rd, key)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, fault.NotFound("session %d not found", id).WithKey(key.String())
	}
	return record.Decode(key, obj, sessionFromObject)
}
