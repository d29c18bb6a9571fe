// Package inspection implements the inspection-stamp registry: pass/fail
// attestations keyed by a caller-chosen id, with one-way revocation.
package inspection

import (
	"context"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/kvledger/internal/authz"
	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/keyspace"
	"github.com/roach88/kvledger/internal/kv"
	"github.com/roach88/kvledger/internal/record"
)

// Registry manages InspectionStamp records.
type Registry struct {
	rt               *host.Runtime
	guard            authz.Authorizer
	rejectDuplicates bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithAuthorizer sets the guard consulted before CreateStamp.
func WithAuthorizer(a authz.Authorizer) Option {
	return func(r *Registry) { r.guard = a }
}

// RejectDuplicates makes CreateStamp fail with ALREADY_EXISTS when a stamp
// with the same id is stored, instead of overwriting it.
func RejectDuplicates(reject bool) Option {
	return func(r *Registry) { r.rejectDuplicates = reject }
}

// NewRegistry creates a registry running on rt.
func NewRegistry(rt *host.Runtime, opts ...Option) *Registry {
	r := &Registry{rt: rt, guard: authz.AllowAll{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StampInput carries the caller-supplied fields of a new stamp.
type StampInput struct {
	StampID      uint64
	AssetID      string
	Inspector    Symbol
	Passed       bool
	Notes        string
	EvidenceHash []byte
}

// CreateStamp records a stamp stamped with the current ledger time.
//
// AssetID and Notes must be valid UTF-8 and are stored in NFC form, so a read
// returns them byte for byte only when they were written in NFC. Text that is
// not UTF-8 fails with InvalidArgument.
//
// By default an existing stamp with the same id is silently replaced.
func (r *Registry) CreateStamp(ctx context.Context, caller host.Principal, in StampInput) error {
	if _, err := ParseSymbol(string(in.Inspector)); err != nil {
		return err
	}
	if err := checkText("asset_id", in.AssetID); err != nil {
		return err
	}
	if err := checkText("notes", in.Notes); err != nil {
		return err
	}
	req := authz.Request{Caller: caller, Action: authz.ActionCreateStamp, Subject: host.Principal(in.Inspector)}
	if err := r.guard.Authorize(ctx, req); err != nil {
		return err
	}

	return r.rt.Invoke(ctx, "create_stamp", caller, func(env *host.Env) error {
		key := keyspace.StampKey(in.StampID)

		if r.rejectDuplicates {
			_, exists, err := record.Load(ctx, env.Txn, key)
			if err != nil {
				return err
			}
			if exists {
				return fault.AlreadyExists("stamp %d already exists", in.StampID).WithKey(key.String())
			}
		}

		stamp := Stamp{
			StampID:      in.StampID,
			AssetID:      norm.NFC.String(in.AssetID),
			Inspector:    in.Inspector,
			Passed:       in.Passed,
			Notes:        norm.NFC.String(in.Notes),
			EvidenceHash: append([]byte(nil), in.EvidenceHash...),
			InspectedAt:  env.Timestamp,
			Revoked:      false,
		}
		if err := record.Save(ctx, env.Txn, key, stamp.Object()); err != nil {
			return err
		}

		env.Logger.Debug("stamp created", "stamp_id", in.StampID, "asset_id", in.AssetID, "passed", in.Passed)
		return nil
	})
}

// RevokeStamp marks a stamp as no longer valid. Revoking an already
// revoked stamp succeeds and changes nothing.
func (r *Registry) RevokeStamp(ctx context.Context, caller host.Principal, stampID uint64) error {
	return r.rt.Invoke(ctx, "revoke_stamp", caller, func(env *host.Env) error {
		key := keyspace.StampKey(stampID)
		stamp, err := loadStamp(ctx, env.Txn, key)
		if err != nil {
			return err
		}

		stamp.Revoked = true
		return record.Save(ctx, env.Txn, key, stamp.Object())
	})
}

// IsStampValid reports whether the stamp exists, passed, and is not revoked.
// An unknown id is simply not valid.
func (r *Registry) IsStampValid(ctx context.Context, stampID uint64) (bool, error) {
	stamp, ok, err := r.GetStamp(ctx, stampID)
	if err != nil || !ok {
		return false, err
	}
	return stamp.Valid(), nil
}

// GetStamp returns the stored stamp. ok is false when none exists.
func (r *Registry) GetStamp(ctx context.Context, stampID uint64) (stamp Stamp, ok bool, err error) {
	err = r.rt.Read(ctx, "get_stamp", func(env *host.ReadEnv) error {
		key := keyspace.StampKey(stampID)
		obj, found, err := record.Load(ctx, env.Reader, key)
		if err != nil || !found {
			return err
		}
		stamp, err = record.Decode(key, obj, stampFromObject)
		ok = err == nil
		return err
	})
	return stamp, ok, err
}

func loadStamp(ctx context.Context, rd kv.Reader, key keyspace.Key) (Stamp, error) {
	obj, ok, err := record.Load(ctx, rd, key)
	if err != nil {
		return Stamp{}, err
	}
	if !ok {
		return Stamp{}, fault.NotFound("stamp not found").WithKey(key.String())
	}
	return record.Decode(key, obj, stampFromObject)
}

func checkText(field, s string) error {
	if !utf8.ValidString(s) {
		return fault.InvalidArgument("%s is not valid UTF-8: %q", field, s)
	}
	return nil
}
