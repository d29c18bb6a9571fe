package harness

import (
	"context"
	"encoding/hex"
	"strconv"

	"github.com/roach88/kvledger/internal/amount"
	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/inspection"
	"github.com/roach88/kvledger/internal/ir"
	"github.com/roach88/kvledger/internal/ledger"
	"github.com/roach88/kvledger/internal/tutoring"
)

// CaseOk is the outcome of a step that completed without a fault.
const CaseOk = "Ok"

var caseByCode = map[fault.Code]string{
	fault.CodeNotFound:        "NotFound",
	fault.CodeInvalidState:    "InvalidState",
	fault.CodeUnauthorized:    "Unauthorized",
	fault.CodeAlreadyExists:   "AlreadyExists",
	fault.CodeInvalidArgument: "InvalidArgument",
	fault.CodeCorrupt:         "Corrupt",
}

func isKnownCase(c string) bool {
	if c == CaseOk {
		return true
	}
	for _, name := range caseByCode {
		if name == c {
			return true
		}
	}
	return false
}

// caseOf names the outcome of err. ok is false for errors that are not
// faults, which abort the scenario.
func caseOf(err error) (string, bool) {
	if err == nil {
		return CaseOk, true
	}
	name, ok := caseByCode[fault.CodeOf(err)]
	return name, ok
}

// action runs one registry operation with scenario arguments.
type action func(ctx context.Context, l *ledger.Ledger, caller host.Principal, args ir.Object) (ir.Object, error)

var actions = map[string]action{
	"stamp.create":     createStamp,
	"stamp.revoke":     revokeStamp,
	"stamp.valid":      stampValid,
	"stamp.get":        getStamp,
	"session.record":   recordSession,
	"session.confirm":  confirmSession,
	"session.pay":      paySession,
	"session.withdraw": withdraw,
	"session.view":     viewSession,
	"session.balance":  balance,
	"session.count":    sessionCount,
}

func createStamp(ctx context.Context, l *ledger.Ledger, caller host.Principal, args ir.Object) (ir.Object, error) {
	id, err := argUint(args, "stamp_id")
	if err != nil {
		return nil, err
	}
	passed, _ := args.Flag("passed")
	evidence, err := hex.DecodeString(argStr(args, "evidence_hash"))
	if err != nil {
		return nil, fault.InvalidArgument("evidence_hash: %v", err)
	}

	err = l.Stamps.CreateStamp(ctx, caller, inspection.StampInput{
		StampID:      id,
		AssetID:      argStr(args, "asset_id"),
		Inspector:    inspection.Symbol(argStr(args, "inspector")),
		Passed:       passed,
		Notes:        argStr(args, "notes"),
		EvidenceHash: evidence,
	})
	return ir.Object{}, err
}

func revokeStamp(ctx context.Context, l *ledger.Ledger, caller host.Principal, args ir.Object) (ir.Object, error) {
	id, err := argUint(args, "stamp_id")
	if err != nil {
		return nil, err
	}
	return ir.Object{}, l.Stamps.RevokeStamp(ctx, caller, id)
}

func stampValid(ctx context.Context, l *ledger.Ledger, _ host.Principal, args ir.Object) (ir.Object, error) {
	id, err := argUint(args, "stamp_id")
	if err != nil {
		return nil, err
	}
	valid, err := l.Stamps.IsStampValid(ctx, id)
	if err != nil {
		return nil, err
	}
	return ir.Object{"valid": ir.Bool(valid)}, nil
}

func getStamp(ctx context.Context, l *ledger.Ledger, _ host.Principal, args ir.Object) (ir.Object, error) {
	id, err := argUint(args, "stamp_id")
	if err != nil {
		return nil, err
	}
	return stampState(ctx, l, id)
}

func recordSession(ctx context.Context, l *ledger.Ledger, _ host.Principal, args ir.Object) (ir.Object, error) {
	minutes, err := argUint(args, "duration_minutes")
	if err != nil {
		return nil, err
	}
	if minutes > uint64(^uint32(0)) {
		return nil, fault.InvalidArgument("duration_minutes %d exceeds uint32", minutes)
	}
	id, err := l.Sessions.RecordSession(ctx,
		host.Principal(argStr(args, "tutor")),
		host.Principal(argStr(args, "student")),
		uint32(minutes))
	if err != nil {
		return nil, err
	}
	return ir.Object{"session_id": ir.Uint64(id)}, nil
}

func confirmSession(ctx context.Context, l *ledger.Ledger, caller host.Principal, args ir.Object) (ir.Object, error) {
	id, err := argUint(args, "session_id")
	if err != nil {
		return nil, err
	}
	return ir.Object{}, l.Sessions.ConfirmSession(ctx, id, caller)
}

func paySession(ctx context.Context, l *ledger.Ledger, caller host.Principal, args ir.Object) (ir.Object, error) {
	id, err := argUint(args, "session_id")
	if err != nil {
		return nil, err
	}
	rate, err := argAmount(args, "rate")
	if err != nil {
		return nil, err
	}
	return ir.Object{}, l.Sessions.PaySession(ctx, caller, id, rate)
}

func withdraw(ctx context.Context, l *ledger.Ledger, caller host.Principal, args ir.Object) (ir.Object, error) {
	got, err := l.Sessions.Withdraw(ctx, caller, host.Principal(argStr(args, "identity")))
	if err != nil {
		return nil, err
	}
	return ir.Object{"amount": ir.String(got.String())}, nil
}

func viewSession(ctx context.Context, l *ledger.Ledger, _ host.Principal, args ir.Object) (ir.Object, error) {
	id, err := argUint(args, "session_id")
	if err != nil {
		return nil, err
	}
	s, err := l.Sessions.ViewSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return sessionObject(s), nil
}

func balance(ctx context.Context, l *ledger.Ledger, _ host.Principal, args ir.Object) (ir.Object, error) {
	bal, err := l.Sessions.BalanceOf(ctx, host.Principal(argStr(args, "identity")))
	if err != nil {
		return nil, err
	}
	return ir.Object{"amount": ir.String(bal.String())}, nil
}

func sessionCount(ctx context.Context, l *ledger.Ledger, _ host.Principal, _ ir.Object) (ir.Object, error) {
	n, err := l.Sessions.SessionCount(ctx)
	if err != nil {
		return nil, err
	}
	return ir.Object{"count": ir.Uint64(n)}, nil
}

// stampState returns the stored stamp with a found flag, or only
// {found: false}.
func stampState(ctx context.Context, l *ledger.Ledger, id uint64) (ir.Object, error) {
	s, ok, err := l.Stamps.GetStamp(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ir.Object{"found": ir.Bool(false)}, nil
	}
	obj := s.Object()
	obj["found"] = ir.Bool(true)
	obj["valid"] = ir.Bool(s.Valid())
	return obj, nil
}

func sessionObject(s tutoring.Session) ir.Object {
	obj := s.Object()
	obj["status"] = ir.String(s.Status())
	return obj
}

func argStr(args ir.Object, key string) string {
	s, _ := args.Str(key)
	return s
}

// argUint accepts a non-negative integer or its decimal string, so ids
// beyond the int64 range can be written quoted.
func argUint(args ir.Object, key string) (uint64, error) {
	switch v := args[key].(type) {
	case ir.Int:
		if v < 0 {
			return 0, fault.InvalidArgument("%s: negative value %d", key, int64(v))
		}
		return uint64(v), nil
	case ir.String:
		n, err := strconv.ParseUint(string(v), 10, 64)
		if err != nil {
			return 0, fault.InvalidArgument("%s: %v", key, err)
		}
		return n, nil
	case nil:
		return 0, fault.InvalidArgument("%s: missing", key)
	default:
		return 0, fault.InvalidArgument("%s: expected unsigned integer, got %T", key, v)
	}
}

func argAmount(args ir.Object, key string) (amount.U128, error) {
	switch v := args[key].(type) {
	case ir.Int:
		if v < 0 {
			return amount.Zero, fault.InvalidArgument("%s: negative value %d", key, int64(v))
		}
		return amount.FromUint64(uint64(v)), nil
	case ir.String:
		u, err := amount.Parse(string(v))
		if err != nil {
			return amount.Zero, fault.InvalidArgument("%s: %v", key, err)
		}
		return u, nil
	case nil:
		return amount.Zero, fault.InvalidArgument("%s: missing", key)
	default:
		return amount.Zero, fault.InvalidArgument("%s: expected amount, got %T", key, v)
	}
}
