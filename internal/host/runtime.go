// Package host supplies what a registry operation needs from its execution
// environment: a transaction boundary, a ledger timestamp, the caller's
// identity, and an invocation id for logging.
//
// Each operation is one Invoke (or Read). Inside it the operation sees one
// clock reading and one transaction; when it returns an error every write it
// made is discarded.
package host

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/kv"
)

// Principal is an opaque caller or account identity. Principals are only
// compared for equality, after both sides are put in NFC form.
type Principal string

// Anonymous is the principal of a caller that did not identify itself.
const Anonymous Principal = ""

// Env is what a read-write operation observes.
type Env struct {
	// Txn is the invocation's transaction.
	Txn kv.Txn

	// Timestamp is the ledger time, read once when the invocation started.
	Timestamp uint64

	// Caller is the invoking principal.
	Caller Principal

	// InvocationID identifies this invocation in logs.
	InvocationID string

	// Logger is scoped to the invocation.
	Logger *slog.Logger
}

// ReadEnv is what a lookup observes.
type ReadEnv struct {
	Reader       kv.Reader
	InvocationID string
	Logger       *slog.Logger
}

// Runtime runs registry operations against a store.
type Runtime struct {
	store  kv.Store
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock sets the ledger clock. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(r *Runtime) { r.clock = c }
}

// WithIDGenerator sets the invocation id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runtime) { r.ids = g }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// NewRuntime creates a Runtime over store.
func NewRuntime(store kv.Store, opts ...Option) *Runtime {
	r := &Runtime{
		store:  store,
		clock:  SystemClock{},
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store.
func (r *Runtime) Store() kv.Store {
	return r.store
}

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

// Invoke runs fn as one read-write invocation named op.
//
// Faults returned by fn are returned unwrapped so callers can match them;
// other errors are wrapped with op.
func (r *Runtime) Invoke(ctx context.Context, op string, caller Principal, fn func(*Env) error) error {
	id := r.ids.Generate()
	logger := r.logger.With("invocation_id", id, "op", op, "caller", string(caller))
	ts := r.clock.Now()

	err := r.store.Update(ctx, func(tx kv.Txn) error {
		return fn(&Env{
			Txn:          tx,
			Timestamp:    ts,
			Caller:       caller,
			InvocationID: id,
			Logger:       logger,
		})
	})
	return r.finish(logger, op, err)
}

// Read runs fn as one read-only invocation named op.
func (r *Runtime) Read(ctx context.Context, op string, fn func(*ReadEnv) error) error {
	id := r.ids.Generate()
	logger := r.logger.With("invocation_id", id, "op", op)

	err := r.store.View(ctx, func(rd kv.Reader) error {
		return fn(&ReadEnv{Reader: rd, InvocationID: id, Logger: logger})
	})
	return r.finish(logger, op, err)
}

func (r *Runtime) finish(logger *slog.Logger, op string, err error) error {
	switch {
	case err == nil:
		logger.Debug("invocation committed")
		return nil
	case fault.IsFault(err):
		logger.Info("invocation refused", "fault", string(fault.CodeOf(err)), "error", err)
		return err
	default:
		logger.Error("invocation failed", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
}
