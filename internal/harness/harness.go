package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/ir"
	"github.com/roach88/kvledger/internal/kv"
	"github.com/roach88/kvledger/internal/ledger"
	"github.com/roach88/kvledger/internal/store"
	"github.com/roach88/kvledger/internal/testutil"
)

// Harness is the scenario execution engine. It runs steps against real
// registries with a deterministic clock and invocation ids.
type Harness struct {
	ledger *ledger.Ledger
	logger *slog.Logger
	seq    int64
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes ledger and harness logs to l. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh store for isolation.
//
// Execution flow:
// 1. Open a fresh store and build the registries
// 2. Execute setup steps, which must all succeed
// 3. Execute flow steps, checking expect clauses
// 4. Evaluate assertions against the trace and final state
//
// A returned error means the scenario could not run (store failure, a
// failing setup step). Expectation and assertion failures are reported in
// Result.Errors instead.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	rc := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&rc)
	}

	st, err := openStore(scenario.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	start := scenario.Clock.Start
	if start == 0 {
		start = DefaultClockStart
	}
	clock := testutil.NewDeterministicClock(start, scenario.Clock.Step)

	rt := host.NewRuntime(st,
		host.WithClock(clock),
		host.WithIDGenerator(testutil.NewSequentialIDs("")),
		host.WithLogger(rc.logger),
	)
	h := &Harness{
		ledger: ledger.New(rt, ledger.Options{
			Stamps:   scenario.Options.stamps(),
			Sessions: scenario.Options.sessions(),
		}),
		logger: rc.logger,
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Setup {
		outcome, _, err := h.execute(ctx, step, result)
		if err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
		if outcome != CaseOk {
			return nil, fmt.Errorf("setup step %d (%s): completed with %s", i, step.Invoke, outcome)
		}
	}

	for i, step := range scenario.Flow {
		outcome, got, err := h.execute(ctx, step, result)
		if err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
		for _, msg := range checkExpect(step, outcome, got) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Invoke, msg))
		}

		h.logger.Debug("flow step completed",
			"step", i,
			"action", step.Invoke,
			"output_case", outcome,
		)
	}

	actx := &AssertionContext{Ledger: h.ledger, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func openStore(name string) (kv.Store, error) {
	if name == StoreMemory {
		return kv.NewMemory(), nil
	}
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, err
	}
	return st, nil
}

// execute runs one step, recording its invocation and completion.
// Faults become the outcome case; other errors are returned.
func (h *Harness) execute(ctx context.Context, step FlowStep, result *Result) (string, ir.Object, error) {
	args, err := convertArgs(step.Args)
	if err != nil {
		return "", nil, fmt.Errorf("failed to convert args: %w", err)
	}
	fn, ok := actions[step.Invoke]
	if !ok {
		return "", nil, fmt.Errorf("unknown operation %q", step.Invoke)
	}

	result.AddInvocationTrace(step.Invoke, step.Caller, step.Args, h.nextSeq())

	got, err := fn(ctx, h.ledger, host.Principal(step.Caller), args)
	outcome, isFault := caseOf(err)
	if !isFault {
		return "", nil, fmt.Errorf("%s: %w", step.Invoke, err)
	}
	if err != nil {
		got = nil
	}

	var traceResult map[string]any
	if len(got) > 0 {
		traceResult = ir.ToAny(got).(map[string]any)
	}
	result.AddCompletionTrace(outcome, traceResult, h.nextSeq())

	return outcome, got, nil
}

func (h *Harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// checkExpect compares a completion with the step's expect clause. A step
// without one must complete Ok.
func checkExpect(step FlowStep, outcome string, got ir.Object) []string {
	want := CaseOk
	if step.Expect != nil {
		want = step.Expect.Case
	}
	if outcome != want {
		return []string{fmt.Sprintf("expected case %s, got %s", want, outcome)}
	}
	if step.Expect == nil {
		return nil
	}
	return matchFields(got, step.Expect.Result)
}

// convertArgs converts YAML-parsed arguments to an ir.Object.
func convertArgs(args map[string]any) (ir.Object, error) {
	if args == nil {
		return ir.Object{}, nil
	}
	v, err := ir.FromAny(args)
	if err != nil {
		return nil, err
	}
	return v.(ir.Object), nil
}
