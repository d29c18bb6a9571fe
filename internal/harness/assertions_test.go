package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kvledger/internal/amount"
	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/inspection"
	"github.com/roach88/kvledger/internal/ir"
	"github.com/roach88/kvledger/internal/kv"
	"github.com/roach88/kvledger/internal/ledger"
)

func payTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventInvocation, Action: "session.record", Caller: "T", Args: map[string]any{"tutor": "T", "student": "S", "duration_minutes": 30}, Seq: 1},
		{Type: EventCompletion, OutputCase: CaseOk, Result: map[string]any{"session_id": "1"}, Seq: 2},
		{Type: EventInvocation, Action: "session.confirm", Caller: "S", Args: map[string]any{"session_id": 1}, Seq: 3},
		{Type: EventCompletion, OutputCase: CaseOk, Seq: 4},
		{Type: EventInvocation, Action: "session.pay", Args: map[string]any{"session_id": 1, "rate": 3}, Seq: 5},
		{Type: EventCompletion, OutputCase: CaseOk, Seq: 6},
	}
}

func TestAssertTraceContains_Found(t *testing.T) {
	assertion := Assertion{
		Type:   AssertTraceContains,
		Action: "session.record",
		Args:   map[string]any{"tutor": "T"},
	}

	assert.NoError(t, assertTraceContains(payTrace(), assertion))
}

func TestAssertTraceContains_NotFound(t *testing.T) {
	assertion := Assertion{
		Type:   AssertTraceContains,
		Action: "session.withdraw",
	}

	err := assertTraceContains(payTrace(), assertion)
	require.Error(t, err)

	assertErr, ok := err.(*AssertionError)
	require.True(t, ok)
	assert.Equal(t, "trace_contains", assertErr.Type)
	assert.Contains(t, assertErr.Expected, "session.withdraw")
	assert.Equal(t, "not found in trace", assertErr.Actual)
}

func TestAssertTraceContains_WrongArgs(t *testing.T) {
	assertion := Assertion{
		Type:   AssertTraceContains,
		Action: "session.pay",
		Args:   map[string]any{"rate": 4},
	}

	assert.Error(t, assertTraceContains(payTrace(), assertion))
}

func TestAssertTraceContains_TypeSensitive(t *testing.T) {
	// "1" and 1 encode differently.
	assertion := Assertion{
		Type:   AssertTraceContains,
		Action: "session.confirm",
		Args:   map[string]any{"session_id": "1"},
	}

	assert.Error(t, assertTraceContains(payTrace(), assertion))
}

func TestAssertTraceOrder(t *testing.T) {
	tests := []struct {
		name    string
		actions []string
		wantErr string
	}{
		{"in order", []string{"session.record", "session.pay"}, ""},
		{"out of order", []string{"session.pay", "session.confirm"}, "should be before"},
		{"missing", []string{"session.record", "session.withdraw"}, "missing action: session.withdraw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceOrder(payTrace(), Assertion{Type: AssertTraceOrder, Actions: tt.actions})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(payTrace(), Assertion{Action: "session.pay", Count: 1}))
	assert.NoError(t, assertTraceCount(payTrace(), Assertion{Action: "session.withdraw", Count: 0}))

	err := assertTraceCount(payTrace(), Assertion{Action: "session.pay", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 2 occurrences of session.pay")
	assert.Contains(t, err.Error(), "Actual: 1 occurrences")
}

func newAssertionLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	ctx := context.Background()
	l := ledger.New(host.NewRuntime(kv.NewMemory(), host.WithClock(host.FixedClock(77))), ledger.Options{})

	id, err := l.Sessions.RecordSession(ctx, "T", "S", 30)
	require.NoError(t, err)
	require.NoError(t, l.Sessions.ConfirmSession(ctx, id, "S"))
	require.NoError(t, l.Sessions.PaySession(ctx, "", id, amount.FromUint64(3)))
	require.NoError(t, l.Stamps.CreateStamp(ctx, "acme", inspection.StampInput{
		StampID: 9, AssetID: "A", Inspector: "ACME", Passed: true,
	}))
	return l
}

func TestAssertFinalState(t *testing.T) {
	ctx := context.Background()
	l := newAssertionLedger(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "session fields",
			assertion: Assertion{Kind: KindSession, ID: 1, Expect: map[string]any{"paid": true, "duration_minutes": 30, "timestamp": "77", "status": "paid"}},
		},
		{
			name:      "session id as decimal string",
			assertion: Assertion{Kind: KindSession, ID: "1", Expect: map[string]any{"found": true}},
		},
		{
			name:      "absent session",
			assertion: Assertion{Kind: KindSession, ID: 2, Expect: map[string]any{"found": false}},
		},
		{
			name:      "balance",
			assertion: Assertion{Kind: KindBalance, Identity: "T", Expect: map[string]any{"amount": "90"}},
		},
		{
			name:      "stamp",
			assertion: Assertion{Kind: KindStamp, ID: 9, Expect: map[string]any{"valid": true, "inspected_at": "77"}},
		},
		{
			name:      "wrong value",
			assertion: Assertion{Kind: KindBalance, Identity: "T", Expect: map[string]any{"amount": 90}},
			wantErr:   `field "amount" = "90", want 90`,
		},
		{
			name:      "missing field",
			assertion: Assertion{Kind: KindSession, ID: 2, Expect: map[string]any{"tutor": "T"}},
			wantErr:   `field "tutor" missing`,
		},
		{
			name:      "bad id",
			assertion: Assertion{Kind: KindStamp, ID: -1, Expect: map[string]any{"found": false}},
			wantErr:   "final_state id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(ctx, l, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	l := newAssertionLedger(t)
	result := NewResult()
	result.Trace = payTrace()

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Action: "session.pay", Count: 1},
		{Type: AssertFinalState, Kind: KindBalance, Identity: "T", Expect: map[string]any{"amount": "91"}},
		{Type: "bogus"},
	}, &AssertionContext{Ledger: l, Ctx: context.Background()})

	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "final_state")
	assert.Contains(t, failures[1], `unknown assertion type "bogus"`)
}

func TestEvaluateAssertions_FinalStateNeedsLedger(t *testing.T) {
	failures := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertFinalState, Kind: KindBalance, Identity: "T", Expect: map[string]any{"amount": "0"}},
	}, nil)

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "requires ledger context")
}

func TestMatchFields(t *testing.T) {
	actual := ir.Object{"a": ir.String("1"), "b": ir.Bool(true), "n": ir.Int(2)}

	assert.Empty(t, matchFields(actual, map[string]any{"a": "1", "n": 2}))
	assert.Empty(t, matchFields(actual, nil))
	assert.Equal(t,
		[]string{`field "a" = "1", want 1`, `field "z" missing`},
		matchFields(actual, map[string]any{"z": true, "a": 1}))
}
