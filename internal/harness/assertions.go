package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/kvledger/internal/fault"
	"github.com/roach88/kvledger/internal/host"
	"github.com/roach88/kvledger/internal/ir"
	"github.com/roach88/kvledger/internal/ledger"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Action, event.Args)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type != EventInvocation || event.Action != assertion.Action {
			continue
		}
		args, err := convertArgs(event.Args)
		if err != nil {
			continue
		}
		if len(matchFields(args, assertion.Args)) == 0 {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected action, 1-indexed for readability.
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		for _, expectedAction := range assertion.Actions {
			if event.Action == expectedAction && positions[expectedAction] == 0 {
				positions[expectedAction] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState reads one record through the registries and checks the
// expected fields (subset semantics).
func assertFinalState(ctx context.Context, l *ledger.Ledger, assertion Assertion) error {
	var (
		state ir.Object
		err   error
		what  string
	)
	switch assertion.Kind {
	case KindStamp, KindSession:
		var args ir.Object
		args, err = convertArgs(map[string]any{"id": assertion.ID})
		if err != nil {
			return fmt.Errorf("final_state id: %w", err)
		}
		var id uint64
		id, err = argUint(args, "id")
		if err != nil {
			return fmt.Errorf("final_state id: %w", err)
		}
		what = fmt.Sprintf("%s %d", assertion.Kind, id)
		if assertion.Kind == KindStamp {
			state, err = stampState(ctx, l, id)
		} else {
			state, err = sessionState(ctx, l, id)
		}
	case KindBalance:
		what = fmt.Sprintf("balance of %q", assertion.Identity)
		state, err = balance(ctx, l, host.Anonymous, ir.Object{"identity": ir.String(assertion.Identity)})
	default:
		return fmt.Errorf("final_state: unknown kind %q", assertion.Kind)
	}
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("readable %s", what),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	if mismatches := matchFields(state, assertion.Expect); len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s matching %v", what, assertion.Expect),
			Actual:   strings.Join(mismatches, "; "),
		}
	}
	return nil
}

// sessionState is view_session with a found flag instead of NOT_FOUND.
func sessionState(ctx context.Context, l *ledger.Ledger, id uint64) (ir.Object, error) {
	s, err := l.Sessions.ViewSession(ctx, id)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return ir.Object{"found": ir.Bool(false)}, nil
		}
		return nil, err
	}
	obj := sessionObject(s)
	obj["found"] = ir.Bool(true)
	return obj, nil
}

// matchFields checks that actual holds every expected field with an equal
// value and returns one message per mismatch, sorted by field. Values are
// compared by canonical encoding, so 90 and "90" differ.
func matchFields(actual ir.Object, expected map[string]any) []string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		got, ok := actual[key]
		if !ok {
			out = append(out, fmt.Sprintf("field %q missing", key))
			continue
		}
		want, err := ir.FromAny(expected[key])
		if err != nil {
			out = append(out, fmt.Sprintf("field %q: bad expectation: %v", key, err))
			continue
		}
		if !valuesEqual(got, want) {
			out = append(out, fmt.Sprintf("field %q = %s, want %s", key, render(got), render(want)))
		}
	}
	return out
}

func valuesEqual(a, b ir.Value) bool {
	ab, errA := ir.MarshalCanonical(a)
	bb, errB := ir.MarshalCanonical(b)
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}

func render(v ir.Value) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ledger *ledger.Ledger
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides ledger access for final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Ledger == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires ledger context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Ledger, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			failures = append(failures, err.Error())
		}
	}

	return failures
}
