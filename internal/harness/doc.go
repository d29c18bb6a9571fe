// Package harness runs ledger scenarios: scripted sequences of registry
// operations with expected outcomes, checked against the resulting trace and
// final ledger state.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: tutoring_payout
//	description: "Tutor is paid for a confirmed session and withdraws"
//	clock: { start: 1700000000, step: 1 }
//	store: sqlite            # or memory; defaults to an in-memory SQLite database
//	options:
//	  reject_duplicates: false
//	  self_withdraw_only: true
//	  inspectors: [acme]
//	setup:
//	  - invoke: session.record
//	    caller: T
//	    args: { tutor: T, student: S, duration_minutes: 30 }
//	flow:
//	  - invoke: session.confirm
//	    caller: S
//	    args: { session_id: 1 }
//	    expect:
//	      case: Ok
//	assertions:
//	  - type: trace_count
//	    action: session.pay
//	    count: 1
//	  - type: final_state
//	    kind: balance
//	    identity: T
//	    expect: { amount: "90" }
//
// Setup steps must succeed. Flow steps may expect a fault, named by case:
// Ok, NotFound, InvalidState, Unauthorized, AlreadyExists, InvalidArgument
// or Corrupt.
//
// # Assertion Types
//
//   - trace_contains: an invocation of action with matching args exists
//   - trace_order: actions appear in the given order
//   - trace_count: action was invoked exactly count times
//   - final_state: a stamp, session or balance holds the expected fields
//
// # Deterministic Testing
//
// Every scenario runs on a fresh store with a deterministic clock and
// sequential invocation ids, so its trace is byte-for-byte reproducible and
// can be compared with a golden file.
package harness
