package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kvledger/internal/config"
)

// Scenario defines a ledger scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clock configures the deterministic ledger clock.
	Clock ClockConfig `yaml:"clock,omitempty"`

	// Store selects the backend: "sqlite" (default, in memory) or "memory".
	Store string `yaml:"store,omitempty"`

	// Options configures the registries.
	Options Options `yaml:"options,omitempty"`

	// Setup steps establish initial state and must all succeed.
	Setup []FlowStep `yaml:"setup,omitempty"`

	// Flow contains the invocations under test.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ClockConfig sets the first ledger timestamp and the increment per
// invocation. Zero Start means DefaultClockStart; zero Step freezes time.
type ClockConfig struct {
	Start uint64 `yaml:"start"`
	Step  uint64 `yaml:"step"`
}

// DefaultClockStart is the first timestamp when a scenario sets none.
const DefaultClockStart = 1700000000

// Options mirrors the registry settings of the config file.
type Options struct {
	RejectDuplicates bool     `yaml:"reject_duplicates"`
	Inspectors       []string `yaml:"inspectors"`
	SelfWithdrawOnly bool     `yaml:"self_withdraw_only"`
}

func (o Options) stamps() config.StampsConfig {
	return config.StampsConfig{RejectDuplicates: o.RejectDuplicates, Inspectors: o.Inspectors}
}

func (o Options) sessions() config.SessionsConfig {
	return config.SessionsConfig{SelfWithdrawOnly: o.SelfWithdrawOnly}
}

// FlowStep invokes one registry operation.
type FlowStep struct {
	// Invoke is the operation name (e.g. "session.pay").
	Invoke string `yaml:"invoke"`

	// Caller is the invoking principal. Empty means anonymous.
	Caller string `yaml:"caller,omitempty"`

	// Args contains the operation arguments.
	Args map[string]any `yaml:"args"`

	// Expect specifies the expected completion. If nil the step must
	// complete with Ok.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected completion behavior.
type ExpectClause struct {
	// Case is the expected outcome: "Ok" or a fault name such as "NotFound".
	Case string `yaml:"case"`

	// Result is a subset match against the completion's result fields.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count, final_state.
	Type string `yaml:"type"`

	// Action is the operation name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are matched as a subset (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Count is the expected number of invocations (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Kind is stamp, session or balance (final_state).
	Kind string `yaml:"kind,omitempty"`

	// ID addresses a stamp or session (final_state).
	ID any `yaml:"id,omitempty"`

	// Identity addresses a balance (final_state).
	Identity string `yaml:"identity,omitempty"`

	// Expect is matched as a subset of the stored record (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// final_state kinds.
const (
	KindStamp   = "stamp"
	KindSession = "session"
	KindBalance = "balance"
)

// Store names.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Store {
	case "", StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", s.Store)
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(where string, step FlowStep) error {
	if step.Invoke == "" {
		return fmt.Errorf("%s: invoke is required", where)
	}
	if _, ok := actions[step.Invoke]; !ok {
		return fmt.Errorf("%s: unknown operation %q", where, step.Invoke)
	}
	if step.Args == nil {
		return fmt.Errorf("%s: args is required (use empty map if no args)", where)
	}
	if step.Expect != nil {
		if step.Expect.Case == "" {
			return fmt.Errorf("%s.expect: case is required", where)
		}
		if !isKnownCase(step.Expect.Case) {
			return fmt.Errorf("%s.expect: unknown case %q", where, step.Expect.Case)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		switch a.Kind {
		case KindStamp, KindSession:
			if a.ID == nil {
				return fmt.Errorf("assertions[%d]: id is required for final_state of kind %s", index, a.Kind)
			}
		case KindBalance:
			if a.Identity == "" {
				return fmt.Errorf("assertions[%d]: identity is required for final_state of kind balance", index)
			}
		case "":
			return fmt.Errorf("assertions[%d]: kind is required for final_state", index)
		default:
			return fmt.Errorf("assertions[%d]: unknown final_state kind %q", index, a.Kind)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
