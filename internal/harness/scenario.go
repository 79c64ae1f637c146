package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of service calls with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated over the combined trace after all steps ran.
	Assertions []Assertion `yaml:"assertions"`
}

// Step invokes one registered service.
type Step struct {
	// Call is the service name.
	Call string `yaml:"call"`

	// Args are the invocation arguments.
	Args map[string]any `yaml:"args"`

	// Expect is optional. Without it any non-error result passes.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected result of a step.
type Expect struct {
	Success *bool `yaml:"success,omitempty"`

	// Outputs is a subset match over the result outputs.
	Outputs map[string]any `yaml:"outputs,omitempty"`

	// Failure implies success: false.
	Failure *ExpectFailure `yaml:"failure,omitempty"`
}

// ExpectFailure matches the failure of a result. Empty fields are not
// compared; Meta is a subset match.
type ExpectFailure struct {
	Type    string         `yaml:"type,omitempty"`
	Message string         `yaml:"message,omitempty"`
	Meta    map[string]any `yaml:"meta,omitempty"`
}

// Assertion validates the trace or the journal.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind is the event kind (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty"`

	// Action is the action name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Service restricts the match to one service.
	Service string `yaml:"service,omitempty"`

	// Count is the expected number of matches (trace_count, journal_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected completion order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertJournalCount  = "journal_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // typos like "assertion:" fail loudly
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Call == "" {
			return fmt.Errorf("steps[%d]: call is required", i)
		}
		if e := step.Expect; e != nil && e.Failure != nil {
			if e.Success != nil && *e.Success {
				return fmt.Errorf("steps[%d]: expect.failure contradicts success: true", i)
			}
			if len(e.Outputs) > 0 {
				return fmt.Errorf("steps[%d]: expect.outputs and expect.failure are exclusive", i)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

// validateAssertion checks that an assertion has the fields its type needs.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" && a.Action == "" {
			return fmt.Errorf("trace_contains requires kind or action")
		}
	case AssertTraceOrder:
		if len(a.Actions) < 2 {
			return fmt.Errorf("trace_order requires at least 2 actions")
		}
	case AssertTraceCount:
		if a.Kind == "" && a.Action == "" {
			return fmt.Errorf("trace_count requires kind or action")
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count requires non-negative count")
		}
	case AssertJournalCount:
		if a.Service == "" {
			return fmt.Errorf("journal_count requires service")
		}
		if a.Count < 0 {
			return fmt.Errorf("journal_count requires non-negative count")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
