package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/invstore/internal/invoice"
	"github.com/roach88/invstore/internal/store"
)

// DefaultStoreName is used when a scenario does not name its store.
const DefaultStoreName = "dbInvoices"

// Scenario is a scripted session against one invoice store.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Store is the store name. Defaults to DefaultStoreName.
	Store string `yaml:"store,omitempty"`

	// Version is the schema version used by open steps that omit one.
	// Defaults to 1.
	Version int `yaml:"version,omitempty"`

	// Steps run in order. Each step waits for the previous one to resolve.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation issued against the store.
type Step struct {
	Op        string        `yaml:"op"`
	Number    string        `yaml:"number,omitempty"`
	Name      string        `yaml:"name,omitempty"`
	ID        int64         `yaml:"id,omitempty"`
	Direction string        `yaml:"direction,omitempty"`
	Version   int           `yaml:"version,omitempty"`
	Expect    *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies how a step should resolve.
type ExpectClause struct {
	// Outcome is ok or error. A non-empty Code implies error.
	Outcome string `yaml:"outcome,omitempty"`

	// Code is the expected manager error code.
	Code string `yaml:"code,omitempty"`

	// Result is compared with the JSON form of the step's result.
	// Objects are subset matches, lists must match in length and order.
	Result any `yaml:"result,omitempty"`
}

// Operation names accepted in steps.
const (
	OpOpen   = "open"
	OpClose  = "close"
	OpAdd    = "add"
	OpDelete = "delete"
	OpFind   = "find"
	OpList   = "list"
	OpClear  = "clear"
	OpCount  = "count"
)

var knownOps = map[string]bool{
	OpOpen: true, OpClose: true, OpAdd: true, OpDelete: true,
	OpFind: true, OpList: true, OpClear: true, OpCount: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

// storeName returns the configured store name or the default.
func (s *Scenario) storeName() string {
	if s.Store == "" {
		return DefaultStoreName
	}
	return s.Store
}

// openVersion returns the version an open step connects at.
func (s *Scenario) openVersion(step Step) int {
	if step.Version > 0 {
		return step.Version
	}
	if s.Version > 0 {
		return s.Version
	}
	return 1
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if err := store.ValidateName(s.storeName()); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if s.Version < 0 {
		return fmt.Errorf("version must be positive, got %d", s.Version)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if !knownOps[step.Op] {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if step.Version < 0 {
		return fmt.Errorf("version must be positive, got %d", step.Version)
	}
	if _, err := invoice.ParseDirection(step.Direction); err != nil {
		return err
	}
	if step.Expect != nil {
		switch step.Expect.Outcome {
		case "", OutcomeOK, OutcomeError:
		default:
			return fmt.Errorf("expect.outcome must be ok or error, got %q", step.Expect.Outcome)
		}
		if step.Expect.Outcome == OutcomeOK && step.Expect.Code != "" {
			return fmt.Errorf("expect.code %q conflicts with outcome ok", step.Expect.Code)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceOrder:
		if len(a.Ops) < 2 {
			return fmt.Errorf("trace_order needs at least two ops")
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("trace_count requires op")
		}
		switch a.Outcome {
		case "", OutcomeOK, OutcomeError:
		default:
			return fmt.Errorf("trace_count outcome must be ok or error, got %q", a.Outcome)
		}
	case AssertFinalState, AssertFinalCount:
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("count must not be negative")
	}
	return nil
}
