package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of engine operations with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the store: "memory" (default) or "sqlite".
	// SQLite scenarios run against a private in-memory database.
	Backend string `yaml:"backend,omitempty"`

	// Steps run in order against one engine and one store.
	Steps []Step `yaml:"steps"`
}

// Step is one engine call and its expectations. Unset expectations are
// not checked.
type Step struct {
	// Op is one of OpNext, OpPeek, OpReset, OpStats.
	Op string `yaml:"op"`

	// Group is the rotation group the call addresses.
	Group string `yaml:"group"`

	// Candidates are the ids offered to next and peek.
	Candidates []int64 `yaml:"candidates,omitempty"`

	// Expect is the assignee next or peek must return.
	Expect *int64 `yaml:"expect,omitempty"`

	// ExpectNone requires next or peek to return no assignee, or stats to
	// find no record.
	ExpectNone bool `yaml:"expect_none,omitempty"`

	// ExpectExisted is the value reset must return.
	ExpectExisted *bool `yaml:"expect_existed,omitempty"`

	// ExpectStats is the stats snapshot stats must return.
	ExpectStats *StatsExpectation `yaml:"expect_stats,omitempty"`

	// ExpectError requires the call to fail with the given error kind.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// StatsExpectation is the part of a stats result a scenario can pin down.
type StatsExpectation struct {
	LastAssignedID   int64 `yaml:"last_assigned_id"`
	TotalAssignments int64 `yaml:"total_assignments"`
}

// Operation names.
const (
	OpNext  = "next"
	OpPeek  = "peek"
	OpReset = "reset"
	OpStats = "stats"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Error kinds for Step.ExpectError.
const (
	ErrorKindValidation = "validation"
	ErrorKindStore      = "store"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "expected:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Backend == "" {
		scenario.Backend = BackendMemory
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and that each
// step's expectations fit its op.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", s.Backend, BackendMemory, BackendSQLite)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, st *Step) error {
	switch st.ExpectError {
	case "", ErrorKindValidation, ErrorKindStore:
	default:
		return fmt.Errorf("steps[%d]: unknown expect_error %q", i, st.ExpectError)
	}
	if st.ExpectError != "" && (st.Expect != nil || st.ExpectNone || st.ExpectExisted != nil || st.ExpectStats != nil) {
		return fmt.Errorf("steps[%d]: expect_error cannot be combined with other expectations", i)
	}

	switch st.Op {
	case OpNext, OpPeek:
		if st.ExpectExisted != nil || st.ExpectStats != nil {
			return fmt.Errorf("steps[%d]: %s supports only expect and expect_none", i, st.Op)
		}
		if st.Expect != nil && st.ExpectNone {
			return fmt.Errorf("steps[%d]: expect and expect_none are mutually exclusive", i)
		}
	case OpReset:
		if st.Candidates != nil || st.Expect != nil || st.ExpectNone || st.ExpectStats != nil {
			return fmt.Errorf("steps[%d]: reset supports only expect_existed", i)
		}
	case OpStats:
		if st.Candidates != nil || st.Expect != nil || st.ExpectExisted != nil {
			return fmt.Errorf("steps[%d]: stats supports only expect_stats and expect_none", i)
		}
		if st.ExpectStats != nil && st.ExpectNone {
			return fmt.Errorf("steps[%d]: expect_stats and expect_none are mutually exclusive", i)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", i, st.Op)
	}
	return nil
}
