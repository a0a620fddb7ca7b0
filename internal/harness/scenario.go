package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one scripted ledger run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Queries are evaluated after all steps.
	Queries []Query `yaml:"queries"`
}

// Step is exactly one of Transaction or Amendment.
type Step struct {
	// Transaction is a POST /transactions body.
	Transaction map[string]any `yaml:"transaction,omitempty"`

	// Amendment is a PATCH /sale body.
	Amendment map[string]any `yaml:"amendment,omitempty"`

	// Reject expects the payload to fail validation.
	Reject bool `yaml:"reject,omitempty"`
}

// Step kinds.
const (
	KindTransaction = "transaction"
	KindAmendment   = "amendment"
)

// Kind names the populated payload.
func (s Step) Kind() string {
	if s.Amendment != nil {
		return KindAmendment
	}
	return KindTransaction
}

// Query is a tax position lookup with its expected answer.
type Query struct {
	// Date is the cutoff, RFC 3339 with offset.
	Date string `yaml:"date"`

	// TaxPosition is the expected owed minus paid.
	TaxPosition int64 `yaml:"taxPosition"`

	// Owed and Paid are checked only when set.
	Owed *int64 `yaml:"owed,omitempty"`
	Paid *int64 `yaml:"paid,omitempty"`
}

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

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "query:" vs "queries:")
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch {
		case step.Transaction == nil && step.Amendment == nil:
			return fmt.Errorf("steps[%d]: one of transaction or amendment is required", i)
		case step.Transaction != nil && step.Amendment != nil:
			return fmt.Errorf("steps[%d]: transaction and amendment are mutually exclusive", i)
		}
	}
	for i, q := range s.Queries {
		if q.Date == "" {
			return fmt.Errorf("queries[%d]: date is required", i)
		}
	}
	return nil
}
