package harness

import "github.com/roach88/taxledger/internal/ledger"

// Outcome of a step.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// StepResult records what happened to one step.
type StepResult struct {
	Kind    string
	Outcome string

	// Violations is set when the step was rejected.
	Violations []ledger.Violation
}

// QueryResult is the resolved position for one query.
type QueryResult struct {
	// Date is the query date as written in the scenario.
	Date     string
	Position ledger.Position
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step and query met its expectation.
	Pass bool

	Steps   []StepResult
	Queries []QueryResult

	// Events is the ledger after all steps, oldest first.
	Events []ledger.Event

	// Errors describes every unmet expectation.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Steps:   []StepResult{},
		Queries: []QueryResult{},
		Events:  []ledger.Event{},
		Errors:  []string{},
	}
}

// AddError records an unmet expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
