package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/taxledger/internal/ledger"
	"github.com/roach88/taxledger/internal/store"
	"github.com/roach88/taxledger/internal/testutil"
	"github.com/roach88/taxledger/internal/validate"
)

// Epoch is the recorded_at of the first event of every run; each later
// append is one second after the previous one.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// harness holds the per-run ledger wiring.
type harness struct {
	validator *validate.Validator
	writer    *ledger.Writer
	resolver  *ledger.Resolver
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Unmet expectations are reported in the result; an error is returned only
// when the run itself could not proceed (storage failure, bad query date).
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	validator, err := validate.New()
	if err != nil {
		return nil, err
	}

	opts := []ledger.Option{
		ledger.WithIDGenerator(testutil.NewSequenceIDs("evt")),
		ledger.WithClock(testutil.NewDeterministicClock(Epoch, time.Second)),
		ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs
	}
	h := &harness{
		validator: validator,
		writer:    ledger.NewWriter(st, opts...),
		resolver:  ledger.NewResolver(st, opts...),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		sr, err := h.applyStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		result.Steps = append(result.Steps, sr)

		switch {
		case step.Reject && sr.Outcome == OutcomeAccepted:
			result.AddError(fmt.Sprintf("steps[%d]: expected rejection, but %s was accepted", i, sr.Kind))
		case !step.Reject && sr.Outcome == OutcomeRejected:
			ve := &ledger.ValidationError{Violations: sr.Violations}
			result.AddError(fmt.Sprintf("steps[%d]: %s rejected: %v", i, sr.Kind, ve))
		}
	}

	events, err := st.Events(ctx, ledger.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	result.Events = events

	for i, q := range scenario.Queries {
		cutoff, err := h.validator.ParseDate(q.Date)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		pos, err := h.resolver.Position(ctx, cutoff)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		result.Queries = append(result.Queries, QueryResult{Date: q.Date, Position: pos})
		checkQuery(result, i, q, pos)
	}

	return result, nil
}

// applyStep validates and records one step. Validation failures are an
// outcome, not an error.
func (h *harness) applyStep(ctx context.Context, step Step) (StepResult, error) {
	sr := StepResult{Kind: step.Kind(), Outcome: OutcomeAccepted}

	var err error
	switch sr.Kind {
	case KindAmendment:
		err = h.applyAmendment(ctx, step.Amendment)
	default:
		err = h.applyTransaction(ctx, step.Transaction)
	}

	var ve *ledger.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		sr.Outcome = OutcomeRejected
		sr.Violations = ve.Violations
	default:
		return StepResult{}, err
	}
	return sr, nil
}

func (h *harness) applyTransaction(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	tx, err := h.validator.ParseTransaction(body)
	if err != nil {
		return err
	}
	return validate.Apply(ctx, h.writer, tx)
}

func (h *harness) applyAmendment(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode amendment: %w", err)
	}
	req, err := h.validator.ParseAmendment(body)
	if err != nil {
		return err
	}
	return validate.ApplyAmendment(ctx, h.writer, req)
}

func checkQuery(result *Result, i int, q Query, pos ledger.Position) {
	if pos.TaxPosition != q.TaxPosition {
		result.AddError(fmt.Sprintf("queries[%d] at %s: taxPosition = %d, expected %d", i, q.Date, pos.TaxPosition, q.TaxPosition))
	}
	if q.Owed != nil && pos.Owed != *q.Owed {
		result.AddError(fmt.Sprintf("queries[%d] at %s: owed = %d, expected %d", i, q.Date, pos.Owed, *q.Owed))
	}
	if q.Paid != nil && pos.Paid != *q.Paid {
		result.AddError(fmt.Sprintf("queries[%d] at %s: paid = %d, expected %d", i, q.Date, pos.Paid, *q.Paid))
	}
}
