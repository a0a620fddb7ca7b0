package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taxledger/internal/ledger"
)

func int64Ptr(v int64) *int64 { return &v }

func sale(date, invoice string, items ...map[string]any) map[string]any {
	list := make([]any, len(items))
	for i, it := range items {
		list[i] = it
	}
	return map[string]any{
		"eventType": "SALE",
		"date":      date,
		"invoiceId": invoice,
		"items":     list,
	}
}

func item(id string, cost int, rate float64) map[string]any {
	return map[string]any{"itemId": id, "cost": cost, "taxRate": rate}
}

func payment(date string, amount int) map[string]any {
	return map[string]any{"eventType": "TAX_PAYMENT", "date": date, "amount": amount}
}

func TestRun_Passes(t *testing.T) {
	scenario := &Scenario{
		Name:        "passes",
		Description: "sale then payment",
		Steps: []Step{
			{Transaction: sale("2024-01-01T00:00:00Z", "A1", item("I1", 1000, 0.2))},
			{Transaction: payment("2024-01-20T00:00:00Z", 100)},
		},
		Queries: []Query{
			{Date: "2023-12-31T00:00:00Z", TaxPosition: 0},
			{Date: "2024-02-01T00:00:00Z", TaxPosition: 100, Owed: int64Ptr(200), Paid: int64Ptr(100)},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Steps, 2)
	for _, s := range result.Steps {
		assert.Equal(t, KindTransaction, s.Kind)
		assert.Equal(t, OutcomeAccepted, s.Outcome)
	}

	require.Len(t, result.Events, 2)
	assert.Equal(t, "evt-000001", result.Events[0].ID)
	assert.Equal(t, ledger.EventSale, result.Events[0].Type)
	assert.True(t, Epoch.Equal(result.Events[0].RecordedAt))
	assert.Equal(t, "evt-000002", result.Events[1].ID)
	assert.True(t, Epoch.Add(time.Second).Equal(result.Events[1].RecordedAt))

	require.Len(t, result.Queries, 2)
	assert.Equal(t, int64(100), result.Queries[1].Position.TaxPosition)
}

func TestRun_ReportsWrongPosition(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong",
		Description: "expectations off by one",
		Steps: []Step{
			{Transaction: sale("2024-01-01T00:00:00Z", "A1", item("I1", 1000, 0.2))},
		},
		Queries: []Query{
			{Date: "2024-01-01T00:00:00Z", TaxPosition: 201, Owed: int64Ptr(199), Paid: int64Ptr(1)},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "taxPosition = 200, expected 201")
	assert.Contains(t, result.Errors[1], "owed = 200, expected 199")
	assert.Contains(t, result.Errors[2], "paid = 0, expected 1")
}

func TestRun_RejectExpectations(t *testing.T) {
	tests := []struct {
		name     string
		step     Step
		pass     bool
		outcome  string
		errorHas string
	}{
		{
			name:    "expected rejection",
			step:    Step{Transaction: payment("2024-01-01T00:00:00Z", -5), Reject: true},
			pass:    true,
			outcome: OutcomeRejected,
		},
		{
			name:     "unexpected rejection",
			step:     Step{Transaction: payment("2024-01-01T00:00:00Z", -5)},
			pass:     false,
			outcome:  OutcomeRejected,
			errorHas: "transaction rejected",
		},
		{
			name:     "unexpected acceptance",
			step:     Step{Transaction: payment("2024-01-01T00:00:00Z", 5), Reject: true},
			pass:     false,
			outcome:  OutcomeAccepted,
			errorHas: "expected rejection",
		},
		{
			name: "rejected amendment",
			step: Step{
				Amendment: map[string]any{"date": "2024-01-01T00:00:00Z", "invoiceId": "A1"},
				Reject:    true,
			},
			pass:    true,
			outcome: OutcomeRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := &Scenario{
				Name:        "reject",
				Description: tt.name,
				Steps:       []Step{tt.step},
				Queries:     []Query{{Date: "2024-12-31T00:00:00Z", TaxPosition: 0}},
			}
			if tt.outcome == OutcomeAccepted {
				scenario.Queries[0].TaxPosition = -5
			}

			result, err := Run(context.Background(), scenario)
			require.NoError(t, err)
			assert.Equal(t, tt.pass, result.Pass, "errors: %v", result.Errors)
			require.Len(t, result.Steps, 1)
			assert.Equal(t, tt.outcome, result.Steps[0].Outcome)
			if tt.outcome == OutcomeRejected {
				assert.NotEmpty(t, result.Steps[0].Violations)
				assert.Empty(t, result.Events)
			}
			if tt.errorHas != "" {
				require.NotEmpty(t, result.Errors)
				assert.Contains(t, result.Errors[0], tt.errorHas)
			}
		})
	}
}

func TestRun_BadQueryDate(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_date",
		Description: "query date is not a timestamp",
		Steps:       []Step{{Transaction: payment("2024-01-01T00:00:00Z", 5)}},
		Queries:     []Query{{Date: "yesterday"}},
	}

	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queries[0]")
}

func TestRun_IsolatedRuns(t *testing.T) {
	scenario := &Scenario{
		Name:        "isolated",
		Description: "each run starts empty",
		Steps:       []Step{{Transaction: payment("2024-01-01T00:00:00Z", 5)}},
		Queries:     []Query{{Date: "2024-01-01T00:00:00Z", TaxPosition: -5}},
	}

	for i := 0; i < 2; i++ {
		result, err := Run(context.Background(), scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d errors: %v", i, result.Errors)
		require.Len(t, result.Events, 1)
		assert.Equal(t, "evt-000001", result.Events[0].ID)
	}
}
