package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taxledger/internal/ledger"
)

func TestSnapshot_Empty(t *testing.T) {
	s := createTestStore(t)

	snap, err := s.Snapshot(context.Background(), mustDate(t, "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
	assert.Zero(t, snap.Paid)
}

func TestSnapshot_OrdersNewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d1 := mustDate(t, "2024-01-01T00:00:00Z")
	d2 := mustDate(t, "2024-01-02T00:00:00Z")

	require.NoError(t, s.Append(ctx, []ledger.Event{
		createTestSale("s1", d1, "A1", "I1", 1000, "0.2"),
		createTestAmendment("a1", d2, "A1", "I1", 1200, "0.2"),
		// Same date as a1, appended later: must win the tie.
		createTestAmendment("a2", d2, "A1", "I1", 1300, "0.2"),
	}))

	snap, err := s.Snapshot(ctx, d2)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 3)
	assert.Equal(t, "a2", snap.Lines[0].ID)
	assert.Equal(t, "a1", snap.Lines[1].ID)
	assert.Equal(t, "s1", snap.Lines[2].ID)
}

func TestSnapshot_CutoffIsInclusive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	at := mustDate(t, "2024-02-22T17:29:39Z")

	require.NoError(t, s.Append(ctx, []ledger.Event{
		createTestSale("s1", at, "A1", "I1", 1000, "0.2"),
		createTestPayment("p1", at, 50),
		createTestPayment("p2", mustDate(t, "2024-02-22T17:29:40Z"), 70),
	}))

	snap, err := s.Snapshot(ctx, at)
	require.NoError(t, err)
	assert.Len(t, snap.Lines, 1)
	assert.Equal(t, int64(50), snap.Paid)

	before, err := s.Snapshot(ctx, mustDate(t, "2024-02-22T17:29:38Z"))
	require.NoError(t, err)
	assert.Empty(t, before.Lines)
	assert.Zero(t, before.Paid)
}

func TestSnapshot_ComparesAcrossOffsets(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Event{
		createTestPayment("p1", mustDate(t, "2024-02-22T17:00:00+02:00"), 10),
	}))

	// 15:00Z is the same instant.
	snap, err := s.Snapshot(ctx, mustDate(t, "2024-02-22T15:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), snap.Paid)

	snap, err = s.Snapshot(ctx, mustDate(t, "2024-02-22T16:59:59+02:00"))
	require.NoError(t, err)
	assert.Zero(t, snap.Paid)
}

func TestSnapshot_SumsPayments(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d := mustDate(t, "2024-01-01T00:00:00Z")

	require.NoError(t, s.Append(ctx, []ledger.Event{
		createTestPayment("p1", d, 100),
		createTestPayment("p2", d, 40),
	}))

	snap, err := s.Snapshot(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, int64(140), snap.Paid)
	assert.Empty(t, snap.Lines)
}

func TestEvents_Filter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d1 := mustDate(t, "2024-01-01T00:00:00Z")
	d2 := mustDate(t, "2024-01-02T00:00:00Z")

	require.NoError(t, s.Append(ctx, []ledger.Event{
		createTestPayment("p2", d2, 20),
		createTestSale("s1", d1, "A1", "I1", 1000, "0.2"),
		createTestPayment("p1", d1, 10),
	}))

	tests := []struct {
		name   string
		filter ledger.EventFilter
		want   []string
	}{
		{"all", ledger.EventFilter{}, []string{"s1", "p1", "p2"}},
		{"until", ledger.EventFilter{Until: d1}, []string{"s1", "p1"}},
		{"type", ledger.EventFilter{Type: ledger.EventTaxPayment}, []string{"p1", "p2"}},
		{"both", ledger.EventFilter{Until: d1, Type: ledger.EventTaxPayment}, []string{"p1"}},
		{"none", ledger.EventFilter{Type: ledger.EventItemAmendment}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.Events(ctx, tt.filter)
			require.NoError(t, err)

			ids := []string{}
			for _, e := range events {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
