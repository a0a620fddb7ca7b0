package memory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taxledger/internal/ledger"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func line(id string, typ ledger.EventType, at time.Time, cost int64) ledger.Event {
	return ledger.Event{
		ID:        id,
		Type:      typ,
		Date:      at,
		InvoiceID: "A1",
		ItemID:    "I1",
		Amount:    cost,
		TaxRate:   decimal.NewNullDecimal(decimal.RequireFromString("0.2")),
	}
}

func payment(id string, at time.Time, amount int64) ledger.Event {
	return ledger.Event{ID: id, Type: ledger.EventTaxPayment, Date: at, Amount: amount}
}

func TestAppend_AssignsSeq(t *testing.T) {
	s := New()
	batch := []ledger.Event{payment("p1", base, 1), payment("p2", base, 2)}

	require.NoError(t, s.Append(context.Background(), batch))
	assert.Equal(t, int64(1), batch[0].Seq)
	assert.Equal(t, int64(2), batch[1].Seq)
}

func TestSnapshot(t *testing.T) {
	s := New()
	ctx := context.Background()
	later := base.Add(24 * time.Hour)

	require.NoError(t, s.Append(ctx, []ledger.Event{
		line("s1", ledger.EventSale, base, 1000),
		line("a1", ledger.EventItemAmendment, later, 1200),
		line("a2", ledger.EventItemAmendment, later, 1300),
		payment("p1", base, 100),
		payment("p2", later.Add(time.Second), 40),
	}))

	snap, err := s.Snapshot(ctx, later)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 3)
	assert.Equal(t, "a2", snap.Lines[0].ID)
	assert.Equal(t, "a1", snap.Lines[1].ID)
	assert.Equal(t, "s1", snap.Lines[2].ID)
	assert.Equal(t, int64(100), snap.Paid)

	snap, err = s.Snapshot(ctx, base)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "s1", snap.Lines[0].ID)
}

func TestEvents_SortedAndFiltered(t *testing.T) {
	s := New()
	ctx := context.Background()
	later := base.Add(time.Hour)

	require.NoError(t, s.Append(ctx, []ledger.Event{
		payment("p2", later, 2),
		line("s1", ledger.EventSale, base, 10),
		payment("p1", base, 1),
	}))

	all, err := s.Events(ctx, ledger.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"s1", "p1", "p2"}, []string{all[0].ID, all[1].ID, all[2].ID})

	payments, err := s.Events(ctx, ledger.EventFilter{Until: base, Type: ledger.EventTaxPayment})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "p1", payments[0].ID)
}

func TestClose(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, s.Append(ctx, []ledger.Event{payment("p1", base, 1)}), ErrClosed)
	_, err := s.Snapshot(ctx, base)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Events(ctx, ledger.EventFilter{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSnapshot_PaidOverflow(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []ledger.Event{
		payment("p1", base, math.MaxInt64),
		payment("p2", base, 1),
	}))

	_, err := s.Snapshot(ctx, base)
	require.ErrorIs(t, err, ledger.ErrOverflow)

	snap, err := s.Snapshot(ctx, base.Add(-time.Second))
	require.NoError(t, err)
	assert.Zero(t, snap.Paid)
}
