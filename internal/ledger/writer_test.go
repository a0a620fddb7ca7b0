package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taxledger/internal/ledger"
)

func TestAppendSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := at(t, "2024-01-01T00:00:00Z")

	events, err := f.writer.AppendSale(ctx, date, "A1", []ledger.SaleItem{
		{ItemID: "I1", Cost: 1000, TaxRate: rate("0.2")},
		{ItemID: "I2", Cost: 500, TaxRate: rate("0.1")},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "evt-000001", events[0].ID)
	assert.Equal(t, "evt-000002", events[1].ID)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(2), events[1].Seq)
	for _, e := range events {
		assert.Equal(t, ledger.EventSale, e.Type)
		assert.Equal(t, "A1", e.InvoiceID)
		assert.True(t, e.Date.Equal(date))
		assert.True(t, e.TaxRate.Valid)
	}
	// One clock read per batch.
	assert.True(t, events[0].RecordedAt.Equal(events[1].RecordedAt))

	stored, err := f.store.Events(ctx, ledger.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestAppendSale_Validation(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		date      time.Time
		invoiceID string
		items     []ledger.SaleItem
		fields    []string
	}{
		{
			name:      "no items",
			date:      date,
			invoiceID: "A1",
			fields:    []string{"items"},
		},
		{
			name:      "missing date and invoice",
			invoiceID: "  ",
			items:     []ledger.SaleItem{{ItemID: "I1", Cost: 1, TaxRate: rate("0.1")}},
			fields:    []string{"date", "invoiceId"},
		},
		{
			name:      "bad second item",
			date:      date,
			invoiceID: "A1",
			items: []ledger.SaleItem{
				{ItemID: "I1", Cost: 1, TaxRate: rate("0.1")},
				{ItemID: "", Cost: -5, TaxRate: rate("-0.1")},
			},
			fields: []string{"items[1].itemId", "items[1].cost", "items[1].taxRate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.writer.AppendSale(ctx, tt.date, tt.invoiceID, tt.items)
			require.Error(t, err)
			require.True(t, ledger.IsValidationError(err))

			var ve *ledger.ValidationError
			require.True(t, errors.As(err, &ve))
			var fields []string
			for _, v := range ve.Violations {
				fields = append(fields, v.Field)
			}
			assert.Equal(t, tt.fields, fields)

			stored, err := f.store.Events(ctx, ledger.EventFilter{})
			require.NoError(t, err)
			assert.Empty(t, stored, "a rejected batch must write nothing")
		})
	}
}

func TestAppendSale_StorageFailure(t *testing.T) {
	store := &failingStore{}
	w := ledger.NewWriter(store)

	events, err := w.AppendSale(context.Background(), time.Now(), "A1", []ledger.SaleItem{
		{ItemID: "I1", Cost: 1, TaxRate: rate("0.1")},
		{ItemID: "I2", Cost: 1, TaxRate: rate("0.1")},
	})
	require.Error(t, err)
	assert.Nil(t, events)
	assert.True(t, ledger.IsStorageError(err))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, store.appends, "a batch is a single store call")
}

func TestAppendTaxPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.writer.AppendTaxPayment(ctx, at(t, "2024-01-01T00:00:00Z"), 100)
	require.NoError(t, err)
	assert.Equal(t, ledger.EventTaxPayment, e.Type)
	assert.Equal(t, int64(100), e.Amount)
	assert.Equal(t, int64(1), e.Seq)
	assert.Empty(t, e.InvoiceID)
	assert.False(t, e.TaxRate.Valid)

	_, err = f.writer.AppendTaxPayment(ctx, at(t, "2024-01-01T00:00:00Z"), -1)
	require.Error(t, err)
	assert.True(t, ledger.IsValidationError(err))
	assert.Contains(t, err.Error(), "amount")

	_, err = f.writer.AppendTaxPayment(ctx, time.Time{}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date: is required")
}

func TestAppendAmendment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.writer.AppendAmendment(ctx, at(t, "2024-02-01T00:00:00Z"), "A1", "I1", 1200, rate("0.2"))
	require.NoError(t, err)
	assert.Equal(t, ledger.EventItemAmendment, e.Type)
	assert.Equal(t, "I1", e.ItemID)
	assert.Equal(t, int64(1200), e.Amount)
	assert.Equal(t, "0.2", e.TaxRate.Decimal.String())

	_, err = f.writer.AppendAmendment(ctx, at(t, "2024-02-01T00:00:00Z"), "", "I1", -1, rate("0.2"))
	var ve *ledger.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Violations, 2)
	assert.Equal(t, "invoiceId", ve.Violations[0].Field)
	assert.Equal(t, "cost", ve.Violations[1].Field)
}

func TestAppendAmendment_StorageFailure(t *testing.T) {
	w := ledger.NewWriter(&failingStore{})

	_, err := w.AppendAmendment(context.Background(), time.Now(), "A1", "I1", 1, rate("0.1"))
	require.Error(t, err)
	assert.True(t, ledger.IsStorageError(err))
	assert.Contains(t, err.Error(), "storage append")
}
