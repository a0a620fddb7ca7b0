package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/taxledger/internal/ledger"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

// createTestSale creates a SALE event with minimal required fields.
func createTestSale(id string, date time.Time, invoiceID, itemID string, cost int64, rate string) ledger.Event {
	return ledger.Event{
		ID:         id,
		Type:       ledger.EventSale,
		Date:       date,
		InvoiceID:  invoiceID,
		ItemID:     itemID,
		Amount:     cost,
		TaxRate:    decimal.NewNullDecimal(decimal.RequireFromString(rate)),
		RecordedAt: date,
	}
}

// createTestAmendment creates an ITEM_AMENDMENT event.
func createTestAmendment(id string, date time.Time, invoiceID, itemID string, cost int64, rate string) ledger.Event {
	e := createTestSale(id, date, invoiceID, itemID, cost, rate)
	e.Type = ledger.EventItemAmendment
	return e
}

// createTestPayment creates a TAX_PAYMENT event.
func createTestPayment(id string, date time.Time, amount int64) ledger.Event {
	return ledger.Event{
		ID:         id,
		Type:       ledger.EventTaxPayment,
		Date:       date,
		Amount:     amount,
		RecordedAt: date,
	}
}
