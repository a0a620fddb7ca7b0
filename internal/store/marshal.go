package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/taxledger/internal/ledger"
)

// dateLayout is fixed width once the time is in UTC, so stored dates sort
// lexically in chronological order.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatDate converts t to its stored representation.
func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// parseDate reads a stored date back.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return t, nil
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// eventColumns is the column list every event query selects, in scanEvent order.
const eventColumns = `seq, id, event_type, date, invoice_id, item_id, amount, tax_rate, recorded_at`

// scanEvent reads one ledger_events row.
func scanEvent(row rowScanner) (ledger.Event, error) {
	var (
		e          ledger.Event
		eventType  string
		date       string
		invoiceID  sql.NullString
		itemID     sql.NullString
		recordedAt string
	)
	if err := row.Scan(&e.Seq, &e.ID, &eventType, &date, &invoiceID, &itemID, &e.Amount, &e.TaxRate, &recordedAt); err != nil {
		return ledger.Event{}, fmt.Errorf("scan event: %w", err)
	}

	e.Type = ledger.EventType(eventType)
	e.InvoiceID = invoiceID.String
	e.ItemID = itemID.String

	var err error
	if e.Date, err = parseDate(date); err != nil {
		return ledger.Event{}, err
	}
	if e.RecordedAt, err = parseDate(recordedAt); err != nil {
		return ledger.Event{}, err
	}
	return e, nil
}
