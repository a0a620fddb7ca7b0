package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType discriminates ledger rows.
type EventType string

const (
	// EventSale is one line of a sale: cost and tax rate for an (invoice, item) pair.
	EventSale EventType = "SALE"

	// EventTaxPayment is a payment of tax to the authority.
	EventTaxPayment EventType = "TAX_PAYMENT"

	// EventItemAmendment replaces the cost and rate of a previously sold line
	// from its own date onwards.
	EventItemAmendment EventType = "ITEM_AMENDMENT"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventSale, EventTaxPayment, EventItemAmendment:
		return true
	}
	return false
}

// IsLine reports whether events of this type describe a sale line.
func (t EventType) IsLine() bool {
	return t == EventSale || t == EventItemAmendment
}

// Event is one immutable ledger row.
//
// InvoiceID, ItemID and TaxRate are only set for line events (SALE and
// ITEM_AMENDMENT). Amount is the line cost for line events and the amount
// paid for TAX_PAYMENT, in minor currency units.
type Event struct {
	// Seq is the store-assigned insertion sequence. Zero until appended.
	Seq int64

	ID         string
	Type       EventType
	Date       time.Time
	InvoiceID  string
	ItemID     string
	Amount     int64
	TaxRate    decimal.NullDecimal
	RecordedAt time.Time
}

// Key returns the line identity of a line event.
func (e Event) Key() LineKey {
	return NewLineKey(e.InvoiceID, e.ItemID)
}

// TaxOwed returns the unrounded tax owed for a line event.
// Payments and line events without a rate owe nothing.
func (e Event) TaxOwed() decimal.Decimal {
	if !e.Type.IsLine() || !e.TaxRate.Valid {
		return decimal.Zero
	}
	return decimal.NewFromInt(e.Amount).Mul(e.TaxRate.Decimal)
}

// SaleItem is one line of a sale batch.
type SaleItem struct {
	ItemID  string
	Cost    int64
	TaxRate decimal.Decimal
}

// Position is the result of a tax position query.
type Position struct {
	// Date is the cutoff the position was computed at.
	Date time.Time

	// Owed is the tax owed on all lines in force at Date, rounded once.
	Owed int64

	// Paid is the sum of tax payments dated at or before Date.
	Paid int64

	// TaxPosition is Owed - Paid. Negative means overpaid.
	TaxPosition int64

	// Lines is the number of distinct lines that contributed to Owed.
	Lines int
}
