package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Writer appends events to the ledger. It never reads, updates or deletes.
//
// Every operation validates all of its input before writing anything, then
// hands the resulting events to a single Store.Append call.
type Writer struct {
	store  Store
	ids    IDGenerator
	clock  Clock
	logger *slog.Logger
}

// NewWriter creates a Writer over store.
func NewWriter(store Store, opts ...Option) *Writer {
	o := buildOptions(opts)
	return &Writer{
		store:  store,
		ids:    o.ids,
		clock:  o.clock,
		logger: o.logger,
	}
}

// AppendSale records one SALE event per item. The batch is all-or-nothing:
// an invalid item rejects the whole call and a storage failure leaves no rows.
func (w *Writer) AppendSale(ctx context.Context, date time.Time, invoiceID string, items []SaleItem) ([]Event, error) {
	var v violations
	checkDate(&v, date)
	checkID(&v, "invoiceId", invoiceID)
	if len(items) == 0 {
		v.add("items", "at least one item is required")
	}
	for i, item := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		checkID(&v, prefix+".itemId", item.ItemID)
		checkLine(&v, prefix, item.Cost, item.TaxRate)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	recordedAt := w.clock.Now()
	events := make([]Event, len(items))
	for i, item := range items {
		events[i] = Event{
			ID:         w.ids.Generate(),
			Type:       EventSale,
			Date:       date,
			InvoiceID:  invoiceID,
			ItemID:     item.ItemID,
			Amount:     item.Cost,
			TaxRate:    decimal.NewNullDecimal(item.TaxRate),
			RecordedAt: recordedAt,
		}
	}

	if err := w.store.Append(ctx, events); err != nil {
		return nil, storageError("append", err)
	}

	for _, e := range events {
		w.logger.Info("sale recorded",
			"invoice_id", e.InvoiceID,
			"item_id", e.ItemID,
			"date", e.Date,
			"cost", e.Amount,
			"tax_rate", e.TaxRate.Decimal.String(),
			"seq", e.Seq,
		)
	}
	return events, nil
}

// AppendTaxPayment records one TAX_PAYMENT event.
func (w *Writer) AppendTaxPayment(ctx context.Context, date time.Time, amount int64) (Event, error) {
	var v violations
	checkDate(&v, date)
	if amount < 0 {
		v.add("amount", "must be a non-negative integer, got %d", amount)
	}
	if err := v.err(); err != nil {
		return Event{}, err
	}

	event := Event{
		ID:         w.ids.Generate(),
		Type:       EventTaxPayment,
		Date:       date,
		Amount:     amount,
		RecordedAt: w.clock.Now(),
	}
	if err := w.appendOne(ctx, &event); err != nil {
		return Event{}, err
	}

	w.logger.Info("tax payment recorded", "date", event.Date, "amount", event.Amount, "seq", event.Seq)
	return event, nil
}

// AppendAmendment records one ITEM_AMENDMENT event. The amendment governs the
// line for every query with a cutoff at or after date; earlier queries still
// see whatever was in force before it.
func (w *Writer) AppendAmendment(ctx context.Context, date time.Time, invoiceID, itemID string, cost int64, taxRate decimal.Decimal) (Event, error) {
	var v violations
	checkDate(&v, date)
	checkID(&v, "invoiceId", invoiceID)
	checkID(&v, "itemId", itemID)
	checkLine(&v, "", cost, taxRate)
	if err := v.err(); err != nil {
		return Event{}, err
	}

	event := Event{
		ID:         w.ids.Generate(),
		Type:       EventItemAmendment,
		Date:       date,
		InvoiceID:  invoiceID,
		ItemID:     itemID,
		Amount:     cost,
		TaxRate:    decimal.NewNullDecimal(taxRate),
		RecordedAt: w.clock.Now(),
	}
	if err := w.appendOne(ctx, &event); err != nil {
		return Event{}, err
	}

	w.logger.Info("sale amended",
		"invoice_id", event.InvoiceID,
		"item_id", event.ItemID,
		"date", event.Date,
		"cost", event.Amount,
		"tax_rate", event.TaxRate.Decimal.String(),
		"seq", event.Seq,
	)
	return event, nil
}

func (w *Writer) appendOne(ctx context.Context, event *Event) error {
	batch := []Event{*event}
	if err := w.store.Append(ctx, batch); err != nil {
		return storageError("append", err)
	}
	*event = batch[0]
	return nil
}

func checkDate(v *violations, date time.Time) {
	if date.IsZero() {
		v.add("date", "is required")
	}
}

func checkID(v *violations, field, id string) {
	if strings.TrimSpace(id) == "" {
		v.add(field, "must be a non-empty string")
	}
}

// checkLine validates cost and rate; prefix is the enclosing field path.
func checkLine(v *violations, prefix string, cost int64, rate decimal.Decimal) {
	field := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}
	if cost < 0 {
		v.add(field("cost"), "must be a non-negative integer, got %d", cost)
	}
	if rate.IsNegative() {
		v.add(field("taxRate"), "must be non-negative, got %s", rate.String())
	}
}
