package validate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/taxledger/internal/ledger"
)

// Transaction is a validated POST /transactions body: a *SaleRequest or a
// *TaxPaymentRequest.
type Transaction interface {
	// EventType is the normalized event type the transaction records.
	EventType() ledger.EventType

	transaction()
}

// SaleRequest records one SALE event per item.
type SaleRequest struct {
	Date      time.Time
	InvoiceID string
	Items     []ledger.SaleItem
}

// EventType returns ledger.EventSale, also for the legacy "SALES" spelling.
func (*SaleRequest) EventType() ledger.EventType { return ledger.EventSale }
func (*SaleRequest) transaction()                {}

// TaxPaymentRequest records one TAX_PAYMENT event.
type TaxPaymentRequest struct {
	Date   time.Time
	Amount int64
}

// EventType returns ledger.EventTaxPayment.
func (*TaxPaymentRequest) EventType() ledger.EventType { return ledger.EventTaxPayment }
func (*TaxPaymentRequest) transaction()                {}

// AmendmentRequest is a validated PATCH /sale body.
type AmendmentRequest struct {
	Date      time.Time
	InvoiceID string
	ItemID    string
	Cost      int64
	TaxRate   decimal.Decimal
}

// Apply records tx through w.
func Apply(ctx context.Context, w *ledger.Writer, tx Transaction) error {
	switch req := tx.(type) {
	case *SaleRequest:
		_, err := w.AppendSale(ctx, req.Date, req.InvoiceID, req.Items)
		return err
	case *TaxPaymentRequest:
		_, err := w.AppendTaxPayment(ctx, req.Date, req.Amount)
		return err
	default:
		return fmt.Errorf("unsupported transaction %T", tx)
	}
}

// ApplyAmendment records req through w.
func ApplyAmendment(ctx context.Context, w *ledger.Writer, req AmendmentRequest) error {
	_, err := w.AppendAmendment(ctx, req.Date, req.InvoiceID, req.ItemID, req.Cost, req.TaxRate)
	return err
}

// wire shapes, decoded only after the CUE check passed

type saleItemBody struct {
	ItemID  string          `json:"itemId"`
	Cost    int64           `json:"cost"`
	TaxRate decimal.Decimal `json:"taxRate"`
}

type saleBody struct {
	Date      string         `json:"date"`
	InvoiceID string         `json:"invoiceId"`
	Items     []saleItemBody `json:"items"`
}

type taxPaymentBody struct {
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
}

type amendmentBody struct {
	Date      string          `json:"date"`
	InvoiceID string          `json:"invoiceId"`
	ItemID    string          `json:"itemId"`
	Cost      int64           `json:"cost"`
	TaxRate   decimal.Decimal `json:"taxRate"`
}
