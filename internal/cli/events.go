package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/taxledger/internal/ledger"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Until string
	Type  string
}

// EventView is one ledger row as printed by the CLI.
type EventView struct {
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	Date       string `json:"date"`
	InvoiceID  string `json:"invoiceId,omitempty"`
	ItemID     string `json:"itemId,omitempty"`
	Amount     int64  `json:"amount"`
	TaxRate    string `json:"taxRate,omitempty"`
	RecordedAt string `json:"recordedAt"`
}

func (v EventView) String() string {
	switch ledger.EventType(v.Type) {
	case ledger.EventTaxPayment:
		return fmt.Sprintf("#%d %s %s amount=%d", v.Seq, v.Date, v.Type, v.Amount)
	default:
		return fmt.Sprintf("#%d %s %s %s/%s cost=%d rate=%s",
			v.Seq, v.Date, v.Type, v.InvoiceID, v.ItemID, v.Amount, v.TaxRate)
	}
}

func newEventView(e ledger.Event) EventView {
	v := EventView{
		Seq:        e.Seq,
		ID:         e.ID,
		Type:       string(e.Type),
		Date:       e.Date.UTC().Format(time.RFC3339Nano),
		InvoiceID:  e.InvoiceID,
		ItemID:     e.ItemID,
		Amount:     e.Amount,
		RecordedAt: e.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.TaxRate.Valid {
		v.TaxRate = e.TaxRate.Decimal.String()
	}
	return v
}

// EventsResult is the events command's output.
type EventsResult struct {
	Events []EventView `json:"events"`
	Total  int         `json:"total"`
}

func (r EventsResult) String() string {
	if r.Total == 0 {
		return "No events."
	}
	lines := make([]string, 0, r.Total+1)
	for _, e := range r.Events {
		lines = append(lines, e.String())
	}
	lines = append(lines, fmt.Sprintf("%d event(s)", r.Total))
	return strings.Join(lines, "\n")
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List ledger events",
		Long: `List the raw ledger, oldest first, for auditing.

Events are ordered by date, then by the order they were recorded.

Examples:
  taxledger events --db ./taxledger.db
  taxledger events --until 2024-01-31T23:59:59Z --type ITEM_AMENDMENT
  taxledger events --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Until, "until", "", "only events dated at or before this RFC 3339 date")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only events of this type (SALE|TAX_PAYMENT|ITEM_AMENDMENT)")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	var filter ledger.EventFilter
	if opts.Until != "" {
		until, err := sess.validator.ParseDate(opts.Until)
		if err != nil {
			return sess.out.Fail(ledgerExitError("invalid filter", err))
		}
		filter.Until = until
	}
	if opts.Type != "" {
		filter.Type = ledger.EventType(strings.ToUpper(opts.Type))
		if !filter.Type.Valid() {
			ve := ledger.NewValidationError("type", "must be one of %s, %s, %s, got %q",
				ledger.EventSale, ledger.EventTaxPayment, ledger.EventItemAmendment, opts.Type)
			return sess.out.Fail(ledgerExitError("invalid filter", ve))
		}
	}

	events, err := sess.store.Events(commandContext(cmd), filter)
	if err != nil {
		return sess.out.Fail(WrapExitError(ExitCommandError, "failed to list events", err))
	}

	result := EventsResult{Events: make([]EventView, len(events)), Total: len(events)}
	for i, e := range events {
		result.Events[i] = newEventView(e)
	}
	return sess.out.Success(result)
}
