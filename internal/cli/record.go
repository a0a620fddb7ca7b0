package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/taxledger/internal/ledger"
)

// RecordResult lists the events appended by sale, payment or amend.
type RecordResult struct {
	Events []EventView `json:"events"`
}

func (r RecordResult) String() string {
	lines := make([]string, 0, len(r.Events)+1)
	lines = append(lines, fmt.Sprintf("Recorded %d event(s)", len(r.Events)))
	for _, e := range r.Events {
		lines = append(lines, "  "+e.String())
	}
	return strings.Join(lines, "\n")
}

// SaleOptions holds flags for the sale command.
type SaleOptions struct {
	*RootOptions
	Date    string
	Invoice string
	Items   []string // "itemId:cost:taxRate"
}

// NewSaleCommand creates the sale command.
func NewSaleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Record a sale",
		Long: `Record a sale of one or more items on an invoice.

Each --item is "itemId:cost:taxRate", cost in minor currency units and
taxRate a decimal fraction. All items are appended in one batch: if any
item is invalid, nothing is recorded.

Example:
  taxledger sale --date 2024-01-01T00:00:00Z --invoice A1 --item I1:1000:0.2
  taxledger sale --date 2024-03-01T10:00:00+01:00 --invoice INV-9 \
    --item SKU-1:333:0.15 --item SKU-2:667:0.15`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSale(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "sale date, RFC 3339 with offset (required)")
	cmd.Flags().StringVar(&opts.Invoice, "invoice", "", "invoice id (required)")
	cmd.Flags().StringArrayVar(&opts.Items, "item", nil, "item as itemId:cost:taxRate (repeatable, at least one)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("invoice")
	_ = cmd.MarkFlagRequired("item")

	return cmd
}

func runSale(opts *SaleOptions, cmd *cobra.Command) error {
	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	date, err := sess.validator.ParseDate(opts.Date)
	if err != nil {
		return sess.out.Fail(ledgerExitError("invalid sale", err))
	}
	items, err := parseItems(opts.Items)
	if err != nil {
		return sess.out.Fail(ledgerExitError("invalid sale", err))
	}

	events, err := sess.writer().AppendSale(commandContext(cmd), date, opts.Invoice, items)
	if err != nil {
		return sess.out.Fail(ledgerExitError("failed to record sale", err))
	}
	return sess.out.Success(newRecordResult(events...))
}

// parseItems parses every --item, reporting all malformed ones at once.
func parseItems(specs []string) ([]ledger.SaleItem, error) {
	items := make([]ledger.SaleItem, 0, len(specs))
	var ve ledger.ValidationError
	for i, s := range specs {
		item, err := parseItem(s)
		if err != nil {
			ve.Violations = append(ve.Violations, ledger.Violation{
				Field:   fmt.Sprintf("items[%d]", i),
				Message: err.Error(),
			})
			continue
		}
		items = append(items, item)
	}
	if len(ve.Violations) > 0 {
		return nil, &ve
	}
	return items, nil
}

// parseItem splits "itemId:cost:taxRate" from the right, so item ids may
// themselves contain colons.
func parseItem(s string) (ledger.SaleItem, error) {
	rateAt := strings.LastIndexByte(s, ':')
	if rateAt < 0 {
		return ledger.SaleItem{}, fmt.Errorf("must be itemId:cost:taxRate, got %q", s)
	}
	costAt := strings.LastIndexByte(s[:rateAt], ':')
	if costAt < 0 {
		return ledger.SaleItem{}, fmt.Errorf("must be itemId:cost:taxRate, got %q", s)
	}

	cost, err := strconv.ParseInt(s[costAt+1:rateAt], 10, 64)
	if err != nil {
		return ledger.SaleItem{}, fmt.Errorf("cost must be an integer, got %q", s[costAt+1:rateAt])
	}
	rate, err := decimal.NewFromString(s[rateAt+1:])
	if err != nil {
		return ledger.SaleItem{}, fmt.Errorf("taxRate must be a decimal, got %q", s[rateAt+1:])
	}
	return ledger.SaleItem{ItemID: s[:costAt], Cost: cost, TaxRate: rate}, nil
}

// PaymentOptions holds flags for the payment command.
type PaymentOptions struct {
	*RootOptions
	Date   string
	Amount int64
}

// NewPaymentCommand creates the payment command.
func NewPaymentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PaymentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record a tax payment",
		Long: `Record a tax payment to the tax authority.

Example:
  taxledger payment --date 2024-01-20T00:00:00Z --amount 100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPayment(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "payment date, RFC 3339 with offset (required)")
	cmd.Flags().Int64Var(&opts.Amount, "amount", 0, "amount paid in minor currency units (required)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runPayment(opts *PaymentOptions, cmd *cobra.Command) error {
	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	date, err := sess.validator.ParseDate(opts.Date)
	if err != nil {
		return sess.out.Fail(ledgerExitError("invalid payment", err))
	}

	event, err := sess.writer().AppendTaxPayment(commandContext(cmd), date, opts.Amount)
	if err != nil {
		return sess.out.Fail(ledgerExitError("failed to record payment", err))
	}
	return sess.out.Success(newRecordResult(event))
}

// AmendOptions holds flags for the amend command.
type AmendOptions struct {
	*RootOptions
	Date    string
	Invoice string
	Item    string
	Cost    int64
	Rate    string
}

// NewAmendCommand creates the amend command.
func NewAmendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AmendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "amend",
		Short: "Amend one item of a sale",
		Long: `Replace the cost and tax rate of one invoice line from --date on.

Positions at earlier dates are unaffected. The invoice and item are matched
case-insensitively; the sale need not have been recorded.

Example:
  taxledger amend --date 2024-02-01T00:00:00Z --invoice A1 --item I1 --cost 1200 --rate 0.2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAmend(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "amendment date, RFC 3339 with offset (required)")
	cmd.Flags().StringVar(&opts.Invoice, "invoice", "", "invoice id (required)")
	cmd.Flags().StringVar(&opts.Item, "item", "", "item id (required)")
	cmd.Flags().Int64Var(&opts.Cost, "cost", 0, "new cost in minor currency units (required)")
	cmd.Flags().StringVar(&opts.Rate, "rate", "", "new tax rate as a decimal fraction (required)")
	for _, name := range []string{"date", "invoice", "item", "cost", "rate"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runAmend(opts *AmendOptions, cmd *cobra.Command) error {
	sess, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	date, err := sess.validator.ParseDate(opts.Date)
	if err != nil {
		return sess.out.Fail(ledgerExitError("invalid amendment", err))
	}
	rate, err := decimal.NewFromString(opts.Rate)
	if err != nil {
		ve := ledger.NewValidationError("taxRate", "must be a decimal, got %q", opts.Rate)
		return sess.out.Fail(ledgerExitError("invalid amendment", ve))
	}

	event, err := sess.writer().AppendAmendment(commandContext(cmd), date, opts.Invoice, opts.Item, opts.Cost, rate)
	if err != nil {
		return sess.out.Fail(ledgerExitError("failed to record amendment", err))
	}
	return sess.out.Success(newRecordResult(event))
}

func newRecordResult(events ...ledger.Event) RecordResult {
	views := make([]EventView, len(events))
	for i, e := range events {
		views[i] = newEventView(e)
	}
	return RecordResult{Events: views}
}
