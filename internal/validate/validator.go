package validate

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/taxledger/internal/ledger"
)

//go:embed schema.cue
var schemaCUE string

// Definition names in schema.cue.
const (
	defSale       = "#Sale"
	defTaxPayment = "#TaxPayment"
	defAmendment  = "#Amendment"
	defTaxQuery   = "#TaxQuery"
)

// Validator checks payloads against the embedded CUE schema.
//
// A cue.Context is not safe for concurrent use, so every check holds mu.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// ParseTransaction validates a POST /transactions body and returns the
// matching request. The eventType field selects the variant.
func (v *Validator) ParseTransaction(data []byte) (Transaction, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil || envelope == nil {
		return nil, ledger.NewValidationError("", "body must be a JSON object")
	}
	rawType, ok := envelope["eventType"]
	if !ok {
		return nil, ledger.NewValidationError("eventType", "is required")
	}
	var eventType string
	if err := json.Unmarshal(rawType, &eventType); err != nil {
		return nil, ledger.NewValidationError("eventType", "must be a string, got %s", rawType)
	}

	switch ledger.EventType(eventType) {
	case ledger.EventSale, "SALES":
		err := v.check(defSale, data)
		if emptyItems(envelope["items"]) {
			err = addViolation(err, ledger.Violation{Field: "items", Message: "at least one item is required"})
		}
		if err != nil {
			return nil, err
		}
		var body saleBody
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeError(err)
		}
		date, err := parseTime(body.Date)
		if err != nil {
			return nil, err
		}
		items := make([]ledger.SaleItem, len(body.Items))
		for i, item := range body.Items {
			items[i] = ledger.SaleItem{ItemID: item.ItemID, Cost: item.Cost, TaxRate: item.TaxRate}
		}
		return &SaleRequest{Date: date, InvoiceID: body.InvoiceID, Items: items}, nil

	case ledger.EventTaxPayment:
		if err := v.check(defTaxPayment, data); err != nil {
			return nil, err
		}
		var body taxPaymentBody
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, decodeError(err)
		}
		date, err := parseTime(body.Date)
		if err != nil {
			return nil, err
		}
		return &TaxPaymentRequest{Date: date, Amount: body.Amount}, nil

	default:
		return nil, ledger.NewValidationError("eventType",
			"must be %q or %q, got %q", ledger.EventSale, ledger.EventTaxPayment, eventType)
	}
}

// ParseAmendment validates a PATCH /sale body.
func (v *Validator) ParseAmendment(data []byte) (AmendmentRequest, error) {
	if err := v.check(defAmendment, data); err != nil {
		return AmendmentRequest{}, err
	}
	var body amendmentBody
	if err := json.Unmarshal(data, &body); err != nil {
		return AmendmentRequest{}, decodeError(err)
	}
	date, err := parseTime(body.Date)
	if err != nil {
		return AmendmentRequest{}, err
	}
	return AmendmentRequest{
		Date:      date,
		InvoiceID: body.InvoiceID,
		ItemID:    body.ItemID,
		Cost:      body.Cost,
		TaxRate:   body.TaxRate,
	}, nil
}

// ParseDate validates a date given outside a JSON body, such as the
// tax-position query parameter or a CLI flag.
//
// Form decoding turns a literal "+" into a space, so a space where the
// offset sign belongs is read back as "+".
func (v *Validator) ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ledger.NewValidationError("date", "is required")
	}
	raw = RestorePlus(raw)

	data, err := json.Marshal(map[string]string{"date": raw})
	if err != nil {
		return time.Time{}, fmt.Errorf("encode date: %w", err)
	}
	if err := v.check(defTaxQuery, data); err != nil {
		return time.Time{}, err
	}
	return parseTime(raw)
}

// check unifies data with the named definition and validates it concretely.
func (v *Validator) check(def string, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	expr, err := cuejson.Extract("body", data)
	if err != nil {
		return ledger.NewValidationError("", "body must be valid JSON")
	}
	value := v.ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return ledger.NewValidationError("", "body must be valid JSON")
	}

	unified := v.schema.LookupPath(cue.ParsePath(def)).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

// toValidationError flattens CUE errors into violations, one per distinct
// field and message, ordered by field.
func toValidationError(err error) error {
	seen := make(map[ledger.Violation]bool)
	var out []ledger.Violation
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		v := ledger.Violation{
			Field:   fieldPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		out = append(out, ledger.Violation{Message: err.Error()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return &ledger.ValidationError{Violations: out}
}

// emptyItems reports whether a sale's items are missing or an empty list.
// Other shapes are left to the schema.
func emptyItems(raw json.RawMessage) bool {
	if raw == nil {
		return true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return false
	}
	return items != nil && len(items) == 0
}

// addViolation merges v into err, which is nil or a ValidationError.
func addViolation(err error, v ledger.Violation) error {
	var ve *ledger.ValidationError
	if err != nil && !errors.As(err, &ve) {
		return err
	}
	var out []ledger.Violation
	if ve != nil {
		out = append(out, ve.Violations...)
	}
	out = append(out, v)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return &ledger.ValidationError{Violations: out}
}

// fieldPath renders a CUE path as items[1].cost, dropping definition labels.
func fieldPath(path []string) string {
	var b strings.Builder
	for _, label := range path {
		if strings.HasPrefix(label, "#") {
			continue
		}
		if _, err := strconv.Atoi(label); err == nil {
			b.WriteString("[" + label + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(label)
	}
	return b.String()
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, ledger.NewValidationError("date", "must be an RFC 3339 timestamp with offset, got %q", raw)
	}
	return t, nil
}

// decodeError reports a body that passed the schema but does not fit the Go
// types, e.g. a cost beyond int64.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return ledger.NewValidationError(typeErr.Field, "out of range")
	}
	return ledger.NewValidationError("", "body could not be decoded: %v", err)
}

// RestorePlus turns "2024-02-22T17:29:39 02:00" back into "...+02:00".
func RestorePlus(raw string) string {
	i := strings.LastIndexByte(raw, ' ')
	if i < 0 || i < len("2006-01-02T15:04:05") {
		return raw
	}
	return raw[:i] + "+" + raw[i+1:]
}
