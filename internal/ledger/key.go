package ledger

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// LineKey identifies a sale line. Both parts are case-folded so "A1"/"i1" and
// "a1"/"I1" name the same line.
type LineKey struct {
	Invoice string
	Item    string
}

// NewLineKey folds invoice and item identifiers into a LineKey.
func NewLineKey(invoiceID, itemID string) LineKey {
	return LineKey{
		Invoice: foldID(invoiceID),
		Item:    foldID(itemID),
	}
}

// foldID normalizes to NFC before full case folding, so precomposed and
// decomposed spellings of the same identifier compare equal.
// A Caser is stateful and must not be shared, hence one per call.
func foldID(id string) string {
	return cases.Fold().String(norm.NFC.String(id))
}
