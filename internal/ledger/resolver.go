package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Resolver computes tax positions by re-reading the ledger on every call.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver creates a Resolver over store.
func NewResolver(store Store, opts ...Option) *Resolver {
	o := buildOptions(opts)
	return &Resolver{store: store, logger: o.logger}
}

// Position returns the tax position as of cutoff. Events dated exactly at the
// cutoff are included. A storage failure fails the whole query; no partial
// position is ever returned.
func (r *Resolver) Position(ctx context.Context, cutoff time.Time) (Position, error) {
	if cutoff.IsZero() {
		return Position{}, NewValidationError("date", "is required")
	}

	snap, err := r.store.Snapshot(ctx, cutoff)
	if err != nil {
		return Position{}, storageError("snapshot", err)
	}

	owed, lines, err := OwedTax(snap.Lines)
	if err != nil {
		return Position{}, err
	}
	taxPosition, err := toMinorUnits(decimal.NewFromInt(owed).Sub(decimal.NewFromInt(snap.Paid)))
	if err != nil {
		return Position{}, fmt.Errorf("tax position: %w", err)
	}
	pos := Position{
		Date:        cutoff,
		Owed:        owed,
		Paid:        snap.Paid,
		TaxPosition: taxPosition,
		Lines:       lines,
	}

	r.logger.Debug("tax position resolved",
		"date", cutoff,
		"owed", pos.Owed,
		"paid", pos.Paid,
		"position", pos.TaxPosition,
		"lines", pos.Lines,
	)
	return pos, nil
}

// OwedTax sums the tax owed on lines, which must be ordered newest first.
// The first event seen for each line wins; the exact total is rounded once,
// half away from zero. It also returns the number of distinct lines.
// A total outside the int64 range fails with ErrOverflow.
func OwedTax(lines []Event) (int64, int, error) {
	seen := make(map[LineKey]struct{}, len(lines))
	total := decimal.Zero
	for _, e := range lines {
		if !e.Type.IsLine() {
			continue
		}
		key := e.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		total = total.Add(e.TaxOwed())
	}
	owed, err := toMinorUnits(total.Round(0))
	if err != nil {
		return 0, 0, fmt.Errorf("owed tax: %w", err)
	}
	return owed, len(seen), nil
}

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// toMinorUnits converts an integral amount to int64, refusing to wrap.
func toMinorUnits(d decimal.Decimal) (int64, error) {
	if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return 0, ErrOverflow
	}
	return d.IntPart(), nil
}
