package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/taxledger/internal/ledger"
	"github.com/roach88/taxledger/internal/store/memory"
	"github.com/roach88/taxledger/internal/testutil"
)

var errBoom = errors.New("disk on fire")

// failingStore fails every call with errBoom and counts appends.
type failingStore struct {
	appends int
}

func (f *failingStore) Append(context.Context, []ledger.Event) error {
	f.appends++
	return errBoom
}

func (f *failingStore) Snapshot(context.Context, time.Time) (ledger.Snapshot, error) {
	return ledger.Snapshot{}, errBoom
}

func (f *failingStore) Events(context.Context, ledger.EventFilter) ([]ledger.Event, error) {
	return nil, errBoom
}

func (f *failingStore) Ping(context.Context) error { return errBoom }
func (f *failingStore) Close() error               { return nil }

// fixture wires a Writer and Resolver to one fresh memory store.
type fixture struct {
	store    *memory.Store
	writer   *ledger.Writer
	resolver *ledger.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewDeterministicClock(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond)
	return &fixture{
		store: s,
		writer: ledger.NewWriter(s,
			ledger.WithIDGenerator(testutil.NewSequenceIDs("evt")),
			ledger.WithClock(clock),
		),
		resolver: ledger.NewResolver(s),
	}
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
