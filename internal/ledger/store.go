package ledger

import (
	"context"
	"time"
)

// Store is the durable, append-only ledger the Writer and Resolver share.
//
// Implementations never update or delete rows. They must run each Append in
// a single transaction and serve each Snapshot from one consistent view, so a
// query never observes half of a concurrent sale batch.
type Store interface {
	// Append writes events atomically and sets each event's Seq.
	Append(ctx context.Context, events []Event) error

	// Snapshot returns the line events and payment total as of cutoff
	// (inclusive). Lines are ordered date DESC, seq DESC.
	Snapshot(ctx context.Context, cutoff time.Time) (Snapshot, error)

	// Events lists ledger rows ordered date ASC, seq ASC.
	Events(ctx context.Context, filter EventFilter) ([]Event, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store handle.
	Close() error
}

// Snapshot is the ledger as seen at a cutoff.
type Snapshot struct {
	// Lines holds SALE and ITEM_AMENDMENT events dated <= cutoff, newest first.
	Lines []Event

	// Paid is the sum of TAX_PAYMENT amounts dated <= cutoff.
	Paid int64
}

// EventFilter narrows an Events listing. Zero fields match everything.
type EventFilter struct {
	// Until keeps events dated at or before this time.
	Until time.Time

	// Type keeps only events of this type.
	Type EventType
}

// Match reports whether e passes the filter.
func (f EventFilter) Match(e Event) bool {
	if !f.Until.IsZero() && e.Date.After(f.Until) {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	return true
}
