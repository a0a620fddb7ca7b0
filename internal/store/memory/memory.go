// Package memory provides an in-process ledger.Store.
//
// Events live in a slice guarded by a RWMutex. Appends take the write lock
// for the whole batch, so readers never see part of one. Nothing survives the
// process; use it for tests and throwaway servers.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/roach88/taxledger/internal/ledger"
)

// compile-time interface check
var _ ledger.Store = (*Store)(nil)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store: closed")

// Store is an in-memory ledger.
type Store struct {
	mu     sync.RWMutex
	events []ledger.Event
	seq    int64
	closed bool
}

// New creates an empty store.
func New() *Store {
	return &Store{events: make([]ledger.Event, 0)}
}

// Append stores events and assigns their Seq.
func (s *Store) Append(_ context.Context, events []ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	for i := range events {
		s.seq++
		events[i].Seq = s.seq
		s.events = append(s.events, events[i])
	}
	return nil
}

// Snapshot returns the ledger as of cutoff. A payment total beyond int64
// fails with ledger.ErrOverflow.
func (s *Store) Snapshot(_ context.Context, cutoff time.Time) (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ledger.Snapshot{}, ErrClosed
	}

	snap := ledger.Snapshot{Lines: make([]ledger.Event, 0)}
	for _, e := range s.events {
		if e.Date.After(cutoff) {
			continue
		}
		switch {
		case e.Type.IsLine():
			snap.Lines = append(snap.Lines, e)
		case e.Type == ledger.EventTaxPayment:
			if e.Amount > 0 && snap.Paid > math.MaxInt64-e.Amount {
				return ledger.Snapshot{}, fmt.Errorf("memory store: sum payments: %w", ledger.ErrOverflow)
			}
			snap.Paid += e.Amount
		}
	}

	sort.SliceStable(snap.Lines, func(i, j int) bool {
		a, b := snap.Lines[i], snap.Lines[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.Seq > b.Seq
	})
	return snap, nil
}

// Events lists stored events oldest first.
func (s *Store) Events(_ context.Context, filter ledger.EventFilter) ([]ledger.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	result := make([]ledger.Event, 0)
	for _, e := range s.events {
		if filter.Match(e) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Seq < b.Seq
	})
	return result, nil
}

// Ping fails only after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed. Stored events are dropped.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.events = nil
	return nil
}
