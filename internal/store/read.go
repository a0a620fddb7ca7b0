package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/taxledger/internal/ledger"
)

// Snapshot returns the line events and payment total as of cutoff.
//
// Both reads run in one read-only transaction. Lines are ordered
// date DESC, seq DESC: for each (invoice, item) the first row is the one in
// force at the cutoff.
func (s *Store) Snapshot(ctx context.Context, cutoff time.Time) (ledger.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback()

	until := formatDate(cutoff)

	rows, err := tx.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM ledger_events
		WHERE event_type IN ('SALE', 'ITEM_AMENDMENT')
		  AND date <= ?
		ORDER BY date DESC, seq DESC
	`, until)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("snapshot: query lines: %w", err)
	}
	lines, err := collectEvents(rows)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	var paid int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_events
		WHERE event_type = 'TAX_PAYMENT'
		  AND date <= ?
	`, until).Scan(&paid)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("snapshot: sum payments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("snapshot: commit: %w", err)
	}

	return ledger.Snapshot{Lines: lines, Paid: paid}, nil
}

// Events lists ledger rows ordered date ASC, seq ASC.
func (s *Store) Events(ctx context.Context, filter ledger.EventFilter) ([]ledger.Event, error) {
	var (
		where []string
		args  []any
	)
	if !filter.Until.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, formatDate(filter.Until))
	}
	if filter.Type != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(filter.Type))
	}

	query := "SELECT " + eventColumns + " FROM ledger_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return collectEvents(rows)
}

// collectEvents scans and closes rows. Returns an empty slice, never nil.
func collectEvents(rows *sql.Rows) ([]ledger.Event, error) {
	defer rows.Close()

	events := []ledger.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
