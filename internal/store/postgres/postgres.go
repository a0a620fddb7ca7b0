// Package postgres implements ledger.Store on PostgreSQL via lib/pq.
//
// Dates are TIMESTAMPTZ, so the database compares instants directly and
// microsecond precision applies. Tax rates are NUMERIC.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/roach88/taxledger/internal/ledger"
)

//go:embed schema.sql
var schemaSQL string

var _ ledger.Store = (*Store)(nil)

// Store is the PostgreSQL ledger.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := New(db)
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool. Call Init before use on a fresh
// database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the table, index and append-only trigger if absent.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const insertEventSQL = `
	INSERT INTO ledger_events
	(id, event_type, date, invoice_id, item_id, amount, tax_rate, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING seq
`

// Append inserts events in one transaction and sets each event's Seq.
func (s *Store) Append(ctx context.Context, events []ledger.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback()

	seqs := make([]int64, len(events))
	for i, e := range events {
		err := tx.QueryRowContext(ctx, insertEventSQL,
			e.ID,
			string(e.Type),
			e.Date.UTC(),
			nullString(e.InvoiceID),
			nullString(e.ItemID),
			e.Amount,
			e.TaxRate,
			e.RecordedAt.UTC(),
		).Scan(&seqs[i])
		if err != nil {
			return fmt.Errorf("append: insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}
	for i := range events {
		events[i].Seq = seqs[i]
	}
	return nil
}

const eventColumns = `seq, id, event_type, date, invoice_id, item_id, amount, tax_rate, recorded_at`

// Snapshot reads lines and the payment total in one REPEATABLE READ
// read-only transaction.
func (s *Store) Snapshot(ctx context.Context, cutoff time.Time) (ledger.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM ledger_events
		WHERE event_type IN ('SALE', 'ITEM_AMENDMENT')
		  AND date <= $1
		ORDER BY date DESC, seq DESC
	`, cutoff.UTC())
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
		  AND date <= $1
	`, cutoff.UTC()).Scan(&paid)
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
		args = append(args, filter.Until.UTC())
		where = append(where, fmt.Sprintf("date <= $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("event_type = $%d", len(args)))
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

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func collectEvents(rows *sql.Rows) ([]ledger.Event, error) {
	defer rows.Close()

	events := []ledger.Event{}
	for rows.Next() {
		var (
			e         ledger.Event
			eventType string
			invoiceID sql.NullString
			itemID    sql.NullString
		)
		err := rows.Scan(&e.Seq, &e.ID, &eventType, &e.Date, &invoiceID, &itemID, &e.Amount, &e.TaxRate, &e.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = ledger.EventType(eventType)
		e.InvoiceID = invoiceID.String
		e.ItemID = itemID.String
		e.Date = e.Date.UTC()
		e.RecordedAt = e.RecordedAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
