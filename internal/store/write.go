package store

import (
	"context"
	"fmt"

	"github.com/roach88/taxledger/internal/ledger"
)

const insertEventSQL = `
	INSERT INTO ledger_events
	(id, event_type, date, invoice_id, item_id, amount, tax_rate, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Append inserts events in a single transaction and sets each event's Seq.
//
// If any insert fails the transaction is rolled back and no row of the batch
// is visible; Seq values are only assigned after a successful commit.
func (s *Store) Append(ctx context.Context, events []ledger.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return fmt.Errorf("append: prepare: %w", err)
	}
	defer stmt.Close()

	seqs := make([]int64, len(events))
	for i, e := range events {
		result, err := stmt.ExecContext(ctx,
			e.ID,
			string(e.Type),
			formatDate(e.Date),
			nullString(e.InvoiceID),
			nullString(e.ItemID),
			e.Amount,
			e.TaxRate,
			formatDate(e.RecordedAt),
		)
		if err != nil {
			return fmt.Errorf("append: insert event %d: %w", i, err)
		}
		seq, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("append: event %d: last insert id: %w", i, err)
		}
		seqs[i] = seq
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}

	for i := range events {
		events[i].Seq = seqs[i]
	}
	return nil
}
