// Package store provides SQLite-backed durable storage for the tax ledger.
//
// The store is a single append-only table, ledger_events. Rows are inserted
// and read; the schema installs triggers that abort any UPDATE or DELETE.
//
// # Ordering
//
//   - seq INTEGER is assigned on insert and strictly increases. It breaks
//     ties between events with the same date: later insert wins.
//   - date is stored as fixed-width UTC RFC 3339 text
//     (2006-01-02T15:04:05.000000000Z), so string comparison in SQL is
//     chronological comparison regardless of the offset the caller used.
//
// # Atomicity
//
//   - Append runs every batch in one transaction: all rows or none.
//   - Snapshot reads lines and the payment total in one transaction, so a
//     query never sees half of a concurrent batch.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - single connection: SQLite has one writer, and ":memory:" databases
//     are per-connection
package store
