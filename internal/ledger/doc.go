// Package ledger records sales, tax payments and sale amendments in an
// append-only event ledger and derives point-in-time tax positions from it.
//
// The package has two halves that only meet through a Store:
//
//   - Writer appends immutable events. A sale batch of N items becomes N SALE
//     events written by a single Store.Append call, which every backend runs
//     inside one transaction, so either all N rows exist afterwards or none do.
//   - Resolver answers "what is the tax position as of T". It reads a
//     consistent snapshot of the ledger at T and re-derives the position from
//     scratch on every call. There is no cache and no derived index.
//
// # Amendment precedence
//
// A line is identified by its (invoice, item) pair, compared case-insensitively.
// The snapshot returns SALE and ITEM_AMENDMENT events dated at or before the
// cutoff ordered newest first (date DESC, seq DESC). The resolver walks that
// list once with a visited set: the first event seen for a line is the one in
// force at the cutoff and every later one in the walk is superseded. An
// amendment dated after the cutoff is simply not in the snapshot, so the
// original sale governs that query.
//
// # Rounding
//
// Per-line tax is amount × rate, kept exact with shopspring/decimal. The sum is
// rounded once, half away from zero, to whole minor units. Lines are never
// rounded individually.
package ledger
