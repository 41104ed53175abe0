// Package entries persists journal entries and their photo lists in the
// local SQLite database.
//
// # Data model
//
// Each row in journal_entries belongs to exactly one root and carries a
// position that orders it among its siblings. Positions are dense (0..n-1)
// as long as callers use Compact after a removal. The photo list of an
// entry lives in entry_photos, ordered by its own position column, one
// row per Photo{FullName, ThumbName}.
//
// Entries are addressed by identity only. Positions are an ordering detail
// returned to callers, never used to find a row.
//
// # Transactions
//
// The repository works over a dbx.DBTX. Multi-statement operations such
// as Insert (entry row plus photo rows) are only atomic when the caller
// passes a *sql.Tx; the localstore package always does.
package entries
