// Package snapshot persists and restores the set of resting orders so
// the journal can be truncated. A snapshot captures only open limit
// orders; executed trades live in the outbox and are never replayed.
//
// Readers coordinate visibility through the memory epoch model so a
// snapshot taken while matching continues observes a consistent book.
package snapshot
