// Package engine orchestrates the core components around one order
// book: the entry WAL, the matching core, the fill outbox, snapshots,
// and memory reclamation. OrderService is the only write entry point;
// it funnels every command through a single owner goroutine so a book
// has exactly one matching timeline no matter how many callers it has.
package engine
