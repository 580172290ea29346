// Package snapshot provides consistent read access to the live book
// and durable point-in-time images of it. In-memory readers enter and
// exit read epochs so snapshots taken during concurrent matching never
// observe a recycled order record; on-disk images pair with the entry
// WAL to bound replay time after a restart.
package snapshot
