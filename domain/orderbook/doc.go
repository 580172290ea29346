// Package orderbook implements an in-memory limit order book with
// price-time priority. Price levels live in two red-black trees (bids
// max-first, asks min-first) and each level carries a FIFO queue of
// resting orders. All cross-entity references are integer ids resolved
// through arenas, so the cyclic order/level/tree graph never holds raw
// pointers across components.
//
// The book is a single-writer structure: one logical matching timeline
// per instrument. Callers that need concurrency put one owner goroutine
// in front of it (see the engine package), serialize reads against
// writes there, and use epoch-based reclamation to keep retired order
// records out of the pool while readers may still hold them.
package orderbook
