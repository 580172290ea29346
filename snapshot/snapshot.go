package snapshot

import "time"

// Snapshot is a durable image of every resting order at one sequence
// point. Replaying it into an empty book reproduces the book exactly:
// entries are stored bids-first, best-first, queue order preserved.
type Snapshot struct {
	Seq     uint64
	Created time.Time
	Orders  []OrderEntry
}

type OrderEntry struct {
	ID     uint64
	Side   uint8
	Type   uint8
	Price  uint64
	Shares uint64
	SeqID  uint64
}
