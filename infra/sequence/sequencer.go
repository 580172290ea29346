// Package sequence issues the strictly monotonic ids that order every
// command on a book's timeline. Deterministic and replay-safe: after a
// WAL replay the sequencer resumes from the last replayed id.
package sequence

import "sync/atomic"

type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer. start is 0 on a fresh boot and the last
// replayed sequence after recovery.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence id.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset jumps the sequencer to v. Only used after WAL replay.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
