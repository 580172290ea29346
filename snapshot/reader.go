package snapshot

import "matchbook/infra/memory"

// Reader marks the begin and end of a consistent read section over the
// live book. It is a thin adapter over memory.ReaderEpoch; reclamation
// happens elsewhere.
type Reader struct {
	epoch *memory.ReaderEpoch
}

func NewReader() *Reader {
	return &Reader{epoch: memory.NewReaderEpoch()}
}

// Begin marks the start of a consistent read.
func (r *Reader) Begin() {
	r.epoch.Enter()
}

// End marks the end of the read.
func (r *Reader) End() {
	r.epoch.Exit()
}

// Epoch exposes the underlying epoch for the reclaimer.
func (r *Reader) Epoch() *memory.ReaderEpoch {
	return r.epoch
}
