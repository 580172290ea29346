package memory

import "sync/atomic"

// GlobalEpoch monotonically increases; the reclamation job advances it.
var GlobalEpoch atomic.Uint64

const inactive = ^uint64(0)

// ReaderEpoch marks when a reader entered a read section.
type ReaderEpoch struct {
	epoch atomic.Uint64
}

func NewReaderEpoch() *ReaderEpoch {
	r := &ReaderEpoch{}
	r.epoch.Store(inactive)
	return r
}

func (r *ReaderEpoch) Enter() {
	r.epoch.Store(GlobalEpoch.Load())
}

func (r *ReaderEpoch) Exit() {
	r.epoch.Store(inactive)
}

func (r *ReaderEpoch) Value() uint64 {
	return r.epoch.Load()
}

// Retire stamps v with the current epoch and parks it in the ring.
// Returns false if the ring is full; the caller decides whether that
// is fatal.
func Retire[T any, PT interface {
	*T
	Record
}](ring *RetireRing[T], v PT) bool {
	v.SetRetireEpoch(GlobalEpoch.Load())
	return ring.Enqueue((*T)(v))
}

// AdvanceEpochAndReclaim bumps the global epoch and recycles every
// parked record no active reader can still observe. The ring is FIFO,
// so the first unsafe record stops the pass: everything behind it was
// retired later and is unsafe too.
func AdvanceEpochAndReclaim[T any, PT interface {
	*T
	Record
}](ring *RetireRing[T], pool *Pool[T], readers ...*ReaderEpoch) {
	GlobalEpoch.Add(1)
	min := minReaderEpoch(readers...)

	for {
		obj := ring.Dequeue()
		if obj == nil {
			return
		}
		rec := PT(obj)
		if min == inactive || rec.RetireEpoch() < min {
			rec.Reset()
			pool.Put(obj)
			continue
		}
		_ = ring.Enqueue(obj)
		return
	}
}

func minReaderEpoch(rs ...*ReaderEpoch) uint64 {
	min := inactive
	for _, r := range rs {
		if r == nil {
			continue
		}
		if v := r.Value(); v < min {
			min = v
		}
	}
	return min
}
