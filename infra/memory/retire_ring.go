package memory

import "sync/atomic"

// RetireRing is a lock-free SPSC ring of retired records: the matching
// loop enqueues, the reclamation job dequeues. Head and tail live on
// separate cache lines.
type RetireRing[T any] struct {
	head  uint64
	_pad1 [56]byte
	tail  uint64
	_pad2 [56]byte
	buf   []*T
	mask  uint64
}

func NewRetireRing[T any](size uint64) *RetireRing[T] {
	if size&(size-1) != 0 {
		panic("memory: RetireRing size must be a power of two")
	}
	return &RetireRing[T]{
		buf:  make([]*T, size),
		mask: size - 1,
	}
}

func (r *RetireRing[T]) Enqueue(v *T) bool {
	h := r.head
	t := atomic.LoadUint64(&r.tail)
	if h-t == uint64(len(r.buf)) {
		return false
	}
	r.buf[h&r.mask] = v
	atomic.StoreUint64(&r.head, h+1)
	return true
}

func (r *RetireRing[T]) Dequeue() *T {
	t := r.tail
	h := atomic.LoadUint64(&r.head)
	if t == h {
		return nil
	}
	v := r.buf[t&r.mask]
	r.buf[t&r.mask] = nil
	atomic.StoreUint64(&r.tail, t+1)
	return v
}

// Len reports the number of parked records.
func (r *RetireRing[T]) Len() int {
	return int(atomic.LoadUint64(&r.head) - atomic.LoadUint64(&r.tail))
}
