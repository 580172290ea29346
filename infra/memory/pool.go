package memory

import "sync"

// Record is what the pool and the reclaimer need from a pooled object.
type Record interface {
	Reset()
	RetireEpoch() uint64
	SetRetireEpoch(uint64)
}

// Pool is a typed object pool over sync.Pool.
type Pool[T any] struct {
	p *sync.Pool
}

func NewPool[T any]() *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return new(T) },
		},
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	p.p.Put(v)
}
