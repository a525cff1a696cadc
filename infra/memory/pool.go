// Package memory provides order recycling for the engine hot path: a
// typed pool, a retire ring for objects leaving the book, and an
// epoch scheme that delays reuse while a snapshot reader may still
// hold references.
package memory

import "sync"

// Resettable is implemented by pooled objects that can clear themselves
// before reuse.
type Resettable interface {
	Reset()
}

// Pool is a typed object pool over sync.Pool.
type Pool[T any] struct {
	p *sync.Pool
}

func NewPool[T any](ctor func() *T) *Pool[T] {
	return &Pool[T]{
		p: &sync.Pool{
			New: func() any { return ctor() },
		},
	}
}

func (p *Pool[T]) Get() *T {
	return p.p.Get().(*T)
}

func (p *Pool[T]) Put(v *T) {
	if r, ok := any(v).(Resettable); ok {
		r.Reset()
	}
	p.p.Put(v)
}

// PutAny lets Pool[T] satisfy ReclaimablePool. The reclaimer works on
// erased values; this is the one checked crossing point back into the
// typed world.
func (p *Pool[T]) PutAny(v any) {
	obj, ok := v.(*T)
	if !ok {
		panic("memory.Pool: PutAny received wrong type")
	}
	p.Put(obj)
}
