package tensor

import "sync/atomic"

// buffer is the single owning primitive behind every tensor. Handles share
// it through a reference count; the only path to a mutable slice is
// Tensor.unshare, which clones the data when the count exceeds one.
type buffer[T Element] struct {
	data []T
	refs atomic.Int32
}

func newBuffer[T Element](n int) *buffer[T] {
	b := &buffer[T]{data: make([]T, n)}
	b.refs.Store(1)
	return b
}

func newBufferFrom[T Element](data []T) *buffer[T] {
	b := &buffer[T]{data: data}
	b.refs.Store(1)
	return b
}

func (b *buffer[T]) retain() *buffer[T] {
	b.refs.Add(1)
	return b
}

func (b *buffer[T]) release() {
	b.refs.Add(-1)
}

func (b *buffer[T]) shared() bool {
	return b.refs.Load() > 1
}
