package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// View is a read-only proxy over a multi-range selection of a parent
// tensor. It holds a non-owning alias of the parent buffer and
// materializes into a fresh tensor on demand.
type View[T Element] struct {
	src *Tensor[T]
	rs  []Range
}

// View selects a subset of t along every axis. The proxy stays valid as
// long as the parent handle does.
func (t *Tensor[T]) View(rs ...Range) *View[T] {
	if len(rs) != t.Rank() {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%d ranges, rank %d", len(rs), t.Rank())))
	}
	return &View[T]{src: t, rs: rs}
}

// Dimensions returns the shape of the selection, squeezed axes removed.
func (v *View[T]) Dimensions() Dimensions {
	_, dims := newRangeIterator(v.rs, v.src.dims)
	return dims
}

// Tensor materializes the selection. When the innermost range is
// contiguous the copy proceeds in whole blocks.
func (v *View[T]) Tensor() *Tensor[T] {
	it, dims := newRangeIterator(v.rs, v.src.dims)
	out := New[T](dims...)
	src, dst := v.src.buf.data, out.buf.data
	if it.Contiguous() {
		n := it.BlockSize()
		for i := 0; ; i += n {
			offset, ok := it.NextBlock()
			if !ok {
				break
			}
			copy(dst[i:i+n], src[offset:offset+n])
		}
		return out
	}
	for i := 0; ; i++ {
		offset, ok := it.Next()
		if !ok {
			break
		}
		dst[i] = src[offset]
	}
	return out
}

// Slice materializes a multi-range selection of t.
func (t *Tensor[T]) Slice(rs ...Range) *Tensor[T] {
	return t.View(rs...).Tensor()
}

// SetSlice copies src into the selected region of t, walking the range
// iterator. Shapes must agree element count wise.
func (t *Tensor[T]) SetSlice(rs []Range, src *Tensor[T]) {
	it, dims := newRangeIterator(rs, t.dims)
	if dims.Size() != src.Size() {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%v %v", dims, src.dims)))
	}
	dst := t.unshare()
	from := src.buf.data
	if it.Contiguous() {
		n := it.BlockSize()
		for i := 0; ; i += n {
			offset, ok := it.NextBlock()
			if !ok {
				break
			}
			copy(dst[offset:offset+n], from[i:i+n])
		}
		return
	}
	for i := 0; ; i++ {
		offset, ok := it.Next()
		if !ok {
			break
		}
		dst[offset] = from[i]
	}
}

// FillSlice assigns the scalar v to every element of the selection.
func (t *Tensor[T]) FillSlice(rs []Range, v T) {
	it, _ := newRangeIterator(rs, t.dims)
	dst := t.unshare()
	for {
		offset, ok := it.Next()
		if !ok {
			return
		}
		dst[offset] = v
	}
}
