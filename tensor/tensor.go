package tensor

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Tensor is a dense multidimensional array of real or complex elements.
// The buffer is reference-counted and shared between handles; every
// mutation goes through an unshare step that clones the data if and only
// if the buffer is shared (copy-on-write).
type Tensor[T Element] struct {
	dims Dimensions
	buf  *buffer[T]
}

// RTensor is a tensor of float64 elements.
type RTensor = Tensor[float64]

// CTensor is a tensor of complex128 elements.
type CTensor = Tensor[complex128]

// New returns a zero-filled tensor with the given shape.
func New[T Element](dims ...int) *Tensor[T] {
	checkDimensions(dims)
	return &Tensor[T]{dims: Dimensions(dims).clone(), buf: newBuffer[T](Dimensions(dims).Size())}
}

// FromSlice adopts data as the buffer of a tensor with the given shape.
func FromSlice[T Element](data []T, dims ...int) *Tensor[T] {
	checkDimensions(dims)
	if len(data) != Dimensions(dims).Size() {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%d %v", len(data), dims)))
	}
	return &Tensor[T]{dims: Dimensions(dims).clone(), buf: newBufferFrom(data)}
}

// Rank returns the number of axes.
func (t *Tensor[T]) Rank() int { return len(t.dims) }

// Size returns the total number of elements.
func (t *Tensor[T]) Size() int { return len(t.buf.data) }

// Dimensions returns a copy of the shape.
func (t *Tensor[T]) Dimensions() Dimensions { return t.dims.clone() }

// Dimension returns the size of axis k, with wraparound.
func (t *Tensor[T]) Dimension(k int) int { return t.dims[t.dims.Normalize(k)] }

// Share returns a new handle over the same buffer. The copy is O(1); the
// first mutation through either handle clones the data.
func (t *Tensor[T]) Share() *Tensor[T] {
	return &Tensor[T]{dims: t.dims.clone(), buf: t.buf.retain()}
}

// Refs returns the number of handles sharing the buffer.
func (t *Tensor[T]) Refs() int { return int(t.buf.refs.Load()) }

// unshare is the only code path to a mutable view of the buffer.
func (t *Tensor[T]) unshare() []T {
	if t.buf.shared() {
		data := make([]T, len(t.buf.data))
		copy(data, t.buf.data)
		t.buf.release()
		t.buf = newBufferFrom(data)
	}
	return t.buf.data
}

// data returns the buffer for reading. Callers must not write through it.
func (t *Tensor[T]) data() []T { return t.buf.data }

// RawData exposes the buffer in storage order for reading. Writing
// through it bypasses copy-on-write; use MutableData instead.
func (t *Tensor[T]) RawData() []T { return t.buf.data }

// MutableData unshares the buffer and exposes it in storage order for
// writing.
func (t *Tensor[T]) MutableData() []T { return t.unshare() }

func (t *Tensor[T]) offsetOf(ndx []int) int {
	if len(ndx) != len(t.dims) {
		panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%v %v", ndx, t.dims)))
	}
	offset, stride := 0, 1
	for k, i := range ndx {
		n := t.dims[k]
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%v %v", ndx, t.dims)))
		}
		offset += i * stride
		stride *= n
	}
	return offset
}

// At returns the element at the given multi-index. Negative indices wrap.
func (t *Tensor[T]) At(ndx ...int) T {
	return t.buf.data[t.offsetOf(ndx)]
}

// Set stores v at the given multi-index, unsharing the buffer first.
func (t *Tensor[T]) Set(v T, ndx ...int) {
	offset := t.offsetOf(ndx)
	t.unshare()[offset] = v
}

// Reshape returns a tensor sharing t's buffer under a new shape. One axis
// may be -1, in which case its size is inferred.
func Reshape[T Element](t *Tensor[T], dims ...int) *Tensor[T] {
	d := Dimensions(dims).clone()
	infer := -1
	known := 1
	for k, n := range d {
		if n == -1 {
			if infer >= 0 {
				panic(errors.Wrap(ErrInvalidDimension, fmt.Sprintf("%v", dims)))
			}
			infer = k
			continue
		}
		if n < 0 {
			panic(errors.Wrap(ErrInvalidDimension, fmt.Sprintf("%v", dims)))
		}
		known *= n
	}
	if infer >= 0 {
		if known == 0 || t.Size()%known != 0 {
			panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%v %v", t.dims, dims)))
		}
		d[infer] = t.Size() / known
	}
	if d.Size() != t.Size() {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%v %v", t.dims, dims)))
	}
	return &Tensor[T]{dims: d, buf: t.buf.retain()}
}

// Flatten returns a rank-1 view of t's buffer.
func Flatten[T Element](t *Tensor[T]) *Tensor[T] {
	return Reshape(t, t.Size())
}

// Equal reports a descriptive error when t and u differ in shape, or when
// some pair of elements differs by more than tol in magnitude.
func (t *Tensor[T]) Equal(u *Tensor[T], tol float64) error {
	if !t.dims.Equal(u.dims) {
		return errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%v %v", t.dims, u.dims))
	}
	for i, v := range t.buf.data {
		if absOf(v-u.buf.data[i]) > tol {
			return errors.Errorf("element %d: %v %v", i, v, u.buf.data[i])
		}
	}
	return nil
}

// Norm2 returns the Frobenius norm.
func Norm2[T Element](t *Tensor[T]) float64 {
	return norm2Slice(t.buf.data)
}

// NormInf returns the largest element magnitude.
func NormInf[T Element](t *Tensor[T]) float64 {
	var m float64
	for _, v := range t.buf.data {
		if a := absOf(v); a > m {
			m = a
		}
	}
	return m
}

// String formats the shape and the elements in buffer order.
func (t *Tensor[T]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v[", []int(t.dims))
	for i, v := range t.buf.data {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", v)
	}
	b.WriteString("]")
	return b.String()
}
