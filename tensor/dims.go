// Package tensor implements shared, copy-on-write dense containers of real
// or complex elements, together with the shape algebra, range views and
// contraction operations they support.
//
// Buffers are stored with the first index varying fastest, so that the
// offset of (i0,...,i_{r-1}) is the sum of i_k times the product of all
// dimensions before k.
package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Dimensions is the ordered sequence of axis sizes of a tensor.
type Dimensions []int

// Indices is a vector of signed integer indices.
type Indices []int

// Booleans is the result of an elementwise comparison.
type Booleans []bool

// Rank returns the number of axes.
func (d Dimensions) Rank() int { return len(d) }

// Size returns the total number of elements, the product of all axis sizes.
// The empty shape denotes a scalar container of size 1.
func (d Dimensions) Size() int {
	size := 1
	for _, n := range d {
		size *= n
	}
	return size
}

// Normalize resolves the wraparound index k relative to rank r.
// Valid inputs are in [-r, r-1], outputs in [0, r-1].
func Normalize(k, r int) int {
	i := k
	if i < 0 {
		i += r
	}
	if i < 0 || i >= r {
		panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%d %d", k, r)))
	}
	return i
}

// Normalize resolves a wraparound axis number relative to the rank.
func (d Dimensions) Normalize(k int) int { return Normalize(k, len(d)) }

// Surround decomposes the shape around axis k into the product of the
// dimensions before k, the size of axis k, and the product after k.
func Surround(d Dimensions, k int) (left, dk, right int) {
	k = d.Normalize(k)
	left, right = 1, 1
	for _, n := range d[:k] {
		left *= n
	}
	for _, n := range d[k+1:] {
		right *= n
	}
	return left, d[k], right
}

// Equal reports whether two shapes agree axis by axis.
func (d Dimensions) Equal(e Dimensions) bool {
	if len(d) != len(e) {
		return false
	}
	for i, n := range d {
		if n != e[i] {
			return false
		}
	}
	return true
}

func (d Dimensions) clone() Dimensions {
	e := make(Dimensions, len(d))
	copy(e, d)
	return e
}

// checkDimensions panics when any axis size is negative.
func checkDimensions(dims Dimensions) {
	for _, n := range dims {
		if n < 0 {
			panic(errors.Wrap(ErrInvalidDimension, fmt.Sprintf("%v", dims)))
		}
	}
}

// Iota returns the indices from first to last, both included.
func Iota(first, last int) Indices {
	if last < first {
		return Indices{}
	}
	ndx := make(Indices, last-first+1)
	for i := range ndx {
		ndx[i] = first + i
	}
	return ndx
}

// strides returns the per-axis strides of a shape, first index fastest.
func strides(d Dimensions) []int {
	s := make([]int, len(d))
	f := 1
	for i, n := range d {
		s[i] = f
		f *= n
	}
	return s
}
