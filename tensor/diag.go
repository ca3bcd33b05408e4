package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Diag builds a matrix with v on its which-th diagonal; negative values
// select diagonals below the main one. The size defaults to the smallest
// matrix that fits the diagonal, or can be forced with rows and cols.
func Diag[T Element](v *Tensor[T], which int, size ...int) *Tensor[T] {
	n := v.Size()
	rows := n + max(0, -which)
	cols := n + max(0, which)
	if len(size) > 0 {
		rows = size[0]
		cols = rows
	}
	if len(size) > 1 {
		cols = size[1]
	}
	out := New[T](rows, cols)
	for i, x := range v.buf.data {
		r, c := i, i
		if which >= 0 {
			c += which
		} else {
			r -= which
		}
		if r >= rows || c >= cols {
			panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%d %d %d", which, rows, cols)))
		}
		out.buf.data[r+rows*c] = x
	}
	return out
}

// TakeDiag extracts the which-th diagonal over axes i and j of a tensor,
// collapsing the pair into a single axis appended at the position of the
// first one.
func TakeDiag[T Element](t *Tensor[T], which int, axes ...int) *Tensor[T] {
	i, j := 0, 1
	if len(axes) > 0 {
		i = axes[0]
	}
	if len(axes) > 1 {
		j = axes[1]
	}
	i, j = t.dims.Normalize(i), t.dims.Normalize(j)
	if i > j {
		i, j = j, i
		which = -which
	}
	left, di, _ := Surround(t.dims, i)
	_, dj, right := Surround(t.dims, j)
	mid := 1
	for _, n := range t.dims[i+1 : j] {
		mid *= n
	}

	// The diagonal runs over (d, d+which) pairs inside the bounds.
	first := max(0, -which)
	count := min(di-first, dj-first-which)
	if count < 0 {
		count = 0
	}

	dims := make(Dimensions, 0, t.Rank()-1)
	dims = append(dims, t.dims[:i]...)
	dims = append(dims, count)
	dims = append(dims, t.dims[i+1:j]...)
	dims = append(dims, t.dims[j+1:]...)
	out := New[T](dims...)

	src, dst := t.buf.data, out.buf.data
	for r := 0; r < right; r++ {
		for m := 0; m < mid; m++ {
			for d := 0; d < count; d++ {
				a, b := first+d, first+d+which
				so := left * (a + di*(m+mid*(b+dj*r)))
				do := left * (d + count*(m+mid*r))
				copy(dst[do:do+left], src[so:so+left])
			}
		}
	}
	return out
}

// Trace sums the main diagonal of a matrix.
func Trace[T Element](t *Tensor[T]) T {
	n, m := matrixDims(t)
	var sum T
	for i := 0; i < min(n, m); i++ {
		sum += t.buf.data[i+n*i]
	}
	return sum
}

// PartialTrace contracts axes i and j of equal dimension, producing a
// tensor of rank reduced by two.
func PartialTrace[T Element](t *Tensor[T], i, j int) *Tensor[T] {
	i, j = t.dims.Normalize(i), t.dims.Normalize(j)
	if i > j {
		i, j = j, i
	}
	if t.dims[i] != t.dims[j] {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%v axes %d %d", t.dims, i, j)))
	}
	left, d, _ := Surround(t.dims, i)
	_, _, right := Surround(t.dims, j)
	mid := 1
	for _, n := range t.dims[i+1 : j] {
		mid *= n
	}

	dims := make(Dimensions, 0, t.Rank()-2)
	dims = append(dims, t.dims[:i]...)
	dims = append(dims, t.dims[i+1:j]...)
	dims = append(dims, t.dims[j+1:]...)
	out := New[T](dims...)

	src, dst := t.buf.data, out.buf.data
	for r := 0; r < right; r++ {
		for m := 0; m < mid; m++ {
			for x := 0; x < d; x++ {
				so := left * (x + d*(m+mid*(x+d*r)))
				do := left * (m + mid*r)
				for l := 0; l < left; l++ {
					dst[do+l] += src[so+l]
				}
			}
		}
	}
	return out
}

// MatrixNormInf returns the infinity norm of a matrix, the largest
// absolute row sum.
func MatrixNormInf[T Element](t *Tensor[T]) float64 {
	n, m := matrixDims(t)
	var best float64
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < m; j++ {
			sum += absOf(t.buf.data[i+n*j])
		}
		if sum > best {
			best = sum
		}
	}
	return best
}
