package tensor

import (
	"fmt"

	"github.com/pkg/errors"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/blas/cblas128"
)

// moveAxisLast returns a copy of t with axis k moved to the last
// position, all other axes keeping their relative order.
func moveAxisLast[T Element](t *Tensor[T], k int) []T {
	left, n, right := Surround(t.dims, k)
	src := t.buf.data
	dst := make([]T, len(src))
	for x := 0; x < n; x++ {
		for r := 0; r < right; r++ {
			so := left * (x + n*r)
			do := left*r + left*right*x
			copy(dst[do:do+left], src[so:so+left])
		}
	}
	return dst
}

// moveAxisFirst returns a copy of t with axis k moved to the first
// position.
func moveAxisFirst[T Element](t *Tensor[T], k int) []T {
	left, n, right := Surround(t.dims, k)
	src := t.buf.data
	dst := make([]T, len(src))
	for r := 0; r < right; r++ {
		for x := 0; x < n; x++ {
			so := left * (x + n*r)
			for l := 0; l < left; l++ {
				dst[x+n*(l+left*r)] = src[so+l]
			}
		}
	}
	return dst
}

// gemm computes the column-major product c = a·b with a of shape (p, n)
// and b of shape (n, q), dispatching to the BLAS provider for the element
// type. In the storage convention used here a column-major (p, n) matrix
// is the row-major transpose, so the operands are handed to the provider
// in swapped order.
func gemm[T Element](c, a, b []T, p, n, q int) {
	if p == 0 || q == 0 || n == 0 {
		return
	}
	switch cd := any(c).(type) {
	case []float64:
		ad, bd := any(a).([]float64), any(b).([]float64)
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas64.General{Rows: q, Cols: n, Stride: n, Data: bd},
			blas64.General{Rows: n, Cols: p, Stride: p, Data: ad},
			0, blas64.General{Rows: q, Cols: p, Stride: p, Data: cd})
	case []complex128:
		ad, bd := any(a).([]complex128), any(b).([]complex128)
		cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1,
			cblas128.General{Rows: q, Cols: n, Stride: n, Data: bd},
			cblas128.General{Rows: n, Cols: p, Stride: p, Data: ad},
			0, cblas128.General{Rows: q, Cols: p, Stride: p, Data: cd})
	}
}

func foldDims[T Element](a *Tensor[T], k int, b *Tensor[T], l int) (Dimensions, int, int) {
	k, l = a.dims.Normalize(k), b.dims.Normalize(l)
	if a.dims[k] != b.dims[l] {
		panic(errors.Wrap(ErrDimensionsMismatch,
			fmt.Sprintf("%v axis %d, %v axis %d", a.dims, k, b.dims, l)))
	}
	dims := make(Dimensions, 0, a.Rank()+b.Rank()-2)
	for i, n := range a.dims {
		if i != k {
			dims = append(dims, n)
		}
	}
	for i, n := range b.dims {
		if i != l {
			dims = append(dims, n)
		}
	}
	return dims, k, l
}

// Fold contracts axis k of a with axis l of b. The indices of the result
// are a's remaining indices followed by b's remaining indices. The general
// case reduces to a matrix product by moving the contracted axes to the
// boundary positions; for rank-2 operands this is a plain GEMM.
// Contracting a zero-length axis yields the correctly shaped zero tensor.
func Fold[T Element](a *Tensor[T], k int, b *Tensor[T], l int) *Tensor[T] {
	dims, k, l := foldDims(a, k, b, l)
	out := New[T](dims...)
	n := a.dims[k]
	p, q := a.Size(), b.Size()
	if n > 0 {
		p, q = p/n, q/n
	}
	gemm(out.buf.data, moveAxisLast(a, k), moveAxisFirst(b, l), p, n, q)
	return out
}

// FoldC contracts like Fold with a's elements conjugated, as required by
// Hermitian products of complex operands.
func FoldC[T Element](a *Tensor[T], k int, b *Tensor[T], l int) *Tensor[T] {
	dims, k, l := foldDims(a, k, b, l)
	out := New[T](dims...)
	n := a.dims[k]
	p, q := a.Size(), b.Size()
	if n > 0 {
		p, q = p/n, q/n
	}
	am := moveAxisLast(a, k)
	for i := range am {
		am[i] = conjOf(am[i])
	}
	gemm(out.buf.data, am, moveAxisFirst(b, l), p, n, q)
	return out
}

// FoldIn contracts axis k of a with axis l of b, inserting a's remaining
// indices at position l of b's index list. With a rank-2 operator this
// applies the operator on one index of b in place.
func FoldIn[T Element](a *Tensor[T], k int, b *Tensor[T], l int) *Tensor[T] {
	k, l = a.dims.Normalize(k), b.dims.Normalize(l)
	if a.dims[k] != b.dims[l] {
		panic(errors.Wrap(ErrDimensionsMismatch,
			fmt.Sprintf("%v axis %d, %v axis %d", a.dims, k, b.dims, l)))
	}
	la, n, ra := Surround(a.dims, k)
	lb, _, rb := Surround(b.dims, l)

	dims := make(Dimensions, 0, a.Rank()+b.Rank()-2)
	dims = append(dims, b.dims[:l]...)
	for i, m := range a.dims {
		if i != k {
			dims = append(dims, m)
		}
	}
	dims = append(dims, b.dims[l+1:]...)
	out := New[T](dims...)

	ad, bd, od := a.buf.data, b.buf.data, out.buf.data
	m := la * ra
	for irb := 0; irb < rb; irb++ {
		for ira := 0; ira < ra; ira++ {
			for ila := 0; ila < la; ila++ {
				p := ila + la*ira
				for x := 0; x < n; x++ {
					av := ad[ila+la*(x+n*ira)]
					if av == 0 {
						continue
					}
					bo := lb * (x + n*irb)
					oo := lb * (p + m*irb)
					for ilb := 0; ilb < lb; ilb++ {
						od[oo+ilb] += av * bd[bo+ilb]
					}
				}
			}
		}
	}
	return out
}

// Mmult is the matrix product, Fold over the last axis of a and the first
// axis of b.
func Mmult[T Element](a, b *Tensor[T]) *Tensor[T] {
	return Fold(a, -1, b, 0)
}
