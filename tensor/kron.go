package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

func matrixDims[T Element](t *Tensor[T]) (int, int) {
	if t.Rank() != 2 {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("rank %d", t.Rank())))
	}
	return t.dims[0], t.dims[1]
}

// Kron returns the Kronecker product of two matrices, where the row index
// of b varies fastest: Kron(a, b)[i*p+k, j*q+l] = a[i, j] * b[k, l].
func Kron[T Element](a, b *Tensor[T]) *Tensor[T] {
	n, m := matrixDims(a)
	p, q := matrixDims(b)
	out := New[T](n*p, m*q)
	ad, bd, od := a.buf.data, b.buf.data, out.buf.data
	rows := n * p
	for j := 0; j < m; j++ {
		for i := 0; i < n; i++ {
			av := ad[i+n*j]
			if av == 0 {
				continue
			}
			for l := 0; l < q; l++ {
				ro := i*p + rows*(j*q+l)
				bo := p * l
				for k := 0; k < p; k++ {
					od[ro+k] = av * bd[bo+k]
				}
			}
		}
	}
	return out
}

// Kron2 is the Kronecker product with the operand order reversed.
func Kron2[T Element](a, b *Tensor[T]) *Tensor[T] {
	return Kron(b, a)
}

// Kron2Sum builds the two-site sum kron(Id, a) + kron(b, Id), the shape
// local plus interaction Hamiltonian terms take on a pair of sites.
func Kron2Sum[T Element](a, b *Tensor[T]) *Tensor[T] {
	n, _ := matrixDims(a)
	p, _ := matrixDims(b)
	return Add(Kron(Eye[T](p), a), Kron(b, Eye[T](n)))
}
