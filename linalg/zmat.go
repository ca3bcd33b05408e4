// Package linalg adapts dense tensors to the external linear algebra
// providers: gonum's BLAS and LAPACK-backed routines for the float64
// path, and a set of hand-written complex kernels (Householder QR,
// Hessenberg reduction, shifted QR iteration, Jacobi rotations) for the
// complex128 path, for which no LAPACK binding exists in the ecosystem.
package linalg

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"

	"github.com/quvec/tensornet/tensor"
)

// Numerical failure kinds surfaced by the façade.
var (
	ErrSingularMatrix = errors.New("singular matrix")
	ErrNotConverged   = errors.New("not converged")
)

const (
	epsilon = 0x1p-52
	safmin  = 0x1p-1022
)

// zmat is the internal complex matrix kernel. Storage is row-major with a
// stride, so that submatrices alias their parent.
type zmat struct {
	rows, cols, stride int
	data               []complex128
}

func newZmat(rows, cols int) *zmat {
	return &zmat{rows: rows, cols: cols, stride: max(cols, 1), data: make([]complex128, rows*max(cols, 1))}
}

func (m *zmat) at(i, j int) complex128     { return m.data[i*m.stride+j] }
func (m *zmat) set(i, j int, v complex128) { m.data[i*m.stride+j] = v }

// slice returns an aliasing view of rows [i0, i1) and columns [j0, j1).
func (m *zmat) slice(i0, i1, j0, j1 int) *zmat {
	return &zmat{
		rows:   i1 - i0,
		cols:   j1 - j0,
		stride: m.stride,
		data:   m.data[i0*m.stride+j0:],
	}
}

func (m *zmat) clone() *zmat {
	out := newZmat(m.rows, m.cols)
	out.copyFrom(m)
	return out
}

func (m *zmat) copyFrom(a *zmat) {
	for i := 0; i < m.rows; i++ {
		copy(m.data[i*m.stride:i*m.stride+m.cols], a.data[i*a.stride:i*a.stride+m.cols])
	}
}

func (m *zmat) eye() {
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.stride : i*m.stride+m.cols]
		for j := range row {
			row[j] = 0
		}
		if i < m.cols {
			row[i] = 1
		}
	}
}

func (m *zmat) general() cblas128.General {
	return cblas128.General{Rows: m.rows, Cols: m.cols, Stride: m.stride, Data: m.data[:max(0, (m.rows-1)*m.stride+m.cols)]}
}

// zmul returns a·b through the BLAS provider; the transpose flags select
// plain or conjugate-transposed operands.
func zmul(ta, tb blas.Transpose, a, b *zmat) *zmat {
	ar, ac := a.rows, a.cols
	if ta != blas.NoTrans {
		ar, ac = ac, ar
	}
	br, bc := b.rows, b.cols
	if tb != blas.NoTrans {
		br, bc = bc, br
	}
	if ac != br {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "zmul"))
	}
	out := newZmat(ar, bc)
	if ar == 0 || bc == 0 || ac == 0 {
		return out
	}
	cblas128.Gemm(ta, tb, 1, a.general(), b.general(), 0, out.general())
	return out
}

func (m *zmat) frobeniusNorm() float64 {
	var sum float64
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			sum += math.Pow(cmplx.Abs(m.at(i, j)), 2)
		}
	}
	return math.Sqrt(sum)
}

// adjoint materializes the conjugate transpose.
func (m *zmat) adjoint() *zmat {
	out := newZmat(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.set(j, i, cmplx.Conj(m.at(i, j)))
		}
	}
	return out
}

// column returns an aliasing view of column j.
func (m *zmat) column(j int) *zmat {
	return m.slice(0, m.rows, j, j+1)
}

func (m *zmat) scaleColumn(j int, f complex128) {
	for i := 0; i < m.rows; i++ {
		m.set(i, j, m.at(i, j)*f)
	}
}

func (m *zmat) columnNorm2(j int) float64 {
	var sum float64
	for i := 0; i < m.rows; i++ {
		v := m.at(i, j)
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}

// columnDot returns the Hermitian inner product of columns p and q.
func (m *zmat) columnDot(p, q int) complex128 {
	var sum complex128
	for i := 0; i < m.rows; i++ {
		sum += cmplx.Conj(m.at(i, p)) * m.at(i, q)
	}
	return sum
}

// tensorToZmat copies a rank-2 tensor, stored first-index-fastest, into
// the row-major kernel layout.
func tensorToZmat[T tensor.Element](t *tensor.Tensor[T]) *zmat {
	rows, cols := t.Dimension(0), t.Dimension(1)
	out := newZmat(rows, cols)
	data := t.RawData()
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			out.set(i, j, toComplex(data[i+rows*j]))
		}
	}
	return out
}

// zmatToTensor converts back, narrowing to the element type; the
// imaginary parts are dropped for real tensors, which callers only do
// when they vanish by construction.
func zmatToTensor[T tensor.Element](m *zmat) *tensor.Tensor[T] {
	out := tensor.New[T](m.rows, m.cols)
	data := out.MutableData()
	for j := 0; j < m.cols; j++ {
		for i := 0; i < m.rows; i++ {
			data[i+m.rows*j] = fromComplex[T](m.at(i, j))
		}
	}
	return out
}

func toComplex[T tensor.Element](x T) complex128 {
	switch v := any(x).(type) {
	case complex128:
		return v
	case float64:
		return complex(v, 0)
	}
	return 0
}

func fromComplex[T tensor.Element](v complex128) T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(v).(T)
	default:
		return any(real(v)).(T)
	}
}

func isReal[T tensor.Element]() bool {
	var zero T
	_, ok := any(zero).(float64)
	return ok
}
