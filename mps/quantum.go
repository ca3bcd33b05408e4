package mps

import (
	"math"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/linalg"
	"github.com/quvec/tensornet/sparse"
	"github.com/quvec/tensornet/tensor"
)

// Pauli matrices.
var (
	PauliID = tensor.T2([][]float64{{1, 0}, {0, 1}})
	PauliX  = tensor.T2([][]float64{{0, 1}, {1, 0}})
	PauliZ  = tensor.T2([][]float64{{1, 0}, {0, -1}})
	PauliY  = tensor.T2([][]complex128{{0, -1i}, {1i, 0}})
)

// SpinOperators returns the angular momentum operators Sx, Sy, Sz for a
// given total spin s, built from the raising and lowering diagonals.
func SpinOperators(s float64) (*tensor.CTensor, *tensor.CTensor, *tensor.CTensor) {
	if s < 0.5 || s > 3.0 {
		panic(errors.Wrap(tensor.ErrInvalidDimension, "spin value out of range"))
	}
	d := int(math.Floor(2*s + 1))
	mz := tensor.New[float64](d)
	ladder := tensor.New[float64](d - 1)
	for i := 0; i < d; i++ {
		m := s - float64(i)
		mz.Set(m, i)
	}
	for i := 0; i < d-1; i++ {
		m := s - float64(i)
		ladder.Set(math.Sqrt(s*(s+1)-(m-1)*m), i)
	}
	sp := tensor.Diag(ladder, +1, d)
	sm := tensor.Diag(ladder, -1, d)
	sx := tensor.ToComplex(tensor.MulScalar(tensor.Add(sp, sm), 0.5))
	sy := tensor.MulScalar(tensor.ToComplex(tensor.Sub(sm, sp)), complex(0, 0.5))
	sz := tensor.ToComplex(tensor.Diag(mz, 0))
	return sx, sy, sz
}

// NumberOperator returns the Fock number operator truncated at nmax
// bosons.
func NumberOperator(nmax int) *sparse.RMatrix {
	d := nmax + 1
	entries := make([]sparse.Triplet[float64], 0, d)
	for n := 1; n <= nmax; n++ {
		entries = append(entries, sparse.Triplet[float64]{Row: n, Col: n, Value: float64(n)})
	}
	return sparse.FromTriplets(entries, d, d)
}

// DestructionOperator returns the truncated Fock annihilation operator.
func DestructionOperator(nmax int) *sparse.RMatrix {
	d := nmax + 1
	entries := make([]sparse.Triplet[float64], 0, nmax)
	for n := 1; n <= nmax; n++ {
		entries = append(entries, sparse.Triplet[float64]{Row: n - 1, Col: n, Value: math.Sqrt(float64(n))})
	}
	return sparse.FromTriplets(entries, d, d)
}

// CreationOperator returns the truncated Fock creation operator.
func CreationOperator(nmax int) *sparse.RMatrix {
	return sparse.Transpose(DestructionOperator(nmax))
}

// CoherentState returns the truncated wavefunction of a coherent state
// of amplitude alpha.
func CoherentState(alpha complex128, nmax int) *tensor.CTensor {
	out := tensor.New[complex128](nmax + 1)
	a2 := real(alpha)*real(alpha) + imag(alpha)*imag(alpha)
	c := complex(math.Exp(-a2/2), 0)
	for n := 0; n <= nmax; n++ {
		out.Set(c, n)
		c = c * alpha / complex(math.Sqrt(float64(n+1)), 0)
	}
	return out
}

// DecomposeOperator splits a two-site operator u into a sum of products
// of single-site operators, u = sum_m o1[m] kron o2[m], through the
// Schmidt decomposition of the index-swapped matrix. The returned
// tensors stack the factors along their last axis.
func DecomposeOperator[T tensor.Element](u *tensor.Tensor[T]) (*tensor.Tensor[T], *tensor.Tensor[T]) {
	rows, cols := u.Dimension(0), u.Dimension(1)
	if rows != cols {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "square two-site operator required"))
	}
	d1 := int(math.Round(math.Sqrt(float64(rows))))
	if d1*d1 != rows {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "two equal sites required"))
	}
	d2 := d1

	// Group (out1, in1) against (out2, in2) and split there.
	v := tensor.Reshape(u, d1, d2, d1, d2)
	v = tensor.Permute(v, 1, 2)
	v = tensor.Reshape(v, d1*d1, d2*d2)
	uu, s, vh, err := linalg.SVD(v, true)
	if err != nil {
		panic(errors.Wrap(err, "operator decomposition"))
	}
	// Keep the Schmidt rank only.
	m := WhereToTruncate(s, -1, s.Size())
	if m != s.Size() {
		uu = tensor.ChangeDimension(uu, 1, m)
		vh = tensor.ChangeDimension(vh, 0, m)
		s = tensor.ChangeDimension(s, 0, m)
	}
	sq := tensor.Sqrt(s)
	sqe := toElem[T](sq)
	o1 := tensor.Scale(uu, -1, sqe)
	o2 := tensor.Scale(vh, 0, sqe)
	return tensor.Reshape(o1, d1, d1, m), tensor.Reshape(tensor.Transpose(o2), d2, d2, m)
}

// Entropy returns the von Neumann entropy of a probability vector,
// minus the sum of p log p over the non-zero entries.
func Entropy(p *tensor.RTensor) float64 {
	var sum float64
	for _, v := range p.RawData() {
		if v > 0 {
			sum -= v * math.Log(v)
		}
	}
	return sum
}
