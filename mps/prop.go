package mps

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/tensor"
)

// propMatrix carries an environment matrix across one site of the bra
// state p and the ket state q. For positive sense m lives on the left of
// the site, with shape (bond of p, bond of q), and moves one site right;
// negative sense mirrors. A non-nil op inserts a single-site operator on
// the ket.
func propMatrix[T tensor.Element](m *tensor.Tensor[T], sense int, p, q *tensor.Tensor[T], op *tensor.Tensor[T]) *tensor.Tensor[T] {
	qeff := q
	if op != nil {
		qeff = tensor.FoldIn(op, -1, q, mpsUpAxis)
	}
	ap, d, ap2 := p.Dimension(0), p.Dimension(1), p.Dimension(2)
	if sense > 0 {
		// mq(a, i, b') = sum_b m(a, b) q(b, i, b').
		mq := tensor.Fold(m, 1, qeff, mpsLeftAxis)
		// out(a', b') = sum_{a,i} conj(p(a, i, a')) mq(a, i, b').
		p2 := tensor.Reshape(p, ap*d, ap2)
		mq2 := tensor.Reshape(mq, ap*d, mq.Dimension(2))
		return tensor.FoldC(p2, 0, mq2, 0)
	}
	// qm(b, i, a') = sum_{b'} q(b, i, b') m(a', b').
	qm := tensor.Fold(qeff, mpsRightAxis, m, 1)
	// out(a, b) = sum_{i,a'} conj(p(a, i, a')) qm(b, i, a').
	p2 := tensor.Reshape(p, ap, d*ap2)
	qm2 := tensor.Reshape(qm, qm.Dimension(0), d*ap2)
	return tensor.FoldC(p2, 1, qm2, 1)
}

// propMatrixClose contracts a finished environment down to a scalar by
// tracing its two bond indices.
func propMatrixClose[T tensor.Element](m *tensor.Tensor[T]) T {
	if m.Dimension(0) != m.Dimension(1) {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, fmt.Sprintf("%v", m.Dimensions())))
	}
	return tensor.Trace(m)
}

// startMatrix builds the boundary environment for a pair of states. Open
// boundaries give the 1 by 1 identity; periodic boundaries require equal
// bonds and start from the identity that later closes into a trace.
func startMatrix[T tensor.Element](p, q *MPS[T], sense int) *tensor.Tensor[T] {
	var ap, aq int
	if sense > 0 {
		ap, aq = p.Site(0).Dimension(mpsLeftAxis), q.Site(0).Dimension(mpsLeftAxis)
	} else {
		last := p.Len() - 1
		ap, aq = p.Site(last).Dimension(mpsRightAxis), q.Site(last).Dimension(mpsRightAxis)
	}
	if ap != aq {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, fmt.Sprintf("%d %d", ap, aq)))
	}
	return tensor.Eye[T](ap)
}

// Scprod returns the scalar product of two states of equal length.
func Scprod[T tensor.Element](p, q *MPS[T]) T {
	if p.Len() != q.Len() {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, fmt.Sprintf("%d %d", p.Len(), q.Len())))
	}
	m := startMatrix(p, q, +1)
	for k := 0; k < p.Len(); k++ {
		m = propMatrix(m, +1, p.Site(k), q.Site(k), nil)
	}
	return propMatrixClose(m)
}

// Norm2 returns the Euclidean norm of a state.
func Norm2[T tensor.Element](p *MPS[T]) float64 {
	v := Scprod(p, p)
	return math.Sqrt(math.Abs(realPart(v)))
}

// Expected returns the expectation value of a single-site operator at
// site k.
func Expected[T tensor.Element](p *MPS[T], op *tensor.Tensor[T], k int) T {
	k = tensor.Normalize(k, p.Len())
	m := startMatrix(p, p, +1)
	for j := 0; j < p.Len(); j++ {
		var o *tensor.Tensor[T]
		if j == k {
			o = op
		}
		m = propMatrix(m, +1, p.Site(j), p.Site(j), o)
	}
	return propMatrixClose(m)
}

// ExpectedAll sums the expectation value of a single-site operator over
// the whole lattice.
func ExpectedAll[T tensor.Element](p *MPS[T], op *tensor.Tensor[T]) T {
	var sum T
	for k := 0; k < p.Len(); k++ {
		sum += Expected(p, op, k)
	}
	return sum
}

// Expected2 returns the two-site correlation of op1 at k1 and op2 at k2.
// Coinciding sites multiply the operators.
func Expected2[T tensor.Element](p *MPS[T], op1 *tensor.Tensor[T], k1 int, op2 *tensor.Tensor[T], k2 int) T {
	k1 = tensor.Normalize(k1, p.Len())
	k2 = tensor.Normalize(k2, p.Len())
	m := startMatrix(p, p, +1)
	for j := 0; j < p.Len(); j++ {
		var o *tensor.Tensor[T]
		switch {
		case j == k1 && j == k2:
			o = tensor.Mmult(op1, op2)
		case j == k1:
			o = op1
		case j == k2:
			o = op2
		}
		m = propMatrix(m, +1, p.Site(j), p.Site(j), o)
	}
	return propMatrixClose(m)
}

func realPart[T tensor.Element](v T) float64 {
	switch x := any(v).(type) {
	case float64:
		return x
	case complex128:
		return real(x)
	}
	return 0
}

func scalar[T tensor.Element](v float64) T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(complex(v, 0)).(T)
	default:
		return any(v).(T)
	}
}

func scalarC[T tensor.Element](v complex128) T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(v).(T)
	default:
		return any(real(v)).(T)
	}
}

func conjScalar[T tensor.Element](v T) T {
	if x, ok := any(v).(complex128); ok {
		return any(complex(real(x), -imag(x))).(T)
	}
	return v
}
