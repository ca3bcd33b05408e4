package linalg

import (
	"math/cmplx"
)

// qrDecompose overwrites a (m by n, m >= n) with its upper triangular
// factor and returns the accumulated unitary q (m by m), so that the
// original a equals q times the result.
func qrDecompose(a *zmat) *zmat {
	m, n := a.rows, a.cols
	q := newZmat(m, m)
	q.eye()
	for j := 0; j < min(n, m-1); j++ {
		h := newHouseholder(a.slice(j, m, j, j+1))
		h.applyLeft(a.slice(j, m, j, n))
		a.set(j, j, h.beta)
		for i := j + 1; i < m; i++ {
			a.set(i, j, 0)
		}
		h.applyRight(q.slice(0, m, j, m))
	}
	return q
}

// hessenberg reduces a to upper Hessenberg form by unitary similarity,
// accumulating the transform into q.
func hessenberg(a, q *zmat) {
	m := a.rows
	q.eye()
	for i := 1; i <= m-2; i++ {
		h := newHouseholder(a.slice(i, m, i-1, i))
		h.applyLeft(a.slice(i, m, i-1, m))
		a.set(i, i-1, h.beta)
		for k := i + 1; k < m; k++ {
			a.set(k, i-1, 0)
		}
		h.applyRight(a.slice(0, m, i, m))
		h.applyRight(q.slice(0, m, i, m))
	}
}

// backSubstitution solves the upper triangular system t·x = b in place
// into x. When a diagonal entry vanishes the component is set to one at
// zeroIndex and zero elsewhere, which yields the null space vectors
// needed by the eigenvector recovery.
func backSubstitution(x, t, b *zmat, zeroIndex int, tol float64) {
	m := x.rows
	for i := m - 1; i >= 0; i-- {
		v := b.at(i, 0)
		for j := m - 1; j > i; j-- {
			v -= t.at(i, j) * x.at(j, 0)
		}
		if d := t.at(i, i); cmplx.Abs(d) <= tol {
			if i == zeroIndex {
				v = 1
			} else {
				v = 0
			}
		} else {
			v /= d
		}
		x.set(i, 0, v)
	}
}
