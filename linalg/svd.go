package linalg

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"gonum.org/v1/gonum/mat"

	"github.com/quvec/tensornet/tensor"
)

// SVD computes the singular value decomposition a = U·diag(s)·VH. The
// singular values are non-negative and non-increasing. With econ set the
// factors are trimmed to min(m, n) columns and rows respectively;
// otherwise U is m by m and VH is n by n.
func SVD[T tensor.Element](a *tensor.Tensor[T], econ bool) (*tensor.Tensor[T], *tensor.RTensor, *tensor.Tensor[T], error) {
	if a.Rank() != 2 {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "matrix required"))
	}
	if isReal[T]() {
		return svdReal(a, econ)
	}
	m, n := a.Dimension(0), a.Dimension(1)
	if m >= n {
		u, s, v, err := svdJacobi(tensorToZmat(a), econ)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "")
		}
		return zmatToTensor[T](u), tensor.FromSlice(s, len(s)), zmatToTensor[T](v.adjoint()), nil
	}
	// Tall-matrix kernel; decompose the adjoint and swap the factors.
	v, s, u, err := svdJacobi(tensorToZmat(a).adjoint(), econ)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "")
	}
	return zmatToTensor[T](u), tensor.FromSlice(s, len(s)), zmatToTensor[T](v.adjoint()), nil
}

func svdReal[T tensor.Element](a *tensor.Tensor[T], econ bool) (*tensor.Tensor[T], *tensor.RTensor, *tensor.Tensor[T], error) {
	m, n := a.Dimension(0), a.Dimension(1)
	dense := mat.NewDense(m, n, nil)
	data := a.RawData()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			dense.Set(i, j, realOfElem(data[i+m*j]))
		}
	}
	kind := mat.SVDFull
	if econ {
		kind = mat.SVDThin
	}
	var svd mat.SVD
	if !svd.Factorize(dense, kind) {
		return nil, nil, nil, errors.Wrap(ErrNotConverged, "svd")
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	ur, uc := u.Dims()
	ut := tensor.New[T](ur, uc)
	ud := ut.MutableData()
	for j := 0; j < uc; j++ {
		for i := 0; i < ur; i++ {
			ud[i+ur*j] = fromComplex[T](complex(u.At(i, j), 0))
		}
	}
	vr, vc := v.Dims()
	vht := tensor.New[T](vc, vr)
	vd := vht.MutableData()
	for j := 0; j < vc; j++ {
		for i := 0; i < vr; i++ {
			vd[j+vc*i] = fromComplex[T](complex(v.At(i, j), 0))
		}
	}
	return ut, tensor.FromSlice(s, len(s)), vht, nil
}

// svdJacobi runs one-sided Jacobi rotations on a (m >= n), returning U
// (m by n, or m by m when full), the singular values and V (n by n).
func svdJacobi(a *zmat, econ bool) (*zmat, []float64, *zmat, error) {
	m, n := a.rows, a.cols
	v := newZmat(n, n)
	v.eye()

	const maxSweeps = 64
	converged := n < 2
	for sweep := 0; sweep < maxSweeps && !converged; sweep++ {
		converged = true
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				gpq := a.columnDot(p, q)
				gpp := a.columnNorm2(p)
				gqq := a.columnNorm2(q)
				if cmplx.Abs(gpq) <= epsilon*gpp*gqq || gpp == 0 || gqq == 0 {
					continue
				}
				converged = false
				phase := gpq / complex(cmplx.Abs(gpq), 0)
				tau := (gqq*gqq - gpp*gpp) / (2 * cmplx.Abs(gpq))
				t := 1.0
				if tau != 0 {
					t = math.Copysign(1, tau) / (math.Abs(tau) + math.Sqrt(1+tau*tau))
				}
				c := 1 / math.Sqrt(1+t*t)
				s := complex(t*c, 0) * phase
				rotateColumns(a, p, q, c, s)
				rotateColumns(v, p, q, c, s)
			}
		}
	}
	if !converged {
		return nil, nil, nil, errors.Wrap(ErrNotConverged, "jacobi svd")
	}

	// Column norms are the singular values; order them descending.
	s := make([]float64, n)
	for j := range s {
		s[j] = a.columnNorm2(j)
	}
	ndx := make([]int, n)
	for i := range ndx {
		ndx[i] = i
	}
	for i := 1; i < n; i++ {
		for j := i; j > 0 && s[ndx[j-1]] < s[ndx[j]]; j-- {
			ndx[j-1], ndx[j] = ndx[j], ndx[j-1]
		}
	}

	ucols := n
	if !econ {
		ucols = m
	}
	u := newZmat(m, ucols)
	sorted := make([]float64, n)
	vs := newZmat(n, n)
	for to, from := range ndx {
		sorted[to] = s[from]
		if s[from] > 0 {
			for i := 0; i < m; i++ {
				u.set(i, to, a.at(i, from)/complex(s[from], 0))
			}
		}
		for i := 0; i < n; i++ {
			vs.set(i, to, v.at(i, from))
		}
	}
	completeBasis(u, countPositive(sorted))
	return u, sorted, vs, nil
}

func countPositive(s []float64) int {
	k := 0
	for _, v := range s {
		if v > 0 {
			k++
		}
	}
	return k
}

// completeBasis fills the columns of u from the given one on with an
// orthonormal completion, so that rank-deficient inputs still produce a
// unitary factor.
func completeBasis(u *zmat, from int) {
	m := u.rows
	col := from
	for e := 0; e < m && col < u.cols; e++ {
		for i := 0; i < m; i++ {
			u.set(i, col, 0)
		}
		u.set(e, col, 1)
		// Modified Gram-Schmidt against all previous columns, twice.
		for pass := 0; pass < 2; pass++ {
			for j := 0; j < col; j++ {
				d := u.columnDot(j, col)
				for i := 0; i < m; i++ {
					u.set(i, col, u.at(i, col)-d*u.at(i, j))
				}
			}
		}
		norm := u.columnNorm2(col)
		if norm < 0.5 {
			continue
		}
		u.scaleColumn(col, complex(1/norm, 0))
		col++
	}
}
