package linalg

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"gonum.org/v1/gonum/mat"

	"github.com/quvec/tensornet/tensor"
)

// EigSym computes the eigendecomposition of a symmetric or Hermitian
// matrix. Eigenvalues are real and sorted ascending; the eigenvector
// columns match the eigenvalue order. Only the lower triangle and the
// diagonal are referenced.
func EigSym[T tensor.Element](a *tensor.Tensor[T]) (*tensor.RTensor, *tensor.Tensor[T], error) {
	n := squareSize(a)
	if isReal[T]() {
		return eigSymReal(a, n)
	}
	vals, vecs, err := jacobiHermitian(tensorToZmat(a))
	if err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	return tensor.FromSlice(vals, len(vals)), zmatToTensor[T](vecs), nil
}

func eigSymReal[T tensor.Element](a *tensor.Tensor[T], n int) (*tensor.RTensor, *tensor.Tensor[T], error) {
	sym := mat.NewSymDense(n, nil)
	data := a.RawData()
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sym.SetSym(i, j, realOfElem(data[i+n*j]))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, nil, errors.Wrap(ErrNotConverged, "eig_sym")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// gonum reports ascending order already; copy into tensor layout.
	out := tensor.New[T](n, n)
	od := out.MutableData()
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			od[i+n*j] = fromComplex[T](complex(vecs.At(i, j), 0))
		}
	}
	return tensor.FromSlice(vals, n), out, nil
}

// jacobiHermitian diagonalizes a Hermitian matrix with cyclic complex
// Jacobi rotations.
func jacobiHermitian(a *zmat) ([]float64, *zmat, error) {
	n := a.rows
	v := newZmat(n, n)
	v.eye()

	// Symmetrize against roundoff in the upper triangle.
	for i := 0; i < n; i++ {
		a.set(i, i, complex(real(a.at(i, i)), 0))
		for j := 0; j < i; j++ {
			a.set(j, i, cmplx.Conj(a.at(i, j)))
		}
	}

	offNorm := func() float64 {
		var sum float64
		for i := 0; i < n; i++ {
			for j := 0; j < i; j++ {
				sum += math.Pow(cmplx.Abs(a.at(i, j)), 2)
			}
		}
		return math.Sqrt(sum)
	}
	norm := a.frobeniusNorm()
	const maxSweeps = 64
	var converged bool
	for sweep := 0; sweep < maxSweeps; sweep++ {
		if offNorm() <= epsilon*math.Max(norm, safmin) {
			converged = true
			break
		}
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				apq := a.at(p, q)
				if cmplx.Abs(apq) <= epsilon*norm/float64(n) {
					continue
				}
				app, aqq := real(a.at(p, p)), real(a.at(q, q))
				phase := apq / complex(cmplx.Abs(apq), 0)
				tau := (aqq - app) / (2 * cmplx.Abs(apq))
				t := 1.0
				if tau != 0 {
					t = math.Copysign(1, tau) / (math.Abs(tau) + math.Sqrt(1+tau*tau))
				}
				c := 1 / math.Sqrt(1+t*t)
				s := complex(t*c, 0) * phase

				rotateHermitian(a, p, q, c, s)
				rotateColumns(v, p, q, c, s)
			}
		}
	}
	if !converged && offNorm() > 1e3*epsilon*math.Max(norm, safmin) {
		return nil, nil, errors.Wrap(ErrNotConverged, "jacobi")
	}

	vals := make([]complex128, n)
	for i := range vals {
		vals[i] = complex(real(a.at(i, i)), 0)
	}
	sortEigenPairs(vals, v, compareReal)
	out := make([]float64, n)
	for i, x := range vals {
		out[i] = real(x)
	}
	return out, v, nil
}

// rotateHermitian applies the similarity transform J^H·A·J on the (p, q)
// plane, with J[p][p] = J[q][q] = c, J[p][q] = s, J[q][p] = -conj(s).
func rotateHermitian(a *zmat, p, q int, c float64, s complex128) {
	n := a.rows
	for k := 0; k < n; k++ {
		akp, akq := a.at(k, p), a.at(k, q)
		a.set(k, p, complex(c, 0)*akp-cmplx.Conj(s)*akq)
		a.set(k, q, s*akp+complex(c, 0)*akq)
	}
	for k := 0; k < n; k++ {
		apk, aqk := a.at(p, k), a.at(q, k)
		a.set(p, k, complex(c, 0)*apk-s*aqk)
		a.set(q, k, cmplx.Conj(s)*apk+complex(c, 0)*aqk)
	}
	a.set(p, p, complex(real(a.at(p, p)), 0))
	a.set(q, q, complex(real(a.at(q, q)), 0))
}

func rotateColumns(v *zmat, p, q int, c float64, s complex128) {
	for k := 0; k < v.rows; k++ {
		vkp, vkq := v.at(k, p), v.at(k, q)
		v.set(k, p, complex(c, 0)*vkp-cmplx.Conj(s)*vkq)
		v.set(k, q, s*vkp+complex(c, 0)*vkq)
	}
}
