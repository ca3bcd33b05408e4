package linalg

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"gonum.org/v1/gonum/blas"

	"github.com/quvec/tensornet/tensor"
)

// EigType selects which eigenvalues an iterative solver targets.
type EigType int

const (
	// LargestMagnitude targets the eigenvalues of largest |lambda|.
	LargestMagnitude EigType = iota
	// SmallestMagnitude targets the eigenvalues of smallest |lambda|.
	SmallestMagnitude
	// LargestReal targets the eigenvalues of largest real part.
	LargestReal
	// SmallestReal targets the eigenvalues of smallest real part.
	SmallestReal
	// LargestImag targets the eigenvalues of largest imaginary part.
	LargestImag
	// SmallestImag targets the eigenvalues of smallest imaginary part.
	SmallestImag
)

// typeKey maps an eigenvalue to its sort key; wanted eigenvalues have the
// smallest keys, and results are reported ascending by key.
func typeKey(typ EigType, v complex128) float64 {
	switch typ {
	case LargestMagnitude:
		return -cmplx.Abs(v)
	case SmallestMagnitude:
		return cmplx.Abs(v)
	case LargestReal:
		return -real(v)
	case SmallestReal:
		return real(v)
	case LargestImag:
		return -imag(v)
	default:
		return imag(v)
	}
}

// Method selects the default eigensolver backend.
type Method int

const (
	// ArnoldiMethod uses the iterative Krylov solver above the small-size
	// threshold.
	ArnoldiMethod Method = iota
	// DenseMethod always routes through the dense eigendecomposition.
	DenseMethod
)

// defaultEigsMethod is process-wide configuration; see tensor.Flags for
// the thread-safety caveats.
var defaultEigsMethod = ArnoldiMethod

// SetDefaultEigsMethod overrides the backend used by Eigs.
func SetDefaultEigsMethod(m Method) { defaultEigsMethod = m }

// DefaultEigsMethod returns the configured backend.
func DefaultEigsMethod() Method { return defaultEigsMethod }

// EigsOptions tune the Krylov iteration.
type EigsOptions struct {
	krylovDim     int
	maxIterations int
	tol           float64
	initial       *tensor.CTensor
}

// NewEigsOptions returns the defaults.
func NewEigsOptions() EigsOptions {
	return EigsOptions{krylovDim: -1, maxIterations: 64, tol: 100 * epsilon}
}

// KrylovDim sets the Krylov subspace dimension.
func (o EigsOptions) KrylovDim(v int) EigsOptions { o.krylovDim = v; return o }

// MaxIterations caps the number of restarts.
func (o EigsOptions) MaxIterations(v int) EigsOptions { o.maxIterations = v; return o }

// Tol sets the Ritz residual tolerance.
func (o EigsOptions) Tol(v float64) EigsOptions { o.tol = v; return o }

// Initial sets the start vector.
func (o EigsOptions) Initial(v *tensor.CTensor) EigsOptions { o.initial = v; return o }

// Eigs computes k eigenpairs of a square matrix, selected by type. The
// output is always complex, sorted ascending by the type key. The
// converged flag reports whether the iteration met its tolerance; a
// best-effort result is returned either way.
//
// For n <= 4 the Arnoldi provider is bypassed and the dense solver is
// used: the iterative solver is known to produce wrong answers on
// trivially small matrices, and the dense path is cheaper there anyway.
func Eigs[T tensor.Element](a *tensor.Tensor[T], typ EigType, k int, options ...EigsOptions) (*tensor.CTensor, *tensor.CTensor, bool, error) {
	n := squareSize(a)
	checkNeig(n, k)
	az := toCTensor(a)
	if n <= 4 || defaultEigsMethod == DenseMethod {
		vals, vecs, err := denseSelect(az, typ, k)
		if err != nil {
			return nil, nil, false, errors.Wrap(err, "")
		}
		return vals, vecs, true, nil
	}
	mul := func(x *tensor.CTensor) *tensor.CTensor { return tensor.Mmult(az, x) }
	return EigsMap(n, mul, typ, k, options...)
}

// EigsMap computes k eigenpairs of the linear map given by apply, acting
// on vectors of length n. This is the reverse-communication form: the
// solver calls apply for every matrix-vector product it needs.
func EigsMap(n int, apply func(*tensor.CTensor) *tensor.CTensor, typ EigType, k int, options ...EigsOptions) (*tensor.CTensor, *tensor.CTensor, bool, error) {
	checkNeig(n, k)
	opt := NewEigsOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if n <= 4 {
		az := materialize(n, apply)
		vals, vecs, err := denseSelect(az, typ, k)
		if err != nil {
			return nil, nil, false, errors.Wrap(err, "")
		}
		return vals, vecs, true, nil
	}
	if opt.krylovDim < 0 {
		opt.krylovDim = max(2*k+1, 20)
	}
	m := min(n, opt.krylovDim)

	v0 := opt.initial
	if v0 == nil {
		v0 = randomVector(n)
	}
	solver := arnoldi{n: n, m: m, apply: apply, typ: typ, k: k, tol: opt.tol}
	return solver.run(v0, opt.maxIterations)
}

func checkNeig(n, k int) {
	if k <= 0 || k > n {
		panic(errors.Wrap(tensor.ErrIndexOutOfBounds,
			fmt.Sprintf("%d eigenvalues of a %d by %d matrix", k, n, n)))
	}
}

func toCTensor[T tensor.Element](a *tensor.Tensor[T]) *tensor.CTensor {
	if c, ok := any(a).(*tensor.CTensor); ok {
		return c.Share()
	}
	return tensor.ToComplex(any(a).(*tensor.RTensor))
}

func materialize(n int, apply func(*tensor.CTensor) *tensor.CTensor) *tensor.CTensor {
	out := tensor.New[complex128](n, n)
	od := out.MutableData()
	for j := 0; j < n; j++ {
		e := tensor.New[complex128](n)
		e.Set(1, j)
		col := apply(e)
		cd := col.RawData()
		copy(od[j*n:(j+1)*n], cd)
	}
	return out
}

func denseSelect(a *tensor.CTensor, typ EigType, k int) (*tensor.CTensor, *tensor.CTensor, error) {
	vals, vecs, err := Eig(a)
	if err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	n := vals.Size()
	ndx := make([]int, n)
	for i := range ndx {
		ndx[i] = i
	}
	vd := vals.RawData()
	for i := 1; i < n; i++ {
		for j := i; j > 0 && typeKey(typ, vd[ndx[j-1]]) > typeKey(typ, vd[ndx[j]]); j-- {
			ndx[j-1], ndx[j] = ndx[j], ndx[j-1]
		}
	}
	selVals := tensor.New[complex128](k)
	selVecs := tensor.New[complex128](n, k)
	outVals, outVecs := selVals.MutableData(), selVecs.MutableData()
	ved := vecs.RawData()
	for to := 0; to < k; to++ {
		from := ndx[to]
		outVals[to] = vd[from]
		copy(outVecs[to*n:(to+1)*n], ved[from*n:(from+1)*n])
	}
	return selVals, selVecs, nil
}

func randomVector(n int) *tensor.CTensor {
	v := tensor.Random[complex128](n)
	v = tensor.AddScalar(v, complex(-0.5, -0.5))
	norm := tensor.Norm2(v)
	return tensor.MulScalar(v, complex(1/norm, 0))
}

// arnoldi drives the explicitly restarted Arnoldi iteration with full
// reorthogonalization, following the ARPACK stopping criterion on the
// Ritz residual estimates.
type arnoldi struct {
	n, m  int
	k     int
	typ   EigType
	tol   float64
	apply func(*tensor.CTensor) *tensor.CTensor
}

func (s *arnoldi) run(v0 *tensor.CTensor, maxIter int) (*tensor.CTensor, *tensor.CTensor, bool, error) {
	var bestVals *tensor.CTensor
	var bestVecs *tensor.CTensor
	for iter := 0; iter < maxIter; iter++ {
		v := newZmat(s.n, s.m+1)
		h := newZmat(s.m+1, s.m)
		setColumn(v, 0, v0)

		for i := 0; i < s.m; i++ {
			w := s.apply(columnTensor(v, i))
			wd := w.RawData()
			// Gram-Schmidt against the basis so far, with one
			// reorthogonalization pass.
			work := make([]complex128, s.n)
			copy(work, wd)
			for pass := 0; pass < 2; pass++ {
				for j := 0; j <= i; j++ {
					var dot complex128
					for r := 0; r < s.n; r++ {
						dot += cmplx.Conj(v.at(r, j)) * work[r]
					}
					h.set(j, i, h.at(j, i)+dot)
					for r := 0; r < s.n; r++ {
						work[r] -= dot * v.at(r, j)
					}
				}
			}
			norm := normSlice(work)
			h.set(i+1, i, complex(norm, 0))
			if norm < epsilon {
				// The Krylov space closed early; the tiny residual was
				// already recorded, continue with a fresh direction.
				fresh := randomVector(s.n)
				fd := fresh.RawData()
				copy(work, fd)
				for j := 0; j <= i; j++ {
					var dot complex128
					for r := 0; r < s.n; r++ {
						dot += cmplx.Conj(v.at(r, j)) * work[r]
					}
					for r := 0; r < s.n; r++ {
						work[r] -= dot * v.at(r, j)
					}
				}
				norm = normSlice(work)
			}
			for r := 0; r < s.n; r++ {
				v.set(r, i+1, work[r]/complex(norm, 0))
			}
		}

		hm := h.slice(0, s.m, 0, s.m)
		ritzVals, ritzVecs, err := eigZ(hm.clone())
		if err != nil {
			return nil, nil, false, errors.Wrap(err, "")
		}
		ndx := make([]int, len(ritzVals))
		for i := range ndx {
			ndx[i] = i
		}
		for i := 1; i < len(ndx); i++ {
			for j := i; j > 0 && typeKey(s.typ, ritzVals[ndx[j-1]]) > typeKey(s.typ, ritzVals[ndx[j]]); j-- {
				ndx[j-1], ndx[j] = ndx[j], ndx[j-1]
			}
		}

		residNorm := cmplx.Abs(h.at(s.m, s.m-1))
		converged := true
		for t := 0; t < s.k; t++ {
			i := ndx[t]
			resid := residNorm * cmplx.Abs(ritzVecs.at(s.m-1, i))
			if resid > s.tol*max(1, cmplx.Abs(ritzVals[i])) {
				converged = false
				break
			}
		}

		vals := tensor.New[complex128](s.k)
		vd := vals.MutableData()
		y := newZmat(s.m, s.k)
		for t := 0; t < s.k; t++ {
			i := ndx[t]
			vd[t] = ritzVals[i]
			for r := 0; r < s.m; r++ {
				y.set(r, t, ritzVecs.at(r, i))
			}
		}
		x := zmul(blas.NoTrans, blas.NoTrans, v.slice(0, s.n, 0, s.m), y)
		for j := 0; j < s.k; j++ {
			if norm := x.columnNorm2(j); norm > 0 {
				x.scaleColumn(j, complex(1/norm, 0))
			}
		}
		vecs := zmatToTensor[complex128](x)
		bestVals, bestVecs = vals, vecs

		if converged {
			return vals, vecs, true, nil
		}
		// Explicit restart from the combination of the wanted Ritz
		// vectors.
		v0 = restartVector(x)
	}
	return bestVals, bestVecs, false, nil
}

func setColumn(v *zmat, j int, x *tensor.CTensor) {
	xd := x.RawData()
	for i := 0; i < v.rows; i++ {
		v.set(i, j, xd[i])
	}
}

func columnTensor(v *zmat, j int) *tensor.CTensor {
	out := tensor.New[complex128](v.rows)
	od := out.MutableData()
	for i := 0; i < v.rows; i++ {
		od[i] = v.at(i, j)
	}
	return out
}

func normSlice(v []complex128) float64 {
	var sum float64
	for _, x := range v {
		sum += real(x)*real(x) + imag(x)*imag(x)
	}
	return math.Sqrt(sum)
}

func restartVector(x *zmat) *tensor.CTensor {
	out := tensor.New[complex128](x.rows)
	od := out.MutableData()
	for j := 0; j < x.cols; j++ {
		f := complex(1/float64(j+1), 0)
		for i := 0; i < x.rows; i++ {
			od[i] += f * x.at(i, j)
		}
	}
	norm := tensor.Norm2(out)
	if norm == 0 {
		return randomVector(x.rows)
	}
	return tensor.MulScalar(out, complex(1/norm, 0))
}
