package linalg

import (
	"math/cmplx"

	"github.com/pkg/errors"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/mat"

	"github.com/quvec/tensornet/tensor"
)

// Eig computes the general eigendecomposition of a square matrix. The
// eigenvalues and right eigenvectors are always reported as complex
// tensors, sorted ascending by real part; for real input the complex
// conjugate pairs are reconstructed by the provider so that callers see
// complex output.
func Eig[T tensor.Element](a *tensor.Tensor[T]) (*tensor.CTensor, *tensor.CTensor, error) {
	n := squareSize(a)
	if isReal[T]() {
		return eigReal(a, n)
	}
	vals, vecs, err := eigZ(tensorToZmat(a))
	if err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	sortEigenPairs(vals, vecs, func(x, y complex128) int { return compareReal(x, y) })
	return valsToTensor(vals), zmatToTensor[complex128](vecs), nil
}

func eigReal[T tensor.Element](a *tensor.Tensor[T], n int) (*tensor.CTensor, *tensor.CTensor, error) {
	dense := mat.NewDense(n, n, nil)
	data := a.RawData()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dense.Set(i, j, realOfElem(data[i+n*j]))
		}
	}
	var eig mat.Eigen
	if !eig.Factorize(dense, mat.EigenRight) {
		return nil, nil, errors.Wrap(ErrNotConverged, "eig")
	}
	vals := eig.Values(nil)
	var cvecs mat.CDense
	eig.VectorsTo(&cvecs)

	vecs := newZmat(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			vecs.set(i, j, cvecs.At(i, j))
		}
	}
	sortEigenPairs(vals, vecs, compareReal)
	return valsToTensor(vals), zmatToTensor[complex128](vecs), nil
}

func squareSize[T tensor.Element](a *tensor.Tensor[T]) int {
	n := a.Dimension(0)
	if a.Rank() != 2 || a.Dimension(1) != n {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "square matrix required"))
	}
	return n
}

func realOfElem[T tensor.Element](x T) float64 {
	switch v := any(x).(type) {
	case float64:
		return v
	case complex128:
		return real(v)
	}
	return 0
}

func compareReal(x, y complex128) int {
	switch {
	case real(x) < real(y):
		return -1
	case real(x) > real(y):
		return 1
	case imag(x) < imag(y):
		return -1
	case imag(x) > imag(y):
		return 1
	}
	return 0
}

func valsToTensor(vals []complex128) *tensor.CTensor {
	out := make([]complex128, len(vals))
	copy(out, vals)
	return tensor.FromSlice(out, len(out))
}

// sortEigenPairs reorders eigenvalues and the matching eigenvector
// columns by the given comparison.
func sortEigenPairs(vals []complex128, vecs *zmat, cmp func(x, y complex128) int) {
	ndx := make([]int, len(vals))
	for i := range ndx {
		ndx[i] = i
	}
	// Stable insertion sort keeps degenerate eigenvalues in provider order.
	for i := 1; i < len(ndx); i++ {
		for j := i; j > 0 && cmp(vals[ndx[j-1]], vals[ndx[j]]) > 0; j-- {
			ndx[j-1], ndx[j] = ndx[j], ndx[j-1]
		}
	}
	sorted := make([]complex128, len(vals))
	var svecs *zmat
	if vecs != nil {
		svecs = newZmat(vecs.rows, vecs.cols)
	}
	for to, from := range ndx {
		sorted[to] = vals[from]
		if vecs != nil {
			for i := 0; i < vecs.rows; i++ {
				svecs.set(i, to, vecs.at(i, from))
			}
		}
	}
	copy(vals, sorted)
	if vecs != nil {
		vecs.copyFrom(svecs)
	}
}

// eigZ computes eigenvalues and right eigenvectors of a complex square
// matrix by Hessenberg reduction followed by shifted QR iteration.
func eigZ(a *zmat) ([]complex128, *zmat, error) {
	m := a.rows
	q := newZmat(m, m)
	if m == 0 {
		return nil, q, nil
	}
	hessenberg(a, q)
	if err := triangularize(a, q); err != nil {
		return nil, nil, errors.Wrap(err, "")
	}

	vals := make([]complex128, m)
	for i := range vals {
		vals[i] = a.at(i, i)
	}

	// Back-substitute the eigenvectors of the triangular factor and carry
	// them to the original basis.
	vecs := newZmat(m, m)
	normT := a.frobeniusNorm()
	shifted := a.clone()
	zero := newZmat(m, 1)
	x := newZmat(m, 1)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			shifted.set(j, j, a.at(j, j)-vals[i])
		}
		backSubstitution(x, shifted, zero, i, epsilon*normT)
		for j := 0; j < m; j++ {
			vecs.set(j, i, x.at(j, 0))
		}
	}
	vecs = zmul(blas.NoTrans, blas.NoTrans, q, vecs)
	for j := 0; j < m; j++ {
		if norm := vecs.columnNorm2(j); norm > 0 {
			vecs.scaleColumn(j, complex(1/norm, 0))
		}
	}
	return vals, vecs, nil
}

// triangularize runs the shifted QR iteration on a Hessenberg matrix,
// accumulating the transforms into q.
func triangularize(a, q *zmat) error {
	m := a.rows
	for iter, limit := 0, 40*max(m, 1); ; iter++ {
		if iter > limit {
			return errors.Wrap(ErrNotConverged, "qr iteration")
		}
		p, tail := findUnreducedHessenberg(a)
		if tail == m {
			return nil
		}
		e := m - tail
		shift := wilkinsonsShift(a.slice(p, e, p, e))
		qrStep(a, q, p, e, shift)
	}
}

// qrStep performs one explicit shifted QR step on the active block
// a[p:e, p:e], updating the couplings to the rest of the matrix and the
// accumulated transform.
func qrStep(a, q *zmat, p, e int, shift complex128) {
	m := a.rows
	b := e - p
	block := a.slice(p, e, p, e)

	shifted := block.clone()
	for i := 0; i < b; i++ {
		shifted.set(i, i, shifted.at(i, i)-shift)
	}
	qb := qrDecompose(shifted)

	// block <- R*Q + shift.
	next := zmul(blas.NoTrans, blas.NoTrans, shifted, qb)
	for i := 0; i < b; i++ {
		next.set(i, i, next.at(i, i)+shift)
	}
	block.copyFrom(next)

	if p > 0 {
		top := a.slice(0, p, p, e)
		top.copyFrom(zmul(blas.NoTrans, blas.NoTrans, top, qb))
	}
	if e < m {
		right := a.slice(p, e, e, m)
		right.copyFrom(zmul(blas.ConjTrans, blas.NoTrans, qb, right))
	}
	qcols := q.slice(0, m, p, e)
	qcols.copyFrom(zmul(blas.NoTrans, blas.NoTrans, qcols, qb))
}

// deflate zeroes the negligible subdiagonals.
func deflate(a *zmat) {
	for i := 1; i < a.rows; i++ {
		sd := cmplx.Abs(a.at(i, i-1))
		d := cmplx.Abs(a.at(i, i)) + cmplx.Abs(a.at(i-1, i-1))
		if sd <= epsilon*d {
			a.set(i, i-1, 0)
		}
	}
}

// findUnreducedHessenberg locates the largest active submatrix that is
// still unreduced Hessenberg, returning its start p and the size of the
// converged tail.
func findUnreducedHessenberg(a *zmat) (int, int) {
	m := a.rows
	deflate(a)
	tail := m
	for i := m - 1; i >= 1; i-- {
		if a.at(i, i-1) != 0 {
			tail = m - 1 - i
			break
		}
	}
	p := 0
	for i := m - 1 - tail - 1; i >= 1; i-- {
		if a.at(i, i-1) == 0 {
			p = i
			break
		}
	}
	return p, tail
}

func eig22(a *zmat) (complex128, complex128) {
	tr := a.at(0, 0) + a.at(1, 1)
	det := a.at(0, 0)*a.at(1, 1) - a.at(0, 1)*a.at(1, 0)
	d := cmplx.Sqrt(tr*tr - 4*det)
	return (tr + d) / 2, (tr - d) / 2
}

// wilkinsonsShift picks the eigenvalue of the trailing 2 by 2 block
// closest to the last diagonal entry.
func wilkinsonsShift(a *zmat) complex128 {
	b := a.rows
	if b == 1 {
		return a.at(0, 0)
	}
	l0, l1 := eig22(a.slice(b-2, b, b-2, b))
	last := a.at(b-1, b-1)
	if cmplx.Abs(l0-last) > cmplx.Abs(l1-last) {
		return l1
	}
	return l0
}
