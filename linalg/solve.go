package linalg

import (
	"math/cmplx"

	"github.com/pkg/errors"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/mat"

	"github.com/quvec/tensornet/tensor"
)

// Solve returns the solution of a·x = b, where b is a vector or a matrix
// of right hand sides. Singular systems report ErrSingularMatrix.
func Solve[T tensor.Element](a, b *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	n := squareSize(a)
	vector := b.Rank() == 1
	if b.Dimension(0) != n {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "solve"))
	}
	if isReal[T]() {
		out, err := solveReal(a, b, n, vector)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		return out, nil
	}

	bm := b
	if vector {
		bm = tensor.Reshape(b, n, 1)
	}
	x, err := solveQR(tensorToZmat(a), tensorToZmat(bm))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	out := zmatToTensor[T](x)
	if vector {
		out = tensor.Reshape(out, n)
	}
	return out, nil
}

func solveReal[T tensor.Element](a, b *tensor.Tensor[T], n int, vector bool) (*tensor.Tensor[T], error) {
	ad := a.RawData()
	dense := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dense.Set(i, j, realOfElem(ad[i+n*j]))
		}
	}
	cols := 1
	if !vector {
		cols = b.Dimension(1)
	}
	rhs := mat.NewDense(n, cols, nil)
	bd := b.RawData()
	for j := 0; j < cols; j++ {
		for i := 0; i < n; i++ {
			rhs.Set(i, j, realOfElem(bd[i+n*j]))
		}
	}
	var lu mat.LU
	lu.Factorize(dense)
	var x mat.Dense
	if err := lu.SolveTo(&x, false, rhs); err != nil {
		return nil, errors.Wrap(ErrSingularMatrix, err.Error())
	}
	var out *tensor.Tensor[T]
	if vector {
		out = tensor.New[T](n)
	} else {
		out = tensor.New[T](n, cols)
	}
	od := out.MutableData()
	for j := 0; j < cols; j++ {
		for i := 0; i < n; i++ {
			od[i+n*j] = fromComplex[T](complex(x.At(i, j), 0))
		}
	}
	return out, nil
}

// solveQR solves through a Householder QR factorization followed by back
// substitution.
func solveQR(a, b *zmat) (*zmat, error) {
	n := a.rows
	q := qrDecompose(a)
	// Detect singularity from the triangular diagonal.
	var dmax float64
	for i := 0; i < n; i++ {
		if d := cmplx.Abs(a.at(i, i)); d > dmax {
			dmax = d
		}
	}
	for i := 0; i < n; i++ {
		if cmplx.Abs(a.at(i, i)) <= float64(n)*epsilon*dmax {
			return nil, errors.Wrap(ErrSingularMatrix, "")
		}
	}
	qhb := zmul(blas.ConjTrans, blas.NoTrans, q, b)
	x := newZmat(n, b.cols)
	for j := 0; j < b.cols; j++ {
		backSubstitution(x.slice(0, n, j, j+1), a, qhb.slice(0, n, j, j+1), -1, 0)
	}
	return x, nil
}

// SolveWithSVD solves a·x = b through the singular value decomposition,
// regularizing by dropping the singular directions below machine
// precision relative to the largest one. Used where the system may be
// numerically rank deficient, such as the Krylov overlap matrices.
func SolveWithSVD[T tensor.Element](a, b *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	n := squareSize(a)
	vector := b.Rank() == 1
	bm := b
	if vector {
		bm = tensor.Reshape(b, n, 1)
	}
	u, s, vh, err := SVD(a, true)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	// x = V·diag(1/s)·Uᴴ·b over the retained directions.
	uhb := tensor.FoldC(u, 0, bm, 0)
	sd := s.RawData()
	inv := tensor.New[T](len(sd))
	id := inv.MutableData()
	tol := float64(n) * epsilon * sd[0]
	for i, v := range sd {
		if v > tol {
			id[i] = fromComplex[T](complex(1/v, 0))
		}
	}
	scaled := tensor.Scale(uhb, 0, inv)
	x := tensor.FoldC(vh, 0, scaled, 0)
	if vector {
		x = tensor.Reshape(x, n)
	}
	return x, nil
}
