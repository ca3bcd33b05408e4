package itebd

import (
	"math"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/linalg"
	"github.com/quvec/tensornet/tensor"
)

func svdEcon[T tensor.Element](a *tensor.Tensor[T]) (*tensor.Tensor[T], *tensor.RTensor, *tensor.Tensor[T], error) {
	return linalg.SVD(a, true)
}

// CanonicalForm returns the state in the canonical gauge, where both
// lambdas are the Schmidt spectra of their bonds. The unit cell is
// regauged through the dominant left and right eigenvectors of its
// transfer matrix, decomposed by their spectral square roots, and the
// inner bond is restored by one SVD split; the procedure repeats until
// the Schmidt vectors stop moving.
func (p *ITEBD[T]) CanonicalForm() *ITEBD[T] {
	const maxIter = 50
	const tol = 1e-13

	out := p
	for iter := 0; iter < maxIter; iter++ {
		next, delta := out.canonicalStep()
		out = next
		if delta < tol {
			break
		}
	}
	return out.markCanonical(true)
}

// canonicalStep regauges the outer bond (lambdaB) and re-splits the
// cell, returning the movement of the Schmidt vectors.
func (p *ITEBD[T]) canonicalStep() (*ITEBD[T], float64) {
	// Work on the two-site cell Theta(a, i, j, c) = A lA B.
	cell := tensor.Fold(tensor.Scale(p.a, -1, p.la), -1, p.b, 0)
	al := cell.Dimension(0)
	di, dj := cell.Dimension(1), cell.Dimension(2)
	cellM := tensor.Reshape(cell, al, di*dj, cell.Dimension(3))

	lb := p.lb

	// Dominant fixed points of the cell transfer matrix.
	ar := tensor.Scale(cellM, -1, lb)
	alM := tensor.Scale(cellM, 0, lb)
	vr := fixedPoint(ar, true)
	vl := fixedPoint(alM, false)

	x, xi := spectralRoot(vr)
	y, yi := spectralRootLeft(vl)

	// New Schmidt vector of the outer bond from svd(Y lambda X).
	lbz := toZ3(lb)
	ylx := zmulSeq(y, diagZ(lbz), x)
	u, s, vh, err := linalg.SVD(ylx, true)
	if err != nil {
		panic(errors.Wrap(err, "canonical form"))
	}
	sNorm := tensor.DivScalar(s, tensor.Norm2(s))
	keep := sNorm.Size()

	// Regauged cell: (VH X^-1) cell (Y^-1 U).
	leftT := tensor.Mmult(vh, xi)
	rightT := tensor.Mmult(yi, u)
	cz := toZ3(cellM)
	cz = tensor.FoldIn(leftT, -1, cz, 0)
	cz = tensor.Fold(cz, -1, rightT, 0)

	// Split the cell with the new outer weights on both sides.
	lNew := tensor.ToComplex(sNorm)
	theta := tensor.Scale(tensor.Scale(cz, 0, lNew), -1, lNew)
	theta = tensor.Reshape(theta, keep*di, dj*keep)
	u2, s2, v2, err := linalg.SVD(theta, true)
	if err != nil {
		panic(errors.Wrap(err, "canonical form"))
	}
	keepIn := linalgKeep(s2)
	if keepIn != s2.Size() {
		u2 = tensor.ChangeDimension(u2, 1, keepIn)
		v2 = tensor.ChangeDimension(v2, 0, keepIn)
		s2 = tensor.ChangeDimension(s2, 0, keepIn)
	}
	s2 = tensor.DivScalar(s2, tensor.Norm2(s2))

	inv := invVector(lNew)
	aNew := tensor.Scale(tensor.Reshape(u2, keep, di, keepIn), 0, inv)
	bNew := tensor.Scale(tensor.Reshape(v2, keepIn, dj, keep), -1, inv)

	laOld, lbOld := p.la, p.lb
	laNew, lbNew := s2, sNorm
	delta := vectorDelta(tensor.Abs(laOld), laNew) + vectorDelta(tensor.Abs(lbOld), lbNew)

	next := New(fromZ3[T](aNew), toElem[T](laNew), fromZ3[T](bNew), toElem[T](lbNew), true)
	return next, delta
}

func linalgKeep(s *tensor.RTensor) int {
	sd := s.RawData()
	if len(sd) == 0 {
		return 0
	}
	tol := float64(len(sd)) * epsilon * sd[0]
	keep := 0
	for _, v := range sd {
		if v > tol {
			keep++
		}
	}
	return max(keep, 1)
}

func vectorDelta(a, b *tensor.RTensor) float64 {
	n := max(a.Size(), b.Size())
	var sum float64
	for i := 0; i < n; i++ {
		var x, y float64
		if i < a.Size() {
			x = a.At(i)
		}
		if i < b.Size() {
			y = b.At(i)
		}
		sum += (x - y) * (x - y)
	}
	return math.Sqrt(sum)
}

// fixedPoint finds the dominant eigen-matrix of the transfer map of the
// combined cell tensor by the power method seeded with the identity.
// The seed keeps the iteration inside the cone of positive matrices,
// which makes the result well defined even when the dominant eigenvalue
// of the transfer matrix is degenerate, as for non-injective states
// like GHZ.
func fixedPoint[T tensor.Element](m *tensor.Tensor[T], right bool) *tensor.CTensor {
	mz := toZ3(m)
	d := mz.Dimension(0)
	if !right {
		d = mz.Dimension(2)
	}
	apply := func(vm *tensor.CTensor) *tensor.CTensor {
		if right {
			// v'(a, a') = sum m(a, I, c) conj(m(a', I, c')) v(c, c').
			t := tensor.Fold(mz, 2, vm, 0)
			t2 := tensor.Reshape(t, mz.Dimension(0), mz.Dimension(1)*d)
			m2 := tensor.Reshape(mz, mz.Dimension(0), mz.Dimension(1)*mz.Dimension(2))
			return tensor.Fold(t2, 1, tensor.Conj(m2), 1)
		}
		// v'(c, c') = sum conj(m(a, I, c)) m(a', I, c') v(a, a').
		t := tensor.Fold(vm, 1, mz, 0)
		t2 := tensor.Reshape(t, d*mz.Dimension(1), mz.Dimension(2))
		m2 := tensor.Reshape(mz, d*mz.Dimension(1), mz.Dimension(2))
		return tensor.Fold(tensor.Conj(m2), 0, t2, 0)
	}

	v := tensor.Eye[complex128](d)
	v = tensor.DivScalar(v, complex(tensor.Norm2(v), 0))
	const maxIter = 500
	for iter := 0; iter < maxIter; iter++ {
		w := apply(v)
		// Hermitize against roundoff drift; the map preserves positivity.
		w = tensor.MulScalar(tensor.Add(w, tensor.Adjoint(w)), 0.5)
		norm := tensor.Norm2(w)
		if norm < epsilon {
			panic(errors.Wrap(linalg.ErrNotConverged, "null transfer matrix"))
		}
		w = tensor.DivScalar(w, complex(norm, 0))
		delta := tensor.Norm2(tensor.Sub(w, v))
		v = w
		if delta < 1e-14 {
			break
		}
	}
	if tr := tensor.Trace(v); absC(tr) > 0 {
		v = tensor.DivScalar(v, tr)
	}
	return v
}

func absC(v complex128) float64 { return math.Hypot(real(v), imag(v)) }

// spectralRoot factors a Hermitian positive matrix as X·Xᴴ and returns
// X with its pseudo-inverse.
func spectralRoot(v *tensor.CTensor) (*tensor.CTensor, *tensor.CTensor) {
	vals, vecs, err := linalg.EigSym(v)
	if err != nil {
		panic(errors.Wrap(err, "spectral root"))
	}
	d := vals.Size()
	root := tensor.New[complex128](d)
	inv := tensor.New[complex128](d)
	rd, id := root.MutableData(), inv.MutableData()
	tol := epsilon * math.Abs(vals.At(d-1))
	for i, x := range vals.RawData() {
		if x > tol {
			r := math.Sqrt(x)
			rd[i] = complex(r, 0)
			id[i] = complex(1/r, 0)
		}
	}
	// X = U sqrt(D); X^-1 = sqrt(D)^-1 Uᴴ.
	x := tensor.Scale(vecs, -1, root)
	xi := tensor.Scale(tensor.Adjoint(vecs), 0, inv)
	return x, xi
}

// spectralRootLeft factors VL = Yᴴ·Y and returns Y with its
// pseudo-inverse.
func spectralRootLeft(v *tensor.CTensor) (*tensor.CTensor, *tensor.CTensor) {
	x, xi := spectralRoot(v)
	// VL = X Xᴴ means Y = Xᴴ, Y^-1 = (Xᴴ)^-1 = (X^-1)ᴴ.
	return tensor.Adjoint(x), tensor.Adjoint(xi)
}

func diagZ(v *tensor.CTensor) *tensor.CTensor { return tensor.Diag(v, 0) }

func zmulSeq(ms ...*tensor.CTensor) *tensor.CTensor {
	out := ms[0]
	for _, m := range ms[1:] {
		out = tensor.Mmult(out, m)
	}
	return out
}

func toZ3[T tensor.Element](t *tensor.Tensor[T]) *tensor.CTensor {
	if c, ok := any(t).(*tensor.CTensor); ok {
		return c.Share()
	}
	return tensor.ToComplex(any(t).(*tensor.RTensor))
}

// fromZ3 narrows a complex tensor back to the element type, fixing the
// global phase so that real states stay real.
func fromZ3[T tensor.Element](t *tensor.CTensor) *tensor.Tensor[T] {
	var zero T
	if _, ok := any(zero).(complex128); ok {
		return any(t.Share()).(*tensor.Tensor[T])
	}
	// Rotate the largest entry onto the real axis before dropping the
	// imaginary parts.
	data := t.RawData()
	var big complex128
	for _, v := range data {
		if absC(v) > absC(big) {
			big = v
		}
	}
	out := t
	if a := absC(big); a > 0 {
		out = tensor.MulScalar(t, complex(a, 0)/big)
	}
	return any(tensor.Real(out)).(*tensor.Tensor[T])
}
