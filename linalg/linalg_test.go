package linalg

import (
	"fmt"
	"math"
	"math/cmplx"
	"testing"

	"github.com/quvec/tensornet/tensor"
)

func reconstruct[T tensor.Element](u *tensor.Tensor[T], s *tensor.RTensor, vh *tensor.Tensor[T]) *tensor.Tensor[T] {
	k := s.Size()
	uk := u
	if u.Dimension(1) != k {
		uk = tensor.ChangeDimension(u, 1, k)
	}
	sv := make([]T, k)
	for i := range sv {
		sv[i] = fromComplex[T](complex(s.At(i), 0))
	}
	scaled := tensor.Scale(uk, 1, tensor.FromSlice(sv, k))
	vk := vh
	if vh.Dimension(0) != k {
		vk = tensor.ChangeDimension(vh, 0, k)
	}
	return tensor.Mmult(scaled, vk)
}

func TestSVDReal(t *testing.T) {
	t.Parallel()
	a := tensor.T2([][]float64{{1, 0, 0}, {0, 2, 0}})
	u, s, vh, err := SVD(a, true)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if s.Size() != 2 || math.Abs(s.At(0)-2) > 1e-14 || math.Abs(s.At(1)-1) > 1e-14 {
		t.Fatalf("%v", s.RawData())
	}
	if err := reconstruct(u, s, vh).Equal(a, 1e-13); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestSVDProperties(t *testing.T) {
	t.Parallel()
	type testcase struct {
		m, n int
		econ bool
	}
	tests := []testcase{
		{4, 4, true}, {6, 3, true}, {3, 6, true}, {5, 5, false}, {2, 7, false},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("real/%d", i), func(t *testing.T) {
			t.Parallel()
			a := tensor.Random[float64](test.m, test.n)
			u, s, vh, err := SVD(a, test.econ)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			checkSVD(t, a, u, s, vh)
		})
		t.Run(fmt.Sprintf("complex/%d", i), func(t *testing.T) {
			t.Parallel()
			a := tensor.Random[complex128](test.m, test.n)
			u, s, vh, err := SVD(a, test.econ)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			checkSVD(t, a, u, s, vh)
		})
	}
}

func checkSVD[T tensor.Element](t *testing.T, a *tensor.Tensor[T], u *tensor.Tensor[T], s *tensor.RTensor, vh *tensor.Tensor[T]) {
	t.Helper()
	m, n := a.Dimension(0), a.Dimension(1)
	sd := s.RawData()
	for i, v := range sd {
		if v < 0 {
			t.Fatalf("negative singular value %v", v)
		}
		if i > 0 && sd[i] > sd[i-1]+1e-13 {
			t.Fatalf("singular values not sorted: %v", sd)
		}
	}
	tol := 10 * tensor.Epsilon * float64(max(m, n)) * math.Max(sd[0], 1)
	diff := tensor.Sub(a, reconstruct(u, s, vh))
	if norm := tensor.Norm2(diff); norm > math.Max(tol, 1e-11) {
		t.Fatalf("reconstruction error %v", norm)
	}
}

func TestEigSymDiagonal(t *testing.T) {
	t.Parallel()
	a := tensor.Diag(tensor.T1([]float64{3, 1, 2}), 0)
	vals, vecs, err := EigSym(a)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := []float64{1, 2, 3}
	for i, w := range want {
		if math.Abs(vals.At(i)-w) > 1e-13 {
			t.Fatalf("%v", vals.RawData())
		}
	}
	// Eigenvectors of a diagonal matrix form a permutation matrix.
	for j := 0; j < 3; j++ {
		ones := 0
		for i := 0; i < 3; i++ {
			v := math.Abs(vecs.At(i, j))
			switch {
			case v > 1-1e-12:
				ones++
			case v > 1e-12:
				t.Fatalf("%d %d %v", i, j, v)
			}
		}
		if ones != 1 {
			t.Fatalf("column %d", j)
		}
	}
}

func TestEigSymHermitian(t *testing.T) {
	t.Parallel()
	// Random Hermitian matrix through A + Aᴴ.
	r := tensor.Random[complex128](5, 5)
	a := tensor.MulScalar(tensor.Add(r, tensor.Adjoint(r)), 0.5)
	vals, vecs, err := EigSym(a)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	// A·V == V·diag(vals).
	av := tensor.Mmult(a, vecs)
	vals64 := make([]complex128, vals.Size())
	for i := range vals64 {
		vals64[i] = complex(vals.At(i), 0)
	}
	vd := tensor.Scale(vecs, 1, tensor.FromSlice(vals64, len(vals64)))
	if err := av.Equal(vd, 1e-10); err != nil {
		t.Fatalf("%+v", err)
	}
	for i := 1; i < vals.Size(); i++ {
		if vals.At(i) < vals.At(i-1)-1e-12 {
			t.Fatalf("%v", vals.RawData())
		}
	}
}

func TestEigGeneral(t *testing.T) {
	t.Parallel()
	// A real matrix with a complex conjugate eigenvalue pair.
	a := tensor.T2([][]float64{{0, -1}, {1, 0}})
	vals, vecs, err := Eig(a)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cmplx.Abs(vals.At(0)-(-1i)) > 1e-12 && cmplx.Abs(vals.At(0)-1i) > 1e-12 {
		t.Fatalf("%v", vals.RawData())
	}
	checkEigPairs(t, tensor.ToComplex(a), vals, vecs, 1e-10)

	z := tensor.Random[complex128](6, 6)
	vals, vecs, err = Eig(z)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	checkEigPairs(t, z, vals, vecs, 1e-8)
}

func checkEigPairs(t *testing.T, a *tensor.CTensor, vals, vecs *tensor.CTensor, tol float64) {
	t.Helper()
	n := vals.Size()
	for i := 0; i < n; i++ {
		v := vecs.Slice(tensor.Full(), tensor.Only(i))
		av := tensor.Mmult(a, v)
		lv := tensor.MulScalar(v, vals.At(i))
		if err := av.Equal(lv, tol*math.Max(1, cmplx.Abs(vals.At(i)))); err != nil {
			t.Fatalf("pair %d: %+v", i, err)
		}
	}
}

func TestSolve(t *testing.T) {
	t.Parallel()
	a := tensor.Random[float64](5, 5)
	// Diagonal dominance keeps the system well conditioned.
	for i := 0; i < 5; i++ {
		a.Set(a.At(i, i)+5, i, i)
	}
	b := tensor.Random[float64](5, 2)
	x, err := Solve(a, b)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := tensor.Mmult(a, x).Equal(b, 1e-10); err != nil {
		t.Fatalf("%+v", err)
	}

	z := tensor.Random[complex128](4, 4)
	for i := 0; i < 4; i++ {
		z.Set(z.At(i, i)+5, i, i)
	}
	bz := tensor.Random[complex128](4)
	xz, err := Solve(z, bz)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := tensor.Mmult(z, xz).Equal(bz, 1e-10); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestSolveSingular(t *testing.T) {
	t.Parallel()
	a := tensor.Zeros[complex128](3, 3)
	a.Set(1, 0, 0)
	b := tensor.Ones[complex128](3)
	if _, err := Solve(a, b); err == nil {
		t.Fatalf("singular solve should fail")
	}
}

func TestExpm(t *testing.T) {
	t.Parallel()
	// The exponential of a diagonal matrix is the elementwise
	// exponential.
	d := tensor.Diag(tensor.T1([]float64{1, -2, 0.5}), 0)
	e, err := Expm(d)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for i, v := range []float64{1, -2, 0.5} {
		if math.Abs(e.At(i, i)-math.Exp(v)) > 1e-12*math.Exp(v)+1e-13 {
			t.Fatalf("%d %v", i, e.At(i, i))
		}
	}

	// expm(0) is the identity.
	z, err := Expm(tensor.Zeros[complex128](3, 3))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := z.Equal(tensor.Eye[complex128](3), 1e-14); err != nil {
		t.Fatalf("%+v", err)
	}

	// Commuting arguments factorize.
	a := tensor.Diag(tensor.T1([]complex128{1i, -0.3, 0.2 + 0.1i}), 0)
	b := tensor.MulScalar(a, 0.7)
	eab, err := Expm(tensor.Add(a, b))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	ea, err := Expm(a)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	eb, err := Expm(b)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := eab.Equal(tensor.Mmult(ea, eb), 1e-12); err != nil {
		t.Fatalf("%+v", err)
	}

	// A unitary generated by a Hermitian matrix.
	r := tensor.Random[complex128](4, 4)
	h := tensor.MulScalar(tensor.Add(r, tensor.Adjoint(r)), 0.5)
	u, err := Expm(tensor.MulScalar(h, -1i))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	uhu := tensor.Mmult(tensor.Adjoint(u), u)
	if err := uhu.Equal(tensor.Eye[complex128](4), 1e-11); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestEigsSmallSizeBypass(t *testing.T) {
	t.Parallel()
	// For n <= 4 the iterative solver must agree exactly with the dense
	// decomposition, for every selection type.
	for n := 1; n <= 4; n++ {
		a := tensor.Random[complex128](n, n)
		dense, _, err := Eig(a)
		if err != nil {
			t.Fatalf("%+v", err)
		}
		for _, typ := range []EigType{LargestMagnitude, SmallestMagnitude, LargestReal, SmallestReal, LargestImag, SmallestImag} {
			vals, _, converged, err := Eigs(a, typ, n)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if !converged {
				t.Fatalf("bypass is always converged")
			}
			// Same multiset of eigenvalues.
			for i := 0; i < n; i++ {
				found := false
				for j := 0; j < n; j++ {
					if cmplx.Abs(vals.At(i)-dense.At(j)) < 1e-10 {
						found = true
						break
					}
				}
				if !found {
					t.Fatalf("n=%d typ=%d %v %v", n, typ, vals.RawData(), dense.RawData())
				}
			}
		}
	}
}

func TestEigsLargeHermitian(t *testing.T) {
	t.Parallel()
	// A diagonal matrix with known extremes.
	n := 12
	d := tensor.New[complex128](n)
	for i := 0; i < n; i++ {
		d.Set(complex(float64(i+1), 0), i)
	}
	a := tensor.Diag(d, 0)

	vals, vecs, converged, err := Eigs(a, LargestMagnitude, 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !converged {
		t.Fatalf("not converged")
	}
	if cmplx.Abs(vals.At(0)-complex(float64(n), 0)) > 1e-8 {
		t.Fatalf("%v", vals.RawData())
	}
	checkEigPairs(t, a, vals, vecs, 1e-7)

	vals, _, converged, err = Eigs(a, SmallestReal, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !converged {
		t.Fatalf("not converged")
	}
	if cmplx.Abs(vals.At(0)-1) > 1e-7 {
		t.Fatalf("%v", vals.RawData())
	}
}

func TestCGS(t *testing.T) {
	t.Parallel()
	a := tensor.Random[complex128](6, 6)
	for i := 0; i < 6; i++ {
		a.Set(a.At(i, i)+6, i, i)
	}
	b := tensor.Random[complex128](6)
	apply := func(x *tensor.CTensor) *tensor.CTensor { return tensor.Mmult(a, x) }
	x, converged := CGS(apply, b, 200, 1e-12)
	if !converged {
		t.Fatalf("not converged")
	}
	if err := tensor.Mmult(a, x).Equal(b, 1e-9); err != nil {
		t.Fatalf("%+v", err)
	}

	// The cap is reported as a flag, not an error.
	_, converged = CGS(apply, b, 1, 1e-15)
	if converged {
		t.Fatalf("one iteration cannot converge to 1e-15")
	}
}

func TestSolveWithSVD(t *testing.T) {
	t.Parallel()
	a := tensor.Random[complex128](4, 4)
	for i := 0; i < 4; i++ {
		a.Set(a.At(i, i)+4, i, i)
	}
	b := tensor.Random[complex128](4, 4)
	x, err := SolveWithSVD(a, b)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := tensor.Mmult(a, x).Equal(b, 1e-9); err != nil {
		t.Fatalf("%+v", err)
	}
}
