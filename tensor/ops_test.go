package tensor

import (
	"fmt"
	"math"
	"testing"
)

func TestPermuteInvolution(t *testing.T) {
	t.Parallel()
	a := Random[complex128](2, 3, 4, 2)
	r := a.Rank()
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			b := Permute(Permute(a, i, j), i, j)
			if err := a.Equal(b, 0); err != nil {
				t.Fatalf("axes %d %d: %+v", i, j, err)
			}
		}
	}
}

func TestPermuteMatrix(t *testing.T) {
	t.Parallel()
	a := T2([][]float64{{1, 2, 3}, {4, 5, 6}})
	b := Transpose(a)
	if !b.Dimensions().Equal(Dimensions{3, 2}) {
		t.Fatalf("%v", b.Dimensions())
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if a.At(i, j) != b.At(j, i) {
				t.Fatalf("%d %d", i, j)
			}
		}
	}
}

func TestPermuteKernels(t *testing.T) {
	t.Parallel()
	// Exercise each specialized kernel through shapes that select it.
	type testcase struct {
		dims []int
		i, j int
	}
	tests := []testcase{
		{[]int{3, 4}, 0, 1},       // permute12
		{[]int{2, 3, 4}, 1, 2},    // permute23
		{[]int{3, 2, 4}, 0, 2},    // permute13
		{[]int{2, 3, 2, 4}, 1, 3}, // permute24
	}
	for ti, test := range tests {
		t.Run(fmt.Sprintf("%d", ti), func(t *testing.T) {
			t.Parallel()
			a := Random[float64](test.dims...)
			b := Permute(a, test.i, test.j)
			ndx := make([]int, a.Rank())
			for done := false; !done; {
				swapped := make([]int, len(ndx))
				copy(swapped, ndx)
				swapped[test.i], swapped[test.j] = ndx[test.j], ndx[test.i]
				if a.At(ndx...) != b.At(swapped...) {
					t.Fatalf("%v", ndx)
				}
				done = true
				for k := range ndx {
					ndx[k]++
					if ndx[k] < test.dims[k] {
						done = false
						break
					}
					ndx[k] = 0
				}
			}
		})
	}
}

func TestFoldIdentity(t *testing.T) {
	t.Parallel()
	a := Random[float64](3, 4)
	left := Mmult(Eye[float64](3), a)
	right := Mmult(a, Eye[float64](4))
	if err := a.Equal(left, 1e-14); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := a.Equal(right, 1e-14); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestFoldMatchesByHand(t *testing.T) {
	t.Parallel()
	a := T2([][]float64{{1, 2}, {3, 4}})
	b := T2([][]float64{{5, 6}, {7, 8}})
	c := Mmult(a, b)
	want := T2([][]float64{{19, 22}, {43, 50}})
	if err := c.Equal(want, 1e-14); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestFoldGeneral(t *testing.T) {
	t.Parallel()
	// Contract the middle axes of two rank-3 tensors and compare with
	// the naive loop.
	a := Random[float64](2, 3, 4)
	b := Random[float64](5, 3, 2)
	c := Fold(a, 1, b, 1)
	if !c.Dimensions().Equal(Dimensions{2, 4, 5, 2}) {
		t.Fatalf("%v", c.Dimensions())
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 5; k++ {
				for l := 0; l < 2; l++ {
					var want float64
					for x := 0; x < 3; x++ {
						want += a.At(i, x, j) * b.At(k, x, l)
					}
					if math.Abs(c.At(i, j, k, l)-want) > 1e-13 {
						t.Fatalf("%d %d %d %d", i, j, k, l)
					}
				}
			}
		}
	}
}

func TestFoldZeroAxis(t *testing.T) {
	t.Parallel()
	a := Zeros[float64](3, 0)
	b := Zeros[float64](0, 4)
	c := Mmult(a, b)
	if !c.Dimensions().Equal(Dimensions{3, 4}) {
		t.Fatalf("%v", c.Dimensions())
	}
	for _, v := range c.RawData() {
		if v != 0 {
			t.Fatalf("%v", v)
		}
	}
}

func TestFoldC(t *testing.T) {
	t.Parallel()
	a := Random[complex128](3, 3)
	v := Random[complex128](3)
	got := FoldC(a, 0, v, 0)
	want := Mmult(Adjoint(a), v)
	if err := got.Equal(want, 1e-13); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestFoldIn(t *testing.T) {
	t.Parallel()
	op := Random[float64](3, 3)
	a := Random[float64](2, 3, 4)
	got := FoldIn(op, -1, a, 1)
	if !got.Dimensions().Equal(Dimensions{2, 3, 4}) {
		t.Fatalf("%v", got.Dimensions())
	}
	for i := 0; i < 2; i++ {
		for o := 0; o < 3; o++ {
			for r := 0; r < 4; r++ {
				var want float64
				for x := 0; x < 3; x++ {
					want += op.At(o, x) * a.At(i, x, r)
				}
				if math.Abs(got.At(i, o, r)-want) > 1e-13 {
					t.Fatalf("%d %d %d", i, o, r)
				}
			}
		}
	}
}

func TestKronIdentities(t *testing.T) {
	t.Parallel()
	if err := Kron(Eye[float64](2), Eye[float64](3)).Equal(Eye[float64](6), 0); err != nil {
		t.Fatalf("%+v", err)
	}

	a, b := Random[float64](2, 3), Random[float64](3, 2)
	c, d := Random[float64](3, 2), Random[float64](2, 3)
	left := Mmult(Kron(a, b), Kron(c, d))
	right := Kron(Mmult(a, c), Mmult(b, d))
	if err := left.Equal(right, 1e-12); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestPauliAlgebra(t *testing.T) {
	t.Parallel()
	sx := T2([][]complex128{{0, 1}, {1, 0}})
	sz := T2([][]complex128{{1, 0}, {0, -1}})
	sy := MulScalar(Mmult(sx, sz), 1i)

	if err := Mmult(sx, sx).Equal(Eye[complex128](2), 0); err != nil {
		t.Fatalf("%+v", err)
	}
	anti := Add(Mmult(sx, sz), Mmult(sz, sx))
	if err := anti.Equal(Zeros[complex128](2, 2), 0); err != nil {
		t.Fatalf("%+v", err)
	}
	if got := Trace(Kron(sx, sz)); got != 0 {
		t.Fatalf("%v", got)
	}
	if err := Mmult(sy, sy).Equal(Eye[complex128](2), 0); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestKron2Sum(t *testing.T) {
	t.Parallel()
	sx := T2([][]float64{{0, 1}, {1, 0}})
	got := Kron2Sum(sx, sx)
	want := Add(Kron(sx, Eye[float64](2)), Kron(Eye[float64](2), sx))
	if err := got.Equal(want, 0); err != nil {
		t.Fatalf("%+v", err)
	}
}

func TestReductions(t *testing.T) {
	t.Parallel()
	a := T2([][]float64{{1, 2, 3}, {4, 5, 6}})
	if got := Sum(a); got != 21 {
		t.Fatalf("%v", got)
	}
	if got := Mean(a); got != 3.5 {
		t.Fatalf("%v", got)
	}
	if got := Max(a); got != 6 {
		t.Fatalf("%v", got)
	}
	if got := Min(a); got != 1 {
		t.Fatalf("%v", got)
	}

	cols := SumAxis(a, 0)
	if !cols.Dimensions().Equal(Dimensions{3}) {
		t.Fatalf("%v", cols.Dimensions())
	}
	if cols.At(0) != 5 || cols.At(2) != 9 {
		t.Fatalf("%v", cols.RawData())
	}
	rows := SumAxis(a, 1)
	if rows.At(0) != 6 || rows.At(1) != 15 {
		t.Fatalf("%v", rows.RawData())
	}
	if got := MaxAxis(a, 1).At(1); got != 6 {
		t.Fatalf("%v", got)
	}
}

func TestDiagTraces(t *testing.T) {
	t.Parallel()
	v := T1([]float64{1, 2, 3})
	m := Diag(v, 0)
	if m.At(1, 1) != 2 || m.At(0, 1) != 0 {
		t.Fatalf("%v", m)
	}
	up := Diag(v, 1)
	if !up.Dimensions().Equal(Dimensions{3, 4}) || up.At(0, 1) != 1 {
		t.Fatalf("%v", up)
	}
	down := Diag(v, -2)
	if down.At(2, 0) != 1 {
		t.Fatalf("%v", down)
	}

	if got := TakeDiag(m, 0); got.Equal(v, 0) != nil {
		t.Fatalf("%v", got)
	}
	if got := TakeDiag(up, 1); got.Equal(v, 0) != nil {
		t.Fatalf("%v", got)
	}
	if got := Trace(m); got != 6 {
		t.Fatalf("%v", got)
	}

	// Partial trace of an identity pair counts the dimension.
	eye4 := Reshape(Eye[float64](4), 2, 2, 2, 2)
	tr := PartialTrace(eye4, 0, 2)
	// Tracing axes 0 and 2 of the reshaped identity leaves twice the
	// 2 by 2 identity on the remaining pair; the check below covers the
	// shape of the result.
	if !tr.Dimensions().Equal(Dimensions{2, 2}) {
		t.Fatalf("%v", tr.Dimensions())
	}
}

func TestScaleAndChangeDimension(t *testing.T) {
	t.Parallel()
	a := Ones[float64](2, 3)
	v := T1([]float64{1, 2, 3})
	b := Scale(a, 1, v)
	if b.At(0, 0) != 1 || b.At(0, 2) != 3 || b.At(1, 1) != 2 {
		t.Fatalf("%v", b.RawData())
	}
	// The original is untouched.
	if a.At(0, 2) != 1 {
		t.Fatalf("%v", a.At(0, 2))
	}

	c := ChangeDimension(a, 1, 5)
	if !c.Dimensions().Equal(Dimensions{2, 5}) {
		t.Fatalf("%v", c.Dimensions())
	}
	if c.At(0, 2) != 1 || c.At(0, 4) != 0 {
		t.Fatalf("%v", c.RawData())
	}
	d := ChangeDimension(a, 1, 2)
	if !d.Dimensions().Equal(Dimensions{2, 2}) || d.At(1, 1) != 1 {
		t.Fatalf("%v", d)
	}
}

func TestSort(t *testing.T) {
	t.Parallel()
	v := T1([]float64{3, 1, 2})
	if got := Sort(v).RawData(); got[0] != 1 || got[2] != 3 {
		t.Fatalf("%v", got)
	}
	if got := Sort(v, true).RawData(); got[0] != 3 {
		t.Fatalf("%v", got)
	}
	ndx := SortIndices(v)
	if ndx[0] != 1 || ndx[1] != 2 || ndx[2] != 0 {
		t.Fatalf("%v", ndx)
	}

	// Complex values order by real part.
	c := T1([]complex128{2 + 1i, 1 + 5i})
	if got := Sort(c).At(0); got != 1+5i {
		t.Fatalf("%v", got)
	}
}

func TestFFTRoundTrip(t *testing.T) {
	t.Parallel()
	a := Random[complex128](4, 8)
	b := IFFT(FFT(a, 1), 1)
	// Unnormalized transforms scale by the axis length.
	b = DivScalar(b, 8)
	if err := a.Equal(b, 1e-12); err != nil {
		t.Fatalf("%+v", err)
	}

	shifted := FFTShift(a, 1)
	if a.At(0, 0) != shifted.At(0, 4) {
		t.Fatalf("%v %v", a.At(0, 0), shifted.At(0, 4))
	}
}
