package tensor

import (
	"fmt"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	type testcase struct {
		k, r, want int
	}
	tests := []testcase{
		{0, 3, 0},
		{2, 3, 2},
		{-1, 3, 2},
		{-3, 3, 0},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			if got := Normalize(test.k, test.r); got != test.want {
				t.Fatalf("%d %d", got, test.want)
			}
		})
	}

	for _, bad := range []int{3, -4} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("normalize(%d, 3) should panic", bad)
				}
			}()
			Normalize(bad, 3)
		}()
	}
}

func TestDimensionWraparound(t *testing.T) {
	t.Parallel()
	a := Zeros[float64](2, 3, 4)
	r := a.Rank()
	for k := -r; k < r; k++ {
		if a.Dimension(k) != a.Dimension(Normalize(k, r)) {
			t.Fatalf("axis %d", k)
		}
	}
}

func TestSurround(t *testing.T) {
	t.Parallel()
	d := Dimensions{2, 3, 4, 5}
	l, m, r := Surround(d, 2)
	if l != 6 || m != 4 || r != 5 {
		t.Fatalf("%d %d %d", l, m, r)
	}
	l, m, r = Surround(d, 0)
	if l != 1 || m != 2 || r != 60 {
		t.Fatalf("%d %d %d", l, m, r)
	}
}

func TestCopyOnWrite(t *testing.T) {
	t.Parallel()
	a := Zeros[float64](2, 2)
	a.Set(1, 0, 0)
	b := a.Share()
	if a.Refs() != 2 || b.Refs() != 2 {
		t.Fatalf("%d %d", a.Refs(), b.Refs())
	}

	b.Set(7, 1, 1)
	if a.At(1, 1) != 0 {
		t.Fatalf("mutation of the copy leaked into the original: %v", a.At(1, 1))
	}
	if b.At(1, 1) != 7 || b.At(0, 0) != 1 {
		t.Fatalf("%v %v", b.At(1, 1), b.At(0, 0))
	}
	if a.Refs()+b.Refs() != 2 {
		t.Fatalf("%d %d", a.Refs(), b.Refs())
	}
}

func TestReshapeRoundTrip(t *testing.T) {
	t.Parallel()
	a := Random[complex128](3, 4, 5)
	b := Reshape(Reshape(a, 4, -1), 3, 4, 5)
	if err := a.Equal(b, 0); err != nil {
		t.Fatalf("%+v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("mismatched reshape should panic")
			}
		}()
		Reshape(a, 7, 7)
	}()
}

func TestReshapeSharesBuffer(t *testing.T) {
	t.Parallel()
	a := Zeros[float64](2, 3)
	b := Reshape(a, 6)
	if a.Refs() != 2 || b.Refs() != 2 {
		t.Fatalf("%d %d", a.Refs(), b.Refs())
	}
	// Writing through one handle unshares it; the reshaped handle keeps
	// the old data.
	a.Set(5, 1, 0)
	if b.At(1) != 0 {
		t.Fatalf("%v", b.At(1))
	}
}

func TestStorageOrder(t *testing.T) {
	t.Parallel()
	// The first index varies fastest.
	a := T2([][]float64{{1, 2}, {3, 4}})
	want := []float64{1, 3, 2, 4}
	for i, v := range a.RawData() {
		if v != want[i] {
			t.Fatalf("%d %v %v", i, a.RawData(), want)
		}
	}
}

func TestNestedConstructors(t *testing.T) {
	t.Parallel()
	a := T3([][][]float64{{{1, 2}, {3, 4}}, {{5, 6}, {7, 8}}})
	if a.At(1, 0, 1) != 6 {
		t.Fatalf("%v", a.At(1, 0, 1))
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("ragged rows should panic")
			}
		}()
		T2([][]float64{{1, 2}, {3}})
	}()
}

func TestDeepNestedConstructors(t *testing.T) {
	t.Parallel()
	v := [][][][][]float64{{{{{1, 2}}}}, {{{{3, 4}}}}}
	a := T5(v)
	if !a.Dimensions().Equal(Dimensions{2, 1, 1, 1, 2}) {
		t.Fatalf("%v", a.Dimensions())
	}
	if a.At(1, 0, 0, 0, 1) != 4 {
		t.Fatalf("%v", a.At(1, 0, 0, 0, 1))
	}
	b := T6([][][][][][]float64{v})
	if b.Rank() != 6 || b.At(0, 1, 0, 0, 0, 0) != 3 {
		t.Fatalf("%v", b.Dimensions())
	}
}

func TestRangeSize(t *testing.T) {
	t.Parallel()
	type testcase struct {
		r    Range
		dim  int
		want int
	}
	tests := []testcase{
		{Full(), 5, 5},
		{Span(1, 3), 5, 3},
		{NewRange(0, 4, 2), 5, 3},
		{NewRange(-2, -1, 1), 5, 2},
		{Only(2), 5, 1},
		{List(4, 0, 2), 5, 3},
		{Span(3, 1), 5, 0},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			t.Parallel()
			if got := test.r.Size(test.dim); got != test.want {
				t.Fatalf("%d %d", got, test.want)
			}
		})
	}
}

func TestSliceAndViews(t *testing.T) {
	t.Parallel()
	a := Zeros[float64](3, 4)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			a.Set(float64(10*i+j), i, j)
		}
	}

	b := a.Slice(Span(1, 2), Span(0, 1))
	if !b.Dimensions().Equal(Dimensions{2, 2}) {
		t.Fatalf("%v", b.Dimensions())
	}
	if b.At(0, 0) != 10 || b.At(1, 1) != 21 {
		t.Fatalf("%v %v", b.At(0, 0), b.At(1, 1))
	}

	// Squeezed single-index range drops the axis.
	c := a.Slice(Only(2), Full())
	if !c.Dimensions().Equal(Dimensions{4}) {
		t.Fatalf("%v", c.Dimensions())
	}
	if c.At(3) != 23 {
		t.Fatalf("%v", c.At(3))
	}

	// Writing through ranges.
	a.SetSlice([]Range{Span(0, 1), Only(0)}, T1([]float64{100, 101}))
	if a.At(0, 0) != 100 || a.At(1, 0) != 101 {
		t.Fatalf("%v %v", a.At(0, 0), a.At(1, 0))
	}

	a.FillSlice([]Range{Full(), Only(3)}, -1)
	for i := 0; i < 3; i++ {
		if a.At(i, 3) != -1 {
			t.Fatalf("row %d", i)
		}
	}
}

func TestRangeIteratorContiguous(t *testing.T) {
	t.Parallel()
	it, dims := newRangeIterator([]Range{Full(), Span(1, 2)}, Dimensions{3, 4})
	if !dims.Equal(Dimensions{3, 2}) {
		t.Fatalf("%v", dims)
	}
	if !it.Contiguous() || it.BlockSize() != 3 {
		t.Fatalf("%v %d", it.Contiguous(), it.BlockSize())
	}
	want := []int{3, 6}
	for _, w := range want {
		got, ok := it.NextBlock()
		if !ok || got != w {
			t.Fatalf("%d %d %v", got, w, ok)
		}
	}
	if _, ok := it.NextBlock(); ok {
		t.Fatalf("iterator should be exhausted")
	}
}

func TestElementwiseArithmetic(t *testing.T) {
	t.Parallel()
	a := T1([]float64{1, 2, 3})
	b := T1([]float64{4, 5, 6})
	if got := Add(a, b).RawData(); got[0] != 5 || got[2] != 9 {
		t.Fatalf("%v", got)
	}
	if got := Mul(a, b).RawData(); got[1] != 10 {
		t.Fatalf("%v", got)
	}
	if got := Neg(a).RawData(); got[0] != -1 {
		t.Fatalf("%v", got)
	}
	if got := MulScalar(a, 2).RawData(); got[2] != 6 {
		t.Fatalf("%v", got)
	}
	if !Less(a, b).All() {
		t.Fatalf("1,2,3 < 4,5,6")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("shape mismatch should panic")
			}
		}()
		Add(a, T1([]float64{1}))
	}()
}

func TestComplexHelpers(t *testing.T) {
	t.Parallel()
	re := T1([]float64{1, 2})
	im := T1([]float64{3, 4})
	c := ToComplex(re, im)
	if c.At(0) != complex(1, 3) {
		t.Fatalf("%v", c.At(0))
	}
	if got := Real(c).At(1); got != 2 {
		t.Fatalf("%v", got)
	}
	if got := Imag(c).At(1); got != 4 {
		t.Fatalf("%v", got)
	}
	if got := Conj(c).At(0); got != complex(1, -3) {
		t.Fatalf("%v", got)
	}
	if got := Abs(c).At(0); got*got-10 > 1e-12 {
		t.Fatalf("%v", got)
	}
}

func TestFlags(t *testing.T) {
	var f Flags
	key := f.CreateKey(1.5)
	if f.Get(key) != 1.5 {
		t.Fatalf("%v", f.Get(key))
	}
	f.Set(key, 2.5)
	if f.Get(key) != 2.5 {
		t.Fatalf("%v", f.Get(key))
	}
}
