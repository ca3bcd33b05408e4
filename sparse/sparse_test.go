package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quvec/tensornet/tensor"
)

func denseRand(rows, cols int, density float64) *tensor.RTensor {
	return ToDense(Random[float64](rows, cols, density))
}

func TestFromTriplets(t *testing.T) {
	t.Parallel()
	entries := []Triplet[float64]{
		{Row: 1, Col: 1, Value: 3},
		{Row: 0, Col: 0, Value: 1},
		{Row: 0, Col: 2, Value: 0}, // dropped
		{Row: 1, Col: 1, Value: 5}, // later duplicate wins
	}
	m := FromTriplets(entries, -1, -1)
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, 2, m.NNZ())
	assert.Equal(t, 1.0, m.At(0, 0))
	assert.Equal(t, 5.0, m.At(1, 1))
	assert.Equal(t, 0.0, m.At(0, 2))
}

func TestDenseRoundTrip(t *testing.T) {
	t.Parallel()
	d := denseRand(5, 7, 0.3)
	require.NoError(t, ToDense(FromDense(d)).Equal(d, 0))

	s := FromDense(d)
	sum := Add(s, Neg(s))
	assert.Equal(t, 0, sum.NNZ())
}

func TestInvariants(t *testing.T) {
	t.Parallel()
	m := Random[float64](6, 6, 0.4)
	check := func(m *Matrix[float64]) {
		assert.Equal(t, m.NNZ(), m.rowStart[m.rows])
		for i := 0; i < m.rows; i++ {
			assert.LessOrEqual(t, m.rowStart[i], m.rowStart[i+1])
			for p := m.rowStart[i] + 1; p < m.rowStart[i+1]; p++ {
				assert.Less(t, m.column[p-1], m.column[p])
			}
		}
		for _, v := range m.data {
			assert.NotZero(t, v)
		}
	}
	check(m)
	check(Add(m, Eye[float64](6)))
	check(Mul(m, m))
	check(Adjoint(m))
	check(Kron(m, Eye[float64](2)))
}

func TestArithmeticMatchesDense(t *testing.T) {
	t.Parallel()
	a := Random[float64](4, 5, 0.5)
	b := Random[float64](4, 5, 0.5)
	da, db := ToDense(a), ToDense(b)

	require.NoError(t, ToDense(Add(a, b)).Equal(tensor.Add(da, db), 1e-14))
	require.NoError(t, ToDense(Sub(a, b)).Equal(tensor.Sub(da, db), 1e-14))
	require.NoError(t, ToDense(Mul(a, b)).Equal(tensor.Mul(da, db), 1e-14))
	require.NoError(t, ToDense(Scale(a, 2)).Equal(tensor.MulScalar(da, 2), 1e-14))
}

func TestMmultDense(t *testing.T) {
	t.Parallel()
	s := FromTriplets([]Triplet[float64]{{Row: 0, Col: 0, Value: 2}, {Row: 1, Col: 1, Value: 3}}, 2, 2)
	x := tensor.Eye[float64](2)
	got := MmultDense(s, x)
	want := tensor.T2([][]float64{{2, 0}, {0, 3}})
	require.NoError(t, got.Equal(want, 0))

	// Both sparse-dense orders agree with the dense product.
	a := Random[float64](3, 4, 0.6)
	d := tensor.Random[float64](4, 5)
	require.NoError(t, MmultDense(a, d).Equal(tensor.Mmult(ToDense(a), d), 1e-13))
	e := tensor.Random[float64](5, 3)
	require.NoError(t, DenseMmult(e, a).Equal(tensor.Mmult(e, ToDense(a)), 1e-13))
}

func TestSparseKron(t *testing.T) {
	t.Parallel()
	a := Random[float64](2, 3, 0.7)
	b := Random[float64](3, 2, 0.7)
	got := ToDense(Kron(a, b))
	want := tensor.Kron(ToDense(a), ToDense(b))
	require.NoError(t, got.Equal(want, 1e-14))
}

func TestAdjoint(t *testing.T) {
	t.Parallel()
	m := Random[complex128](3, 4, 0.5)
	got := ToDense(Adjoint(m))
	want := tensor.Adjoint(ToDense(m))
	require.NoError(t, got.Equal(want, 0))
}

func TestEyeDiag(t *testing.T) {
	t.Parallel()
	e := Eye[float64](3)
	assert.Equal(t, 3, e.NNZ())
	require.NoError(t, ToDense(e).Equal(tensor.Eye[float64](3), 0))

	v := tensor.T1([]float64{1, 2})
	d := Diag(v, -1)
	assert.Equal(t, 1.0, d.At(1, 0))
	assert.Equal(t, 2.0, d.At(2, 1))
}

func TestSparseMmult(t *testing.T) {
	t.Parallel()
	a := Random[float64](4, 6, 0.4)
	b := Random[float64](6, 3, 0.4)
	got := ToDense(Mmult(a, b))
	want := tensor.Mmult(ToDense(a), ToDense(b))
	require.NoError(t, got.Equal(want, 1e-13))
}
