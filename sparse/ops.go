package sparse

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/tensor"
)

// Neg returns the elementwise negation.
func Neg[T tensor.Element](m *Matrix[T]) *Matrix[T] {
	out := m.clone()
	for i := range out.data {
		out.data[i] = -out.data[i]
	}
	return out
}

// Scale rescales every entry by k. A zero k empties the matrix.
func Scale[T tensor.Element](m *Matrix[T], k T) *Matrix[T] {
	if k == 0 {
		return New[T](m.rows, m.cols)
	}
	out := m.clone()
	for i := range out.data {
		out.data[i] *= k
	}
	return out
}

func (m *Matrix[T]) clone() *Matrix[T] {
	out := &Matrix[T]{
		rows:     m.rows,
		cols:     m.cols,
		rowStart: make([]int, len(m.rowStart)),
		column:   make([]int, len(m.column)),
		data:     make([]T, len(m.data)),
	}
	copy(out.rowStart, m.rowStart)
	copy(out.column, m.column)
	copy(out.data, m.data)
	return out
}

func checkSameShape[T tensor.Element](a, b *Matrix[T]) {
	if a.rows != b.rows || a.cols != b.cols {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch,
			fmt.Sprintf("%d by %d, %d by %d", a.rows, a.cols, b.rows, b.cols)))
	}
}

// binop merges two matrices of equal shape row by row, walking the sorted
// column cursors of both and keeping only non-zero combined values.
func binop[T tensor.Element](a, b *Matrix[T], f func(x, y T) T) *Matrix[T] {
	checkSameShape(a, b)
	out := New[T](a.rows, a.cols)
	for i := 0; i < a.rows; i++ {
		pa, ea := a.rowStart[i], a.rowStart[i+1]
		pb, eb := b.rowStart[i], b.rowStart[i+1]
		for pa < ea || pb < eb {
			var col int
			var v T
			switch {
			case pb >= eb || (pa < ea && a.column[pa] < b.column[pb]):
				col = a.column[pa]
				var zero T
				v = f(a.data[pa], zero)
				pa++
			case pa >= ea || b.column[pb] < a.column[pa]:
				col = b.column[pb]
				var zero T
				v = f(zero, b.data[pb])
				pb++
			default:
				col = a.column[pa]
				v = f(a.data[pa], b.data[pb])
				pa++
				pb++
			}
			if v != 0 {
				out.column = append(out.column, col)
				out.data = append(out.data, v)
				out.rowStart[i+1]++
			}
		}
	}
	for i := 0; i < out.rows; i++ {
		out.rowStart[i+1] += out.rowStart[i]
	}
	return out
}

// Add returns the elementwise sum.
func Add[T tensor.Element](a, b *Matrix[T]) *Matrix[T] {
	return binop(a, b, func(x, y T) T { return x + y })
}

// Sub returns the elementwise difference.
func Sub[T tensor.Element](a, b *Matrix[T]) *Matrix[T] {
	return binop(a, b, func(x, y T) T { return x - y })
}

// Mul returns the elementwise product.
func Mul[T tensor.Element](a, b *Matrix[T]) *Matrix[T] {
	return binop(a, b, func(x, y T) T { return x * y })
}

// MmultDense multiplies a sparse matrix with a dense tensor contracted on
// its first axis: out[i, ...] accumulates v * x[j, ...] for every stored
// entry (i, j, v).
func MmultDense[T tensor.Element](m *Matrix[T], x *tensor.Tensor[T]) *tensor.Tensor[T] {
	if x.Dimension(0) != m.cols {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch,
			fmt.Sprintf("%d by %d, %v", m.rows, m.cols, x.Dimensions())))
	}
	dims := x.Dimensions()
	dims[0] = m.rows
	out := tensor.New[T](dims...)
	rest := x.Size() / max(1, m.cols)

	xd, od := x.RawData(), out.MutableData()
	for q := 0; q < rest; q++ {
		xo, oo := q*m.cols, q*m.rows
		for i := 0; i < m.rows; i++ {
			var acc T
			for p := m.rowStart[i]; p < m.rowStart[i+1]; p++ {
				acc += m.data[p] * xd[xo+m.column[p]]
			}
			od[oo+i] = acc
		}
	}
	return out
}

// DenseMmult multiplies a dense tensor with a sparse matrix contracted on
// the dense tensor's last axis.
func DenseMmult[T tensor.Element](x *tensor.Tensor[T], m *Matrix[T]) *tensor.Tensor[T] {
	if x.Dimension(-1) != m.rows {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch,
			fmt.Sprintf("%v, %d by %d", x.Dimensions(), m.rows, m.cols)))
	}
	dims := x.Dimensions()
	dims[len(dims)-1] = m.cols
	out := tensor.New[T](dims...)
	lead := x.Size() / max(1, m.rows)

	xd, od := x.RawData(), out.MutableData()
	for i := 0; i < m.rows; i++ {
		for p := m.rowStart[i]; p < m.rowStart[i+1]; p++ {
			j, v := m.column[p], m.data[p]
			for l := 0; l < lead; l++ {
				od[l+lead*j] += xd[l+lead*i] * v
			}
		}
	}
	return out
}

// Mmult multiplies two sparse matrices.
func Mmult[T tensor.Element](a, b *Matrix[T]) *Matrix[T] {
	if a.cols != b.rows {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch,
			fmt.Sprintf("%d by %d, %d by %d", a.rows, a.cols, b.rows, b.cols)))
	}
	entries := make([]Triplet[T], 0)
	acc := make(map[int]T)
	for i := 0; i < a.rows; i++ {
		clear(acc)
		for p := a.rowStart[i]; p < a.rowStart[i+1]; p++ {
			j, v := a.column[p], a.data[p]
			for q := b.rowStart[j]; q < b.rowStart[j+1]; q++ {
				acc[b.column[q]] += v * b.data[q]
			}
		}
		for col, v := range acc {
			if v != 0 {
				entries = append(entries, Triplet[T]{Row: i, Col: col, Value: v})
			}
		}
	}
	return FromTriplets(entries, a.rows, b.cols)
}

// Kron returns the Kronecker product, enumerating the stored entries in
// row-major block order.
func Kron[T tensor.Element](a, b *Matrix[T]) *Matrix[T] {
	out := New[T](a.rows*b.rows, a.cols*b.cols)
	for ia := 0; ia < a.rows; ia++ {
		for ib := 0; ib < b.rows; ib++ {
			for pa := a.rowStart[ia]; pa < a.rowStart[ia+1]; pa++ {
				va := a.data[pa]
				for pb := b.rowStart[ib]; pb < b.rowStart[ib+1]; pb++ {
					v := va * b.data[pb]
					if v == 0 {
						continue
					}
					out.column = append(out.column, a.column[pa]*b.cols+b.column[pb])
					out.data = append(out.data, v)
					out.rowStart[ia*b.rows+ib+1]++
				}
			}
		}
	}
	for i := 0; i < out.rows; i++ {
		out.rowStart[i+1] += out.rowStart[i]
	}
	return out
}
