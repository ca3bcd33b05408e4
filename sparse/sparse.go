// Package sparse implements compressed sparse row matrices of real or
// complex elements, interoperating with the dense tensor container.
package sparse

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/tensor"
)

// Matrix is a matrix in compressed sparse row form. Column indices are
// strictly increasing inside each row, no explicit zeros are stored, and
// rowStart[rows] equals the number of stored entries.
type Matrix[T tensor.Element] struct {
	rows, cols int
	rowStart   []int
	column     []int
	data       []T
}

// RMatrix is a sparse matrix of float64 elements.
type RMatrix = Matrix[float64]

// CMatrix is a sparse matrix of complex128 elements.
type CMatrix = Matrix[complex128]

// Triplet is one coordinate-form entry.
type Triplet[T tensor.Element] struct {
	Row, Col int
	Value    T
}

// New returns an empty matrix of the given size.
func New[T tensor.Element](rows, cols int) *Matrix[T] {
	if rows < 0 || cols < 0 {
		panic(errors.Wrap(tensor.ErrInvalidDimension, fmt.Sprintf("%d %d", rows, cols)))
	}
	return &Matrix[T]{rows: rows, cols: cols, rowStart: make([]int, rows+1)}
}

// FromTriplets builds a matrix from coordinate entries. The entries are
// stable-sorted by (row, col), zero values are skipped, and a later
// duplicate overrides an earlier one. When rows or cols are negative the
// matrix sizes itself to the largest occurring index.
func FromTriplets[T tensor.Element](entries []Triplet[T], rows, cols int) *Matrix[T] {
	sorted := make([]Triplet[T], len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	maxRow, maxCol := -1, -1
	for _, e := range sorted {
		if e.Row < 0 || e.Col < 0 {
			panic(errors.Wrap(tensor.ErrIndexOutOfBounds, fmt.Sprintf("%d %d", e.Row, e.Col)))
		}
		maxRow = max(maxRow, e.Row)
		maxCol = max(maxCol, e.Col)
	}
	if rows < 0 {
		rows = maxRow + 1
	}
	if cols < 0 {
		cols = maxCol + 1
	}
	if maxRow >= rows || maxCol >= cols {
		panic(errors.Wrap(tensor.ErrIndexOutOfBounds, fmt.Sprintf("%d %d in %d by %d", maxRow, maxCol, rows, cols)))
	}

	m := New[T](rows, cols)
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Row == sorted[i].Row && sorted[j].Col == sorted[i].Col {
			j++
		}
		// The last triplet of a duplicate run wins.
		if v := sorted[j-1].Value; v != 0 {
			m.column = append(m.column, sorted[i].Col)
			m.data = append(m.data, v)
			m.rowStart[sorted[i].Row+1]++
		}
		i = j
	}
	for i := 0; i < rows; i++ {
		m.rowStart[i+1] += m.rowStart[i]
	}
	return m
}

// FromDense scans a rank-2 tensor in row order and keeps the non-zeros.
func FromDense[T tensor.Element](t *tensor.Tensor[T]) *Matrix[T] {
	rows, cols := t.Dimension(0), t.Dimension(1)
	m := New[T](rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := t.At(i, j); v != 0 {
				m.column = append(m.column, j)
				m.data = append(m.data, v)
				m.rowStart[i+1]++
			}
		}
	}
	for i := 0; i < rows; i++ {
		m.rowStart[i+1] += m.rowStart[i]
	}
	return m
}

// ToDense materializes the matrix as a dense tensor.
func ToDense[T tensor.Element](m *Matrix[T]) *tensor.Tensor[T] {
	out := tensor.New[T](m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		for p := m.rowStart[i]; p < m.rowStart[i+1]; p++ {
			out.Set(m.data[p], i, m.column[p])
		}
	}
	return out
}

// Rows returns the number of rows.
func (m *Matrix[T]) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix[T]) Cols() int { return m.cols }

// Dimensions returns the shape as a dense tensor would report it.
func (m *Matrix[T]) Dimensions() tensor.Dimensions { return tensor.Dimensions{m.rows, m.cols} }

// NNZ returns the number of stored entries.
func (m *Matrix[T]) NNZ() int { return len(m.data) }

// At returns the entry at (i, j), binary searching the row.
func (m *Matrix[T]) At(i, j int) T {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(errors.Wrap(tensor.ErrIndexOutOfBounds, fmt.Sprintf("%d %d in %d by %d", i, j, m.rows, m.cols)))
	}
	lo, hi := m.rowStart[i], m.rowStart[i+1]
	p, found := slices.BinarySearch(m.column[lo:hi], j)
	if !found {
		var zero T
		return zero
	}
	return m.data[lo+p]
}

// Eye returns the sparse n by m identity; m defaults to n.
func Eye[T tensor.Element](n int, cols ...int) *Matrix[T] {
	c := n
	if len(cols) > 0 {
		c = cols[0]
	}
	m := New[T](n, c)
	unit := m.one()
	for i := 0; i < min(n, c); i++ {
		m.column = append(m.column, i)
		m.data = append(m.data, unit)
		m.rowStart[i+1]++
	}
	for i := 0; i < n; i++ {
		m.rowStart[i+1] += m.rowStart[i]
	}
	return m
}

func (m *Matrix[T]) one() T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(complex(1.0, 0)).(T)
	default:
		return any(1.0).(T)
	}
}

// Random returns a sparse matrix whose entries are kept with the given
// density and drawn uniformly.
func Random[T tensor.Element](rows, cols int, density float64) *Matrix[T] {
	entries := make([]Triplet[T], 0)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if rand.Float64() < density {
				entries = append(entries, Triplet[T]{Row: i, Col: j, Value: randElem[T]()})
			}
		}
	}
	return FromTriplets(entries, rows, cols)
}

func randElem[T tensor.Element]() T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(complex(rand.Float64(), rand.Float64())).(T)
	default:
		return any(rand.Float64()).(T)
	}
}

// Diag builds a sparse matrix with v on its which-th diagonal.
func Diag[T tensor.Element](v *tensor.Tensor[T], which int) *Matrix[T] {
	n := v.Size()
	rows := n + max(0, -which)
	cols := n + max(0, which)
	entries := make([]Triplet[T], 0, n)
	for i := 0; i < n; i++ {
		r, c := i, i
		if which >= 0 {
			c += which
		} else {
			r -= which
		}
		entries = append(entries, Triplet[T]{Row: r, Col: c, Value: v.At(i)})
	}
	return FromTriplets(entries, rows, cols)
}

// Adjoint returns the conjugate transpose, rebuilding the CSR arrays from
// the entries sorted by (col, row).
func Adjoint[T tensor.Element](m *Matrix[T]) *Matrix[T] {
	entries := make([]Triplet[T], 0, m.NNZ())
	for i := 0; i < m.rows; i++ {
		for p := m.rowStart[i]; p < m.rowStart[i+1]; p++ {
			entries = append(entries, Triplet[T]{Row: m.column[p], Col: i, Value: conj(m.data[p])})
		}
	}
	return FromTriplets(entries, m.cols, m.rows)
}

// Transpose returns the plain transpose.
func Transpose[T tensor.Element](m *Matrix[T]) *Matrix[T] {
	entries := make([]Triplet[T], 0, m.NNZ())
	for i := 0; i < m.rows; i++ {
		for p := m.rowStart[i]; p < m.rowStart[i+1]; p++ {
			entries = append(entries, Triplet[T]{Row: m.column[p], Col: i, Value: m.data[p]})
		}
	}
	return FromTriplets(entries, m.cols, m.rows)
}

func conj[T tensor.Element](x T) T {
	if v, ok := any(x).(complex128); ok {
		return any(complex(real(v), -imag(v))).(T)
	}
	return x
}
