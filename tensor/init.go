package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Zeros returns a tensor filled with zeros.
func Zeros[T Element](dims ...int) *Tensor[T] { return New[T](dims...) }

// Ones returns a tensor filled with ones.
func Ones[T Element](dims ...int) *Tensor[T] {
	t := New[T](dims...)
	one := fromFloat[T](1)
	data := t.buf.data
	for i := range data {
		data[i] = one
	}
	return t
}

// Eye returns the n by m identity matrix; m defaults to n.
func Eye[T Element](n int, m ...int) *Tensor[T] {
	cols := n
	if len(m) > 0 {
		cols = m[0]
	}
	t := New[T](n, cols)
	one := fromFloat[T](1)
	for i := 0; i < min(n, cols); i++ {
		t.buf.data[i+i*n] = one
	}
	return t
}

// Random returns a tensor of uniform elements in [0, 1); complex tensors
// get independent uniform real and imaginary parts.
func Random[T Element](dims ...int) *Tensor[T] {
	t := New[T](dims...)
	data := t.buf.data
	for i := range data {
		data[i] = randElem[T]()
	}
	return t
}

// Linspace returns n evenly spaced values from first to last, both
// included.
func Linspace(first, last float64, n int) *RTensor {
	t := New[float64](n)
	if n == 1 {
		t.buf.data[0] = first
		return t
	}
	step := (last - first) / float64(n-1)
	for i := range t.buf.data {
		t.buf.data[i] = first + float64(i)*step
	}
	return t
}

// T1 builds a rank-1 tensor from a slice.
func T1[T Element](v []T) *Tensor[T] {
	data := make([]T, len(v))
	copy(data, v)
	return FromSlice(data, len(v))
}

// T2 builds a rank-2 tensor from nested slices, row by row. Ragged input
// is rejected.
func T2[T Element](rows [][]T) *Tensor[T] {
	n := len(rows)
	m := 0
	if n > 0 {
		m = len(rows[0])
	}
	t := New[T](n, m)
	for i, row := range rows {
		if len(row) != m {
			panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("row %d: %d %d", i, len(row), m)))
		}
		for j, v := range row {
			t.buf.data[i+j*n] = v
		}
	}
	return t
}

// T3 builds a rank-3 tensor from nested slices indexed as v[i][j][k].
func T3[T Element](v [][][]T) *Tensor[T] {
	d0 := len(v)
	d1, d2 := 0, 0
	if d0 > 0 {
		d1 = len(v[0])
		if d1 > 0 {
			d2 = len(v[0][0])
		}
	}
	t := New[T](d0, d1, d2)
	for i := range v {
		if len(v[i]) != d1 {
			panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%d %d", len(v[i]), d1)))
		}
		for j := range v[i] {
			if len(v[i][j]) != d2 {
				panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%d %d", len(v[i][j]), d2)))
			}
			for k, x := range v[i][j] {
				t.buf.data[i+d0*(j+d1*k)] = x
			}
		}
	}
	return t
}

// T5 builds a rank-5 tensor from nested slices.
func T5[T Element](v [][][][][]T) *Tensor[T] {
	d0 := len(v)
	var inner *Tensor[T]
	outs := make([]*Tensor[T], d0)
	for i := range v {
		outs[i] = T4(v[i])
		if inner == nil {
			inner = outs[i]
		} else if !inner.dims.Equal(outs[i].dims) {
			panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%v %v", inner.dims, outs[i].dims)))
		}
	}
	return stackFirst(outs, d0)
}

// T6 builds a rank-6 tensor from nested slices.
func T6[T Element](v [][][][][][]T) *Tensor[T] {
	d0 := len(v)
	var inner *Tensor[T]
	outs := make([]*Tensor[T], d0)
	for i := range v {
		outs[i] = T5(v[i])
		if inner == nil {
			inner = outs[i]
		} else if !inner.dims.Equal(outs[i].dims) {
			panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%v %v", inner.dims, outs[i].dims)))
		}
	}
	return stackFirst(outs, d0)
}

// stackFirst joins equally shaped tensors along a new first axis.
func stackFirst[T Element](parts []*Tensor[T], d0 int) *Tensor[T] {
	if d0 == 0 {
		return New[T](0)
	}
	dims := append(Dimensions{d0}, parts[0].dims...)
	out := New[T](dims...)
	inner := parts[0].Size()
	for i, p := range parts {
		pd := p.buf.data
		for j := 0; j < inner; j++ {
			out.buf.data[i+d0*j] = pd[j]
		}
	}
	return out
}

// T4 builds a rank-4 tensor from nested slices indexed as v[i][j][k][l].
func T4[T Element](v [][][][]T) *Tensor[T] {
	d0 := len(v)
	d1, d2, d3 := 0, 0, 0
	if d0 > 0 {
		d1 = len(v[0])
		if d1 > 0 {
			d2 = len(v[0][0])
			if d2 > 0 {
				d3 = len(v[0][0][0])
			}
		}
	}
	t := New[T](d0, d1, d2, d3)
	for i := range v {
		if len(v[i]) != d1 {
			panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%d %d", len(v[i]), d1)))
		}
		for j := range v[i] {
			if len(v[i][j]) != d2 {
				panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%d %d", len(v[i][j]), d2)))
			}
			for k := range v[i][j] {
				if len(v[i][j][k]) != d3 {
					panic(errors.Wrap(ErrIndexOutOfBounds, fmt.Sprintf("%d %d", len(v[i][j][k]), d3)))
				}
				for l, x := range v[i][j][k] {
					t.buf.data[i+d0*(j+d1*(k+d2*l))] = x
				}
			}
		}
	}
	return t
}
