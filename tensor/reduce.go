package tensor

import (
	"gonum.org/v1/gonum/floats"
)

// Sum adds all elements.
func Sum[T Element](t *Tensor[T]) T {
	var sum T
	for _, v := range t.buf.data {
		sum += v
	}
	return sum
}

// SumReal adds all elements of a real tensor with gonum's floats.Sum, a
// plain summation without compensation.
func SumReal(t *RTensor) float64 {
	return floats.Sum(t.buf.data)
}

// Mean returns the arithmetic mean of all elements.
func Mean[T Element](t *Tensor[T]) T {
	if t.Size() == 0 {
		var zero T
		return zero
	}
	return Sum(t) / fromFloat[T](float64(t.Size()))
}

// Max returns the largest element; complex elements order
// lexicographically by real then imaginary part.
func Max[T Element](t *Tensor[T]) T {
	m := t.buf.data[0]
	for _, v := range t.buf.data[1:] {
		if compareElem(v, m) > 0 {
			m = v
		}
	}
	return m
}

// Min returns the smallest element.
func Min[T Element](t *Tensor[T]) T {
	m := t.buf.data[0]
	for _, v := range t.buf.data[1:] {
		if compareElem(v, m) < 0 {
			m = v
		}
	}
	return m
}

// reduceAxis collapses axis k with the pairwise accumulator f.
func reduceAxis[T Element](t *Tensor[T], k int, init func() T, f func(acc, v T) T) *Tensor[T] {
	left, n, right := Surround(t.dims, k)
	k = t.dims.Normalize(k)
	dims := make(Dimensions, 0, t.Rank()-1)
	dims = append(dims, t.dims[:k]...)
	dims = append(dims, t.dims[k+1:]...)
	out := New[T](dims...)
	src, dst := t.buf.data, out.buf.data
	for r := 0; r < right; r++ {
		for l := 0; l < left; l++ {
			acc := init()
			for x := 0; x < n; x++ {
				acc = f(acc, src[l+left*(x+n*r)])
			}
			dst[l+left*r] = acc
		}
	}
	return out
}

// SumAxis collapses axis k by summation.
func SumAxis[T Element](t *Tensor[T], k int) *Tensor[T] {
	var zero T
	return reduceAxis(t, k, func() T { return zero }, func(acc, v T) T { return acc + v })
}

// MeanAxis collapses axis k by averaging.
func MeanAxis[T Element](t *Tensor[T], k int) *Tensor[T] {
	n := t.Dimension(k)
	out := SumAxis(t, k)
	if n == 0 {
		return out
	}
	inv := fromFloat[T](1 / float64(n))
	MulScalarInPlace(out, inv)
	return out
}

// MaxAxis collapses axis k keeping the largest element.
func MaxAxis[T Element](t *Tensor[T], k int) *Tensor[T] {
	first := true
	return reduceAxis(t, k, func() T { first = true; var zero T; return zero },
		func(acc, v T) T {
			if first || compareElem(v, acc) > 0 {
				first = false
				return v
			}
			return acc
		})
}

// MinAxis collapses axis k keeping the smallest element.
func MinAxis[T Element](t *Tensor[T], k int) *Tensor[T] {
	first := true
	return reduceAxis(t, k, func() T { first = true; var zero T; return zero },
		func(acc, v T) T {
			if first || compareElem(v, acc) < 0 {
				first = false
				return v
			}
			return acc
		})
}
