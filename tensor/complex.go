package tensor

import (
	"fmt"
	"math/cmplx"

	"github.com/pkg/errors"
)

// ToComplex promotes a real tensor into a complex one, with an optional
// imaginary part of the same shape.
func ToComplex(re *RTensor, im ...*RTensor) *CTensor {
	out := New[complex128](re.dims...)
	if len(im) == 0 {
		for i, v := range re.buf.data {
			out.buf.data[i] = complex(v, 0)
		}
		return out
	}
	if !re.dims.Equal(im[0].dims) {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%v %v", re.dims, im[0].dims)))
	}
	for i, v := range re.buf.data {
		out.buf.data[i] = complex(v, im[0].buf.data[i])
	}
	return out
}

// Real extracts the elementwise real part.
func Real[T Element](t *Tensor[T]) *RTensor {
	out := New[float64](t.dims...)
	for i, v := range t.buf.data {
		out.buf.data[i] = realOf(v)
	}
	return out
}

// Imag extracts the elementwise imaginary part.
func Imag[T Element](t *Tensor[T]) *RTensor {
	out := New[float64](t.dims...)
	for i, v := range t.buf.data {
		out.buf.data[i] = imagOf(v)
	}
	return out
}

// Conj returns the elementwise complex conjugate. Real tensors are
// returned as copies.
func Conj[T Element](t *Tensor[T]) *Tensor[T] {
	return unop(t, conjOf[T])
}

// Abs returns the elementwise magnitude as a real tensor.
func Abs[T Element](t *Tensor[T]) *RTensor {
	out := New[float64](t.dims...)
	for i, v := range t.buf.data {
		out.buf.data[i] = absOf(v)
	}
	return out
}

// Phase returns the elementwise argument.
func Phase[T Element](t *Tensor[T]) *RTensor {
	out := New[float64](t.dims...)
	for i, v := range t.buf.data {
		out.buf.data[i] = cmplx.Phase(toComplex(v))
	}
	return out
}
