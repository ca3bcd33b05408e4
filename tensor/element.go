package tensor

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
)

// Element is the numeric type parameter of a tensor, either real or
// complex double precision.
type Element interface {
	float64 | complex128
}

// Epsilon is the double precision machine epsilon.
const Epsilon = 0x1p-52

func conjOf[T Element](x T) T {
	switch v := any(x).(type) {
	case complex128:
		return any(cmplx.Conj(v)).(T)
	default:
		return x
	}
}

func absOf[T Element](x T) float64 {
	switch v := any(x).(type) {
	case complex128:
		return cmplx.Abs(v)
	case float64:
		return math.Abs(v)
	}
	return 0
}

func realOf[T Element](x T) float64 {
	switch v := any(x).(type) {
	case complex128:
		return real(v)
	case float64:
		return v
	}
	return 0
}

func imagOf[T Element](x T) float64 {
	if v, ok := any(x).(complex128); ok {
		return imag(v)
	}
	return 0
}

func fromFloat[T Element](v float64) T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(complex(v, 0)).(T)
	default:
		return any(v).(T)
	}
}

// fromComplex narrows a complex value into T, dropping the imaginary part
// for real tensors.
func fromComplex[T Element](v complex128) T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(v).(T)
	default:
		return any(real(v)).(T)
	}
}

func toComplex[T Element](x T) complex128 {
	switch v := any(x).(type) {
	case complex128:
		return v
	case float64:
		return complex(v, 0)
	}
	return 0
}

// randElem draws a uniform element; complex elements get independent
// uniform real and imaginary parts.
func randElem[T Element]() T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(complex(rand.Float64(), rand.Float64())).(T)
	default:
		return any(rand.Float64()).(T)
	}
}

// compareElem orders elements by real part, breaking ties by imaginary
// part (lexicographic ordering for complex numbers).
func compareElem[T Element](a, b T) int {
	ra, rb := realOf(a), realOf(b)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	}
	ia, ib := imagOf(a), imagOf(b)
	switch {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	}
	return 0
}

func applyCmplx[T Element](f func(complex128) complex128, x T) T {
	return fromComplex[T](f(toComplex(x)))
}
