package tensor

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
)

func checkSameShape[T Element](a, b *Tensor[T]) {
	if !a.dims.Equal(b.dims) {
		panic(errors.Wrap(ErrDimensionsMismatch, fmt.Sprintf("%v %v", a.dims, b.dims)))
	}
}

func binop[T Element](a, b *Tensor[T], f func(x, y T) T) *Tensor[T] {
	checkSameShape(a, b)
	out := New[T](a.dims...)
	ad, bd := a.buf.data, b.buf.data
	for i := range out.buf.data {
		out.buf.data[i] = f(ad[i], bd[i])
	}
	return out
}

func unop[T Element](a *Tensor[T], f func(x T) T) *Tensor[T] {
	out := New[T](a.dims...)
	for i, v := range a.buf.data {
		out.buf.data[i] = f(v)
	}
	return out
}

// Add returns the elementwise sum of two tensors of equal shape.
func Add[T Element](a, b *Tensor[T]) *Tensor[T] {
	return binop(a, b, func(x, y T) T { return x + y })
}

// Sub returns the elementwise difference.
func Sub[T Element](a, b *Tensor[T]) *Tensor[T] {
	return binop(a, b, func(x, y T) T { return x - y })
}

// Mul returns the elementwise (Hadamard) product.
func Mul[T Element](a, b *Tensor[T]) *Tensor[T] {
	return binop(a, b, func(x, y T) T { return x * y })
}

// Div returns the elementwise quotient.
func Div[T Element](a, b *Tensor[T]) *Tensor[T] {
	return binop(a, b, func(x, y T) T { return x / y })
}

// Neg returns the elementwise negation.
func Neg[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return -x })
}

// AddScalar returns a + k applied elementwise.
func AddScalar[T Element](a *Tensor[T], k T) *Tensor[T] {
	return unop(a, func(x T) T { return x + k })
}

// SubScalar returns a - k applied elementwise.
func SubScalar[T Element](a *Tensor[T], k T) *Tensor[T] {
	return unop(a, func(x T) T { return x - k })
}

// MulScalar returns k * a.
func MulScalar[T Element](a *Tensor[T], k T) *Tensor[T] {
	return unop(a, func(x T) T { return k * x })
}

// DivScalar returns a / k.
func DivScalar[T Element](a *Tensor[T], k T) *Tensor[T] {
	return unop(a, func(x T) T { return x / k })
}

// AddInPlace accumulates b into a.
func AddInPlace[T Element](a, b *Tensor[T]) {
	checkSameShape(a, b)
	data, bd := a.unshare(), b.buf.data
	for i := range data {
		data[i] += bd[i]
	}
}

// SubInPlace subtracts b from a.
func SubInPlace[T Element](a, b *Tensor[T]) {
	checkSameShape(a, b)
	data, bd := a.unshare(), b.buf.data
	for i := range data {
		data[i] -= bd[i]
	}
}

// MulScalarInPlace rescales a by k.
func MulScalarInPlace[T Element](a *Tensor[T], k T) {
	data := a.unshare()
	for i := range data {
		data[i] *= k
	}
}

func compare[T Element](a, b *Tensor[T], f func(c int) bool) Booleans {
	checkSameShape(a, b)
	out := make(Booleans, a.Size())
	bd := b.buf.data
	for i, v := range a.buf.data {
		out[i] = f(compareElem(v, bd[i]))
	}
	return out
}

// Less compares elementwise, ordering complex numbers lexicographically.
func Less[T Element](a, b *Tensor[T]) Booleans {
	return compare(a, b, func(c int) bool { return c < 0 })
}

// LessEqual compares elementwise.
func LessEqual[T Element](a, b *Tensor[T]) Booleans {
	return compare(a, b, func(c int) bool { return c <= 0 })
}

// Greater compares elementwise.
func Greater[T Element](a, b *Tensor[T]) Booleans {
	return compare(a, b, func(c int) bool { return c > 0 })
}

// EqualElems compares elementwise for exact equality.
func EqualElems[T Element](a, b *Tensor[T]) Booleans {
	return compare(a, b, func(c int) bool { return c == 0 })
}

// All reports whether every entry is true.
func (b Booleans) All() bool {
	for _, v := range b {
		if !v {
			return false
		}
	}
	return true
}

// Any reports whether some entry is true.
func (b Booleans) Any() bool {
	for _, v := range b {
		if v {
			return true
		}
	}
	return false
}

// Exp applies the elementwise exponential.
func Exp[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return applyCmplx(cmplx.Exp, x) })
}

// Log applies the elementwise natural logarithm.
func Log[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return applyCmplx(cmplx.Log, x) })
}

// Sin applies the elementwise sine.
func Sin[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return applyCmplx(cmplx.Sin, x) })
}

// Cos applies the elementwise cosine.
func Cos[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return applyCmplx(cmplx.Cos, x) })
}

// Tan applies the elementwise tangent.
func Tan[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return applyCmplx(cmplx.Tan, x) })
}

// Sinh applies the elementwise hyperbolic sine.
func Sinh[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return applyCmplx(cmplx.Sinh, x) })
}

// Cosh applies the elementwise hyperbolic cosine.
func Cosh[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return applyCmplx(cmplx.Cosh, x) })
}

// Tanh applies the elementwise hyperbolic tangent.
func Tanh[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return applyCmplx(cmplx.Tanh, x) })
}

// Sqrt applies the elementwise square root.
func Sqrt[T Element](a *Tensor[T]) *Tensor[T] {
	return unop(a, func(x T) T { return applyCmplx(cmplx.Sqrt, x) })
}

// Pow raises every element to the power k.
func Pow[T Element](a *Tensor[T], k T) *Tensor[T] {
	return unop(a, func(x T) T {
		return fromComplex[T](cmplx.Pow(toComplex(x), toComplex(k)))
	})
}

func norm2Slice[T Element](data []T) float64 {
	var sum float64
	for _, v := range data {
		a := absOf(v)
		sum += a * a
	}
	return math.Sqrt(sum)
}
