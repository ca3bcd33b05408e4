package linalg

import (
	"math"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/tensor"
)

// Expm computes the matrix exponential by scaling and squaring with a
// Padé approximation of the given order (default 7). The input is scaled
// until its infinity norm falls below one half, the Padé numerator and
// denominator are accumulated from powers of the matrix, one linear
// system is solved, and the result is squared back up.
func Expm[T tensor.Element](a *tensor.Tensor[T], order ...int) (*tensor.Tensor[T], error) {
	n := squareSize(a)
	ord := 7
	if len(order) > 0 {
		ord = order[0]
	}

	j := 0
	if norm := tensor.MatrixNormInf(a); norm > 0 {
		j = max(0, int(math.Floor(math.Log2(norm)))+2)
	}
	scaled := tensor.MulScalar(a, fromComplex[T](complex(math.Exp2(-float64(j)), 0)))

	c := 0.5
	eye := tensor.Eye[T](n)
	num := tensor.Add(eye, tensor.MulScalar(scaled, fromComplex[T](complex(c, 0))))
	den := tensor.Sub(eye, tensor.MulScalar(scaled, fromComplex[T](complex(c, 0))))
	x := scaled.Share()
	for k := 2; k <= ord; k++ {
		c = c * float64(ord-k+1) / float64(k*(2*ord-k+1))
		x = tensor.Fold(scaled, -1, x, 0)
		cx := tensor.MulScalar(x, fromComplex[T](complex(c, 0)))
		num = tensor.Add(num, cx)
		if k%2 == 0 {
			den = tensor.Add(den, cx)
		} else {
			den = tensor.Sub(den, cx)
		}
	}
	out, err := Solve(den, num)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	for k := 0; k < j; k++ {
		out = tensor.Fold(out, -1, out, 0)
	}
	return out, nil
}
