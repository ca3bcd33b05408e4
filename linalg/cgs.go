package linalg

import (
	"github.com/quvec/tensornet/tensor"
)

// CGS solves the linear system given by a matrix-vector map with the
// conjugate gradient squared iteration. It returns the best solution
// found and whether the residual met the tolerance within the iteration
// cap; exceeding the cap is reported through the flag, not an error.
func CGS(apply func(*tensor.CTensor) *tensor.CTensor, b *tensor.CTensor, maxIter int, tol float64) (*tensor.CTensor, bool) {
	if tol <= 0 {
		tol = 100 * epsilon
	}
	bnorm := tensor.Norm2(b)
	if bnorm == 0 {
		return tensor.New[complex128](b.Dimensions()...), true
	}

	x := tensor.New[complex128](b.Dimensions()...)
	r := b.Share()
	rTilde := r.Share()
	p := r.Share()
	u := r.Share()
	rho := dotC(rTilde, r)

	for iter := 0; iter < maxIter; iter++ {
		if tensor.Norm2(r)/bnorm < tol {
			return x, true
		}
		v := apply(p)
		sigma := dotC(rTilde, v)
		if sigma == 0 {
			break
		}
		alpha := rho / sigma
		q := tensor.Sub(u, tensor.MulScalar(v, alpha))
		uq := tensor.Add(u, q)
		x = tensor.Add(x, tensor.MulScalar(uq, alpha))
		r = tensor.Sub(r, tensor.MulScalar(apply(uq), alpha))

		rhoNew := dotC(rTilde, r)
		if rho == 0 {
			break
		}
		beta := rhoNew / rho
		rho = rhoNew
		u = tensor.Add(r, tensor.MulScalar(q, beta))
		p = tensor.Add(u, tensor.Add(tensor.MulScalar(q, beta), tensor.MulScalar(p, beta*beta)))
	}
	return x, tensor.Norm2(r)/bnorm < tol
}

func dotC(a, b *tensor.CTensor) complex128 {
	return tensor.Sum(tensor.Mul(tensor.Conj(a), b))
}
