package linalg

import (
	"math"
	"math/cmplx"
)

// householder is the unitary reflector I - tau*u*uᴴ built to annihilate
// all but the first entry of a column vector.
type householder struct {
	u    []complex128
	tau  float64
	beta complex128
}

// newHouseholder builds the reflector for the column vector x, so that
// applying it maps x onto beta times the first unit vector.
func newHouseholder(x *zmat) householder {
	n := x.rows
	h := householder{u: make([]complex128, n)}
	var norm float64
	for i := 0; i < n; i++ {
		v := x.at(i, 0)
		h.u[i] = v
		norm += real(v)*real(v) + imag(v)*imag(v)
	}
	norm = math.Sqrt(norm)
	if norm < safmin {
		return h
	}
	phase := complex(1, 0)
	if x0 := h.u[0]; x0 != 0 {
		phase = x0 / complex(cmplx.Abs(x0), 0)
	}
	h.beta = -phase * complex(norm, 0)
	h.u[0] -= h.beta
	var unorm float64
	for _, v := range h.u {
		unorm += real(v)*real(v) + imag(v)*imag(v)
	}
	if unorm < safmin {
		h.u[0] = 1
		h.beta = 0
		return h
	}
	h.tau = 2 / unorm
	return h
}

// applyLeft overwrites a with (I - tau*u*uᴴ)·a.
func (h householder) applyLeft(a *zmat) {
	if h.tau == 0 {
		return
	}
	for j := 0; j < a.cols; j++ {
		var dot complex128
		for i := 0; i < a.rows; i++ {
			dot += cmplx.Conj(h.u[i]) * a.at(i, j)
		}
		dot *= complex(h.tau, 0)
		for i := 0; i < a.rows; i++ {
			a.set(i, j, a.at(i, j)-dot*h.u[i])
		}
	}
}

// applyRight overwrites a with a·(I - tau*u*uᴴ).
func (h householder) applyRight(a *zmat) {
	if h.tau == 0 {
		return
	}
	for i := 0; i < a.rows; i++ {
		var dot complex128
		for j := 0; j < a.cols; j++ {
			dot += a.at(i, j) * h.u[j]
		}
		dot *= complex(h.tau, 0)
		for j := 0; j < a.cols; j++ {
			a.set(i, j, a.at(i, j)-dot*cmplx.Conj(h.u[j]))
		}
	}
}
