// Package itebd implements infinite, translationally invariant matrix
// product states with a two-site unit cell, following the algorithm of
// R. Orus and G. Vidal, Phys. Rev. B 78, 155117 (2008).
package itebd

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/mps"
	"github.com/quvec/tensornet/tensor"
)

const epsilon = 0x1p-52

// ITEBD is an infinite MPS made of two Gamma tensors A and B and the
// Schmidt vectors lambdaA (between A and B) and lambdaB (between B and
// the next A). The state reads ... lB A lA B lB A lA ...
type ITEBD[T tensor.Element] struct {
	a, b     *tensor.Tensor[T]
	la, lb   *tensor.Tensor[T]
	ala, blb *tensor.Tensor[T]
	canon    bool
}

// RITEBD is an infinite MPS with real amplitudes.
type RITEBD = ITEBD[float64]

// CITEBD is an infinite MPS with complex amplitudes.
type CITEBD = ITEBD[complex128]

// New builds a state from its Gamma and lambda tensors. The canonical
// flag declares that the lambdas are the Schmidt spectra of the bonds.
func New[T tensor.Element](a, la, b, lb *tensor.Tensor[T], canonical bool) *ITEBD[T] {
	if a.Rank() != 3 || b.Rank() != 3 {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "rank-3 site tensors required"))
	}
	if a.Dimension(0) != lb.Size() || a.Dimension(2) != la.Size() ||
		b.Dimension(0) != la.Size() || b.Dimension(2) != lb.Size() {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch,
			fmt.Sprintf("%v %v %d %d", a.Dimensions(), b.Dimensions(), la.Size(), lb.Size())))
	}
	return &ITEBD[T]{
		a: a, b: b, la: la, lb: lb,
		ala:   tensor.Scale(a, -1, la),
		blb:   tensor.Scale(b, -1, lb),
		canon: canonical,
	}
}

// NewRandom builds a random product-like state of the given physical
// dimension.
func NewRandom(dimension int) *RITEBD {
	if dimension <= 0 {
		panic(errors.Wrap(tensor.ErrInvalidDimension, fmt.Sprintf("%d", dimension)))
	}
	norm := func(v *tensor.RTensor) *tensor.RTensor {
		return tensor.DivScalar(v, tensor.Norm2(v))
	}
	a := tensor.Reshape(norm(tensor.Random[float64](dimension)), 1, dimension, 1)
	b := tensor.Reshape(norm(tensor.Random[float64](dimension)), 1, dimension, 1)
	one := tensor.Ones[float64](1)
	return New(a, one.Share(), b, one.Share(), true)
}

// NewProduct builds the product state with the same local vector on
// every site.
func NewProduct[T tensor.Element](local *tensor.Tensor[T]) *ITEBD[T] {
	return NewProduct2(local, local)
}

// NewProduct2 builds the product state alternating two local vectors.
func NewProduct2[T tensor.Element](a, b *tensor.Tensor[T]) *ITEBD[T] {
	if a.Rank() != 1 || b.Rank() != 1 {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "local state vectors required"))
	}
	an := tensor.DivScalar(a, scalarOf[T](tensor.Norm2(a)))
	bn := tensor.DivScalar(b, scalarOf[T](tensor.Norm2(b)))
	one := tensor.Ones[T](1)
	return New(
		tensor.Reshape(an, 1, a.Size(), 1), one.Share(),
		tensor.Reshape(bn, 1, b.Size(), 1), one.Share(),
		true)
}

// IsCanonical reports whether the lambdas are Schmidt spectra.
func (p *ITEBD[T]) IsCanonical() bool { return p.canon }

// Matrix returns the Gamma tensor of the given lattice site.
func (p *ITEBD[T]) Matrix(site int) *tensor.Tensor[T] {
	if site&1 == 1 {
		return p.b
	}
	return p.a
}

// CombinedMatrix returns Gamma folded with the lambda to its right.
func (p *ITEBD[T]) CombinedMatrix(site int) *tensor.Tensor[T] {
	if site&1 == 1 {
		return p.blb
	}
	return p.ala
}

// LeftVector returns the lambda to the left of the site.
func (p *ITEBD[T]) LeftVector(site int) *tensor.Tensor[T] {
	if site&1 == 1 {
		return p.la
	}
	return p.lb
}

// RightVector returns the lambda to the right of the site.
func (p *ITEBD[T]) RightVector(site int) *tensor.Tensor[T] {
	if site&1 == 1 {
		return p.lb
	}
	return p.la
}

// SiteDimension returns the physical dimension of the site.
func (p *ITEBD[T]) SiteDimension(site int) int { return p.Matrix(site).Dimension(1) }

// LeftDimension returns the bond dimension to the left of the site.
func (p *ITEBD[T]) LeftDimension(site int) int { return p.Matrix(site).Dimension(0) }

// RightDimension returns the bond dimension to the right of the site.
func (p *ITEBD[T]) RightDimension(site int) int { return p.Matrix(site).Dimension(2) }

// LeftBoundary returns the diagonal environment of the left Schmidt
// weights squared.
func (p *ITEBD[T]) LeftBoundary(site int) *tensor.Tensor[T] {
	l := p.LeftVector(site)
	return tensor.Diag(tensor.Mul(l, l), 0)
}

// Schmidt returns the squared Schmidt values of the bond left of the
// site.
func (p *ITEBD[T]) Schmidt(site int) *tensor.RTensor {
	l := tensor.Abs(p.LeftVector(site))
	return tensor.Mul(l, l)
}

// Entropy estimates the entanglement entropy of splitting the chain at
// the bond left of the site.
func (p *ITEBD[T]) Entropy(site int) float64 {
	return mps.Entropy(p.Schmidt(site))
}

// AverageEntropy is the mean entropy of the two inequivalent bonds.
func (p *ITEBD[T]) AverageEntropy() float64 {
	return (p.Entropy(0) + p.Entropy(1)) / 2
}

// ApplyOperator acts with the two-site operator u on the 'even' pairs
// (A, B), or the 'odd' pairs (B, A) when odd is set, truncating the new
// bond with the given tolerance and maximum dimension. The outer lambda
// weights are divided back out, which leaves the result approximately
// canonical.
func (p *ITEBD[T]) ApplyOperator(u *tensor.Tensor[T], odd bool, tol float64, maxDim int) *ITEBD[T] {
	g1, l1, g2, lOut := p.a, p.la, p.b, p.lb
	if odd {
		g1, l1, g2, lOut = p.b, p.lb, p.a, p.la
	}
	dl, dr := g1.Dimension(1), g2.Dimension(1)
	al, ar := g1.Dimension(0), g2.Dimension(2)

	// theta = lOut . g1 . l1 . g2 . lOut, with u folded onto the two
	// physical indices.
	theta := tensor.Fold(tensor.Scale(g1, -1, l1), -1, g2, 0)
	theta = tensor.Scale(theta, 0, lOut)
	theta = tensor.Scale(theta, -1, lOut)
	theta = tensor.Reshape(theta, al, dl*dr, ar)
	if u != nil {
		theta = tensor.FoldIn(u, -1, theta, 1)
	}

	uu, s, vh := splitSVD(tensor.Reshape(theta, al*dl, dr*ar))
	keep := mps.WhereToTruncate(s, tol, maxDim)
	if keep != s.Size() {
		uu = tensor.ChangeDimension(uu, 1, keep)
		vh = tensor.ChangeDimension(vh, 0, keep)
		s = tensor.ChangeDimension(s, 0, keep)
	}
	s = tensor.DivScalar(s, tensor.Norm2(s))
	lNew := toElem[T](s)

	// Restore the boundary weights.
	g1n := tensor.Reshape(uu, al, dl, keep)
	g1n = tensor.Scale(g1n, 0, invVector(lOut))
	g2n := tensor.Reshape(vh, keep, dr, ar)
	g2n = tensor.Scale(g2n, -1, invVector(lOut))

	// The truncation keeps the error bounded, so the gauge stays
	// approximately canonical.
	if odd {
		return New(g2n, p.la.Share(), g1n, lNew, true)
	}
	return New(g1n, lNew, g2n, p.lb.Share(), true)
}

func (p *ITEBD[T]) markCanonical(v bool) *ITEBD[T] {
	p.canon = v
	return p
}

func splitSVD[T tensor.Element](a *tensor.Tensor[T]) (*tensor.Tensor[T], *tensor.RTensor, *tensor.Tensor[T]) {
	u, s, vh, err := svdEcon(a)
	if err != nil {
		panic(errors.Wrap(err, "svd during itebd update"))
	}
	return u, s, vh
}

// invVector inverts the entries of a Schmidt vector, regularizing the
// vanishing ones.
func invVector[T tensor.Element](l *tensor.Tensor[T]) *tensor.Tensor[T] {
	out := l.Share()
	data := out.MutableData()
	for i, v := range data {
		if absOf(v) < epsilon {
			data[i] = 0
			continue
		}
		data[i] = scalarOf[T](1) / v
	}
	return out
}

func scalarOf[T tensor.Element](v float64) T {
	var zero T
	switch any(zero).(type) {
	case complex128:
		return any(complex(v, 0)).(T)
	default:
		return any(v).(T)
	}
}

func absOf[T tensor.Element](v T) float64 {
	switch x := any(v).(type) {
	case float64:
		return math.Abs(x)
	case complex128:
		return math.Hypot(real(x), imag(x))
	}
	return 0
}

func toElem[T tensor.Element](s *tensor.RTensor) *tensor.Tensor[T] {
	if out, ok := any(tensor.ToComplex(s)).(*tensor.Tensor[T]); ok {
		return out
	}
	return any(s.Share()).(*tensor.Tensor[T])
}
