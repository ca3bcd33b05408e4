package mps

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/tensor"
)

// MPO is a matrix product operator: rank-4 site tensors indexed as
// (left bond, output physical, input physical, right bond).
type MPO[T tensor.Element] struct {
	sites []*tensor.Tensor[T]
}

// RMPO is a matrix product operator with real entries.
type RMPO = MPO[float64]

// CMPO is a matrix product operator with complex entries.
type CMPO = MPO[complex128]

// NewMPO wraps a list of operator tensors.
func NewMPO[T tensor.Element](sites []*tensor.Tensor[T]) *MPO[T] {
	for k, w := range sites {
		if w.Rank() != 4 {
			panic(errors.Wrap(tensor.ErrDimensionsMismatch, fmt.Sprintf("site %d rank %d", k, w.Rank())))
		}
	}
	return &MPO[T]{sites: sites}
}

// Len returns the number of sites.
func (o *MPO[T]) Len() int { return len(o.sites) }

// Site returns the operator tensor at site k.
func (o *MPO[T]) Site(k int) *tensor.Tensor[T] {
	return o.sites[tensor.Normalize(k, len(o.sites))]
}

// SetSite replaces the operator tensor at site k.
func (o *MPO[T]) SetSite(k int, w *tensor.Tensor[T]) {
	o.sites[tensor.Normalize(k, len(o.sites))] = w
}

// Clone returns a new operator sharing the site buffers.
func (o *MPO[T]) Clone() *MPO[T] {
	sites := make([]*tensor.Tensor[T], len(o.sites))
	for i, w := range o.sites {
		sites[i] = w.Share()
	}
	return &MPO[T]{sites: sites}
}

// Apply contracts the operator with a state site by site. The bonds of
// the output are the products of the operator and state bonds.
func Apply[T tensor.Element](o *MPO[T], m *MPS[T]) *MPS[T] {
	if o.Len() != m.Len() {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, fmt.Sprintf("%d %d", o.Len(), m.Len())))
	}
	sites := make([]*tensor.Tensor[T], m.Len())
	for k := range sites {
		w, a := o.Site(k), m.Site(k)
		al, _, ar := a.Dimension(0), a.Dimension(1), a.Dimension(2)
		bl, dout, br := w.Dimension(mpoLeftAxis), w.Dimension(mpoUpAxis), w.Dimension(mpoRightAxis)
		// t(b, i, b', alpha, alpha') = sum_j w(b, i, j, b') a(alpha, j, alpha').
		t := tensor.Fold(w, mpoDownAxis, a, mpsUpAxis)
		// Bring to (b, alpha, i, b', alpha') and merge the bond pairs.
		t = tensor.Permute(t, 1, 3)
		t = tensor.Permute(t, 2, 3)
		sites[k] = tensor.Reshape(t, bl*al, dout, br*ar)
	}
	return NewMPS(sites)
}

// propMPO carries the rank-3 environment f of an operator sandwich
// <p|o|q> across one site. For positive sense f has shape
// (bond of p, bond of o, bond of q) to the left of the site.
func propMPO[T tensor.Element](f *tensor.Tensor[T], sense int, p, w, q *tensor.Tensor[T]) *tensor.Tensor[T] {
	ap, d, ap2 := p.Dimension(0), p.Dimension(1), p.Dimension(2)
	if sense > 0 {
		// fq(a, b, j, c') = sum_c f(a, b, c) q(c, j, c').
		fq := tensor.Fold(f, 2, q, mpsLeftAxis)
		// t(i, b', a, c') = sum_{b,j} w(b, i, j, b') fq(a, b, j, c').
		t := tensor.Fold(w, mpoLeftAxis, fq, 1)
		t = tensor.PartialTrace(t, 1, 4)
		// out(a', b', c') = sum_{a,i} conj(p(a, i, a')) t(..).
		t = tensor.Permute(t, 0, 2)
		t = tensor.Permute(t, 1, 2)
		bp, cq := t.Dimension(2), t.Dimension(3)
		t2 := tensor.Reshape(t, ap*d, bp*cq)
		p2 := tensor.Reshape(p, ap*d, ap2)
		out := tensor.FoldC(p2, 0, t2, 0)
		return tensor.Reshape(out, ap2, bp, cq)
	}
	// fq(c, j, a', b') = sum_{c'} q(c, j, c') f(a', b', c').
	fq := tensor.Fold(q, mpsRightAxis, f, 2)
	// t(b, i, c, a') = sum_{j,b'} w(b, i, j, b') fq(c, j, a', b').
	t := tensor.Fold(w, mpoRightAxis, fq, 3)
	t = tensor.PartialTrace(t, 2, 4)
	// out(a, b, c) = sum_{i,a'} conj(p(a, i, a')) t(b, i, c, a').
	t = tensor.Permute(t, 1, 2)
	bo, cq := t.Dimension(0), t.Dimension(1)
	t2 := tensor.Reshape(t, bo*cq, d*ap2)
	p2 := tensor.Reshape(p, ap, d*ap2)
	out := tensor.FoldC(p2, 1, t2, 1)
	return tensor.Reshape(out, ap, bo, cq)
}

// startMPOEnv builds the boundary environment of an operator sandwich.
func startMPOEnv[T tensor.Element](p *MPS[T], o *MPO[T], q *MPS[T], sense int) *tensor.Tensor[T] {
	var ap, b, aq int
	if sense > 0 {
		ap = p.Site(0).Dimension(mpsLeftAxis)
		b = o.Site(0).Dimension(mpoLeftAxis)
		aq = q.Site(0).Dimension(mpsLeftAxis)
	} else {
		ap = p.Site(-1).Dimension(mpsRightAxis)
		b = o.Site(-1).Dimension(mpoRightAxis)
		aq = q.Site(-1).Dimension(mpsRightAxis)
	}
	if ap != 1 || b != 1 || aq != 1 {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch,
			fmt.Sprintf("open boundary required, bonds %d %d %d", ap, b, aq)))
	}
	return tensor.Ones[T](1, 1, 1)
}

// MatrixElement returns <p|o|q>.
func MatrixElement[T tensor.Element](p *MPS[T], o *MPO[T], q *MPS[T]) T {
	if p.Len() != o.Len() || q.Len() != o.Len() {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch,
			fmt.Sprintf("%d %d %d", p.Len(), o.Len(), q.Len())))
	}
	f := startMPOEnv(p, o, q, +1)
	for k := 0; k < o.Len(); k++ {
		f = propMPO(f, +1, p.Site(k), o.Site(k), q.Site(k))
	}
	return f.At(0, 0, 0)
}

// Expectation returns <p|o|p>.
func Expectation[T tensor.Element](p *MPS[T], o *MPO[T]) T {
	return MatrixElement(p, o, p)
}
