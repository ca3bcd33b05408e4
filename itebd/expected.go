package itebd

import (
	"github.com/quvec/tensornet/tensor"
)

// propagateRight moves the environment v one site to the right through
// the combined matrix g, optionally sandwiching a single-site operator.
// v carries (bra bond, ket bond).
func propagateRight[T tensor.Element](v, g *tensor.Tensor[T], op *tensor.Tensor[T]) *tensor.Tensor[T] {
	geff := g
	if op != nil {
		geff = tensor.FoldIn(op, -1, g, 1)
	}
	a, d, b := g.Dimension(0), g.Dimension(1), g.Dimension(2)
	// vg(a, i, b') = sum v(a, a') g(a', i, b').
	vg := tensor.Fold(v, 1, geff, 0)
	// out(b, b') = sum conj(g(a, i, b)) vg(a, i, b').
	g2 := tensor.Reshape(g, a*d, b)
	vg2 := tensor.Reshape(vg, a*d, vg.Dimension(2))
	return tensor.FoldC(g2, 0, vg2, 0)
}

// StringOrder evaluates the string order parameter of opi at site i,
// opj at site j, with opMid inserted on every site in between. A nil
// opMid inserts nothing, which reduces to a plain two-point correlation.
func StringOrder[T tensor.Element](p *ITEBD[T], opi *tensor.Tensor[T], i int, opMid *tensor.Tensor[T], opj *tensor.Tensor[T], j int) T {
	if i > j {
		return StringOrder(p, opj, j, opMid, opi, i)
	}
	site := i
	v1 := p.LeftBoundary(site)
	v2 := v1.Share()
	v1 = propagateRight(v1, p.CombinedMatrix(site), opi)
	v2 = propagateRight(v2, p.CombinedMatrix(site), nil)
	site++
	for site < j {
		v1 = propagateRight(v1, p.CombinedMatrix(site), opMid)
		v2 = propagateRight(v2, p.CombinedMatrix(site), nil)
		site++
	}
	value := tensor.Trace(propagateRight(v1, p.CombinedMatrix(site), opj))
	norm := tensor.Trace(propagateRight(v2, p.CombinedMatrix(site), nil))
	return value / scalarOf[T](realOf(norm))
}

// Expected returns the expectation value of a single-site operator at
// the given site.
func Expected[T tensor.Element](p *ITEBD[T], op *tensor.Tensor[T], site int) T {
	v := p.LeftBoundary(site)
	value := tensor.Trace(propagateRight(v, p.CombinedMatrix(site), op))
	norm := tensor.Trace(propagateRight(v.Share(), p.CombinedMatrix(site), nil))
	return value / scalarOf[T](realOf(norm))
}

// Expected2 returns the correlation of op1 at site i and op2 at site j.
func Expected2[T tensor.Element](p *ITEBD[T], op1 *tensor.Tensor[T], i int, op2 *tensor.Tensor[T], j int) T {
	return StringOrder(p, op1, i, nil, op2, j)
}

// Expected12 returns the expectation value of a two-site operator
// acting on (site, site+1).
func Expected12[T tensor.Element](p *ITEBD[T], op12 *tensor.Tensor[T], site int) T {
	g1 := p.CombinedMatrix(site)
	g2 := p.CombinedMatrix(site + 1)
	a, i := g1.Dimension(0), g1.Dimension(1)
	j, c := g2.Dimension(1), g2.Dimension(2)
	pair := tensor.Reshape(tensor.Fold(g1, -1, g2, 0), a, i*j, c)
	v := p.LeftBoundary(site)
	value := tensor.Trace(propagateRight(v, pair, op12))
	norm := tensor.Trace(propagateRight(v.Share(), pair, nil))
	return value / scalarOf[T](realOf(norm))
}

// Energy returns the energy per site of a Hamiltonian made of the
// two-site term op12 on every pair, averaging the even and odd bonds.
func Energy[T tensor.Element](p *ITEBD[T], op12 *tensor.Tensor[T]) float64 {
	return (realOf(Expected12(p, op12, 0)) + realOf(Expected12(p, op12, 1))) / 2
}

func realOf[T tensor.Element](v T) float64 {
	switch x := any(v).(type) {
	case float64:
		return x
	case complex128:
		return real(x)
	}
	return 0
}
