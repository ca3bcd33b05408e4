package mps

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/linalg"
	"github.com/quvec/tensornet/tensor"
)

// WhereToTruncate looks for the point to cut a Schmidt vector s of
// non-negative, non-increasing values, such that the squared-norm error
// stays below the relative tolerance, and never keeps more than maxDim
// values. A negative tolerance is relaxed to machine epsilon; a zero
// tolerance only drops the trailing zeros.
func WhereToTruncate(s *tensor.RTensor, tol float64, maxDim int) int {
	sd := s.RawData()
	l := len(sd)
	if maxDim <= 0 || maxDim > l {
		maxDim = l
	}
	if tol == 0 {
		for i := l - 1; i >= 0; i-- {
			if sd[i] != 0 {
				if i < maxDim {
					return i + 1
				}
				return maxDim
			}
		}
		return 0
	}
	if tol < 0 {
		tol = epsilon
	}
	// cumulated[i] is the squared norm of everything beyond the i-th
	// value: keeping i+1 leading values makes exactly that error.
	cumulated := make([]float64, l)
	total := 0.0
	for i := l - 1; i >= 0; i-- {
		cumulated[i] = total
		total += sd[i] * sd[i]
	}
	limit := tol * total
	for i := 0; i < maxDim; i++ {
		if cumulated[i] <= limit {
			return i + 1
		}
	}
	return maxDim
}

// svdSplit decomposes a matrix and is the single SVD entry point of the
// canonicalization routines; a provider failure aborts the operation.
func svdSplit[T tensor.Element](a *tensor.Tensor[T]) (*tensor.Tensor[T], *tensor.RTensor, *tensor.Tensor[T]) {
	u, s, vh, err := linalg.SVD(a, true)
	if err != nil {
		panic(errors.Wrap(err, "svd during canonicalization"))
	}
	return u, s, vh
}

// SetCanonical stores the tensor a at site k of psi, keeping the state
// canonical in the direction of sense: the SVD is pushed onto the
// neighboring site, truncating the spectrum to the minimum sufficient
// rank when truncate is set.
func SetCanonical[T tensor.Element](psi *MPS[T], k int, a *tensor.Tensor[T], sense int, truncate bool) {
	if sense == 0 {
		panic(errors.Wrap(tensor.ErrIndexOutOfBounds, "sense 0 is not a valid direction"))
	}
	k = tensor.Normalize(k, psi.Len())
	b1, i1, b2 := a.Dimension(0), a.Dimension(1), a.Dimension(2)
	if sense > 0 {
		if k+1 == psi.Len() {
			psi.SetSite(k, a)
			return
		}
		u, s, vh := svdSplit(tensor.Reshape(a, b1*i1, b2))
		l := s.Size()
		newL := min(b1*i1, b2)
		if truncate {
			newL = WhereToTruncate(s, -1, l)
		}
		if newL != l {
			u = tensor.ChangeDimension(u, 1, newL)
			vh = tensor.ChangeDimension(vh, 0, newL)
			s = tensor.ChangeDimension(s, 0, newL)
			s = tensor.DivScalar(s, tensor.Norm2(s))
			l = newL
		}
		psi.SetSite(k, tensor.Reshape(u, b1, i1, l))
		vh = tensor.Scale(vh, 0, toElem[T](s))
		psi.SetSite(k+1, tensor.Fold(vh, -1, psi.Site(k+1), 0))
		return
	}
	if k == 0 {
		psi.SetSite(k, a)
		return
	}
	u, s, vh := svdSplit(tensor.Reshape(a, b1, i1*b2))
	l := s.Size()
	newL := min(b1, i1*b2)
	if truncate {
		newL = WhereToTruncate(s, -1, l)
	}
	if newL != l {
		u = tensor.ChangeDimension(u, 1, newL)
		vh = tensor.ChangeDimension(vh, 0, newL)
		s = tensor.ChangeDimension(s, 0, newL)
		s = tensor.DivScalar(s, tensor.Norm2(s))
		l = newL
	}
	psi.SetSite(k, tensor.Reshape(vh, l, i1, b2))
	u = tensor.Scale(u, -1, toElem[T](s))
	psi.SetSite(k-1, tensor.Fold(psi.Site(k-1), -1, u, 0))
}

// CanonicalForm rewrites a state in canonical form by sweeping SVDs in
// the direction of sense; zero picks the default negative sweep.
func CanonicalForm[T tensor.Element](psi *MPS[T], sense int) *MPS[T] {
	if sense == 0 {
		sense = -1
	}
	out := psi.Clone()
	if sense < 0 {
		for k := psi.Len() - 1; k >= 0; k-- {
			SetCanonical(out, k, out.Site(k), sense, true)
		}
	} else {
		for k := 0; k < psi.Len(); k++ {
			SetCanonical(out, k, out.Site(k), sense, true)
		}
	}
	return out
}

// NormalForm is CanonicalForm followed by normalizing the boundary site.
func NormalForm[T tensor.Element](psi *MPS[T], sense int) *MPS[T] {
	if sense == 0 {
		sense = -1
	}
	out := CanonicalForm(psi, sense)
	k := 0
	if sense > 0 {
		k = out.Len() - 1
	}
	a := out.Site(k)
	norm := tensor.Norm2(a)
	if norm < epsilon {
		panic(errors.Wrap(errors.New("cannot normalize a null state"), fmt.Sprintf("site %d", k)))
	}
	out.SetSite(k, tensor.DivScalar(a, scalar[T](norm)))
	return out
}

// SetCanonical2Sites stores a two-site tensor spanning (site, site+1),
// splitting it by SVD with truncation to maxDim and tolerance tol, and
// continues the canonicalization in the direction of sense. It returns
// the squared-norm truncation error.
func SetCanonical2Sites[T tensor.Element](psi *MPS[T], pij *tensor.Tensor[T], site int, sense int, maxDim int, tol float64, normalize bool) float64 {
	site = tensor.Normalize(site, psi.Len())
	a1, i1, j1, c1 := pij.Dimension(0), pij.Dimension(1), pij.Dimension(2), pij.Dimension(3)
	pi, s, pj := svdSplit(tensor.Reshape(pij, a1*i1, j1*c1))
	var err float64
	b1 := WhereToTruncate(s, tol, maxDim)
	if b1 != s.Size() {
		sd := s.RawData()
		for i := b1; i < len(sd); i++ {
			err += sd[i] * sd[i]
		}
		pi = tensor.ChangeDimension(pi, -1, b1)
		pj = tensor.ChangeDimension(pj, 0, b1)
		s = tensor.ChangeDimension(s, 0, b1)
	}
	if normalize {
		if norm := tensor.Norm2(s); norm > 0 {
			s = tensor.DivScalar(s, norm)
		}
	}
	pi = tensor.Reshape(pi, a1, i1, b1)
	pj = tensor.Reshape(pj, b1, j1, c1)
	if sense > 0 {
		psi.SetSite(site, pi)
		pj = tensor.Scale(pj, 0, toElem[T](s))
		SetCanonical(psi, site+1, pj, sense, true)
	} else {
		psi.SetSite(site+1, pj)
		pi = tensor.Scale(pi, -1, toElem[T](s))
		SetCanonical(psi, site, pi, sense, true)
	}
	return err
}

// toElem widens a real Schmidt vector to the element type of the state.
func toElem[T tensor.Element](s *tensor.RTensor) *tensor.Tensor[T] {
	if out, ok := any(tensor.ToComplex(s)).(*tensor.Tensor[T]); ok {
		return out
	}
	return any(s.Share()).(*tensor.Tensor[T])
}
