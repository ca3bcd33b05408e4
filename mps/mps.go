// Package mps implements matrix product states and operators for
// one-dimensional quantum lattices: canonical forms, truncation,
// variational simplification, expectation values, Suzuki-Trotter and
// Krylov time evolution, and DMRG ground state search.
//
// References:
//   - The density-matrix renormalization group in the age of matrix
//     product states, Ulrich Schollwock.
//   - R. Orus and G. Vidal, Phys. Rev. B 78, 155117 (2008).
package mps

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/tensor"
)

const (
	// mpsLeftAxis is the left virtual index a_k of a site tensor.
	mpsLeftAxis = 0
	// mpsUpAxis is the physical index i_k.
	mpsUpAxis = 1
	// mpsRightAxis is the right virtual index a_{k+1}.
	mpsRightAxis = 2

	// mpoLeftAxis is the left virtual index b_k of an operator tensor.
	mpoLeftAxis = 0
	// mpoUpAxis is the output physical index.
	mpoUpAxis = 1
	// mpoDownAxis is the input physical index.
	mpoDownAxis = 2
	// mpoRightAxis is the right virtual index b_{k+1}.
	mpoRightAxis = 3

	epsilon = 0x1p-52
)

// MPS is a matrix product state: an ordered list of rank-3 site tensors
// indexed as (left bond, physical, right bond). Open boundary conditions
// have size-1 boundary bonds; periodic states carry a larger boundary
// bond that is traced over.
type MPS[T tensor.Element] struct {
	sites []*tensor.Tensor[T]
}

// RMPS is a matrix product state with real amplitudes.
type RMPS = MPS[float64]

// CMPS is a matrix product state with complex amplitudes.
type CMPS = MPS[complex128]

// NewMPS wraps a list of site tensors.
func NewMPS[T tensor.Element](sites []*tensor.Tensor[T]) *MPS[T] {
	for k, a := range sites {
		if a.Rank() != 3 {
			panic(errors.Wrap(tensor.ErrDimensionsMismatch, fmt.Sprintf("site %d rank %d", k, a.Rank())))
		}
	}
	return &MPS[T]{sites: sites}
}

// Len returns the number of sites.
func (m *MPS[T]) Len() int { return len(m.sites) }

// Site returns the tensor at site k, with wraparound.
func (m *MPS[T]) Site(k int) *tensor.Tensor[T] {
	return m.sites[tensor.Normalize(k, len(m.sites))]
}

// SetSite replaces the tensor at site k.
func (m *MPS[T]) SetSite(k int, a *tensor.Tensor[T]) {
	m.sites[tensor.Normalize(k, len(m.sites))] = a
}

// Clone returns a new state sharing the site buffers copy-on-write.
func (m *MPS[T]) Clone() *MPS[T] {
	sites := make([]*tensor.Tensor[T], len(m.sites))
	for i, a := range m.sites {
		sites[i] = a.Share()
	}
	return &MPS[T]{sites: sites}
}

// BondDimensions returns the left bond of every site plus the final
// right bond.
func (m *MPS[T]) BondDimensions() tensor.Indices {
	out := make(tensor.Indices, 0, len(m.sites)+1)
	for _, a := range m.sites {
		out = append(out, a.Dimension(mpsLeftAxis))
	}
	out = append(out, m.sites[len(m.sites)-1].Dimension(mpsRightAxis))
	return out
}

// PhysicalDimensions returns the physical dimension of every site.
func (m *MPS[T]) PhysicalDimensions() tensor.Indices {
	out := make(tensor.Indices, 0, len(m.sites))
	for _, a := range m.sites {
		out = append(out, a.Dimension(mpsUpAxis))
	}
	return out
}

// MaxBond returns the largest bond dimension.
func (m *MPS[T]) MaxBond() int {
	best := 0
	for _, d := range m.BondDimensions() {
		best = max(best, d)
	}
	return best
}

// ToComplex converts a state to complex amplitudes.
func ToComplex[T tensor.Element](m *MPS[T]) *CMPS {
	sites := make([]*tensor.CTensor, len(m.sites))
	for i, a := range m.sites {
		if c, ok := any(a).(*tensor.CTensor); ok {
			sites[i] = c.Share()
		} else {
			sites[i] = tensor.ToComplex(any(a).(*tensor.RTensor))
		}
	}
	return &CMPS{sites: sites}
}

// ApplyLocalOperator acts with a single-site operator on site k.
func ApplyLocalOperator[T tensor.Element](m *MPS[T], op *tensor.Tensor[T], k int) *MPS[T] {
	out := m.Clone()
	out.SetSite(k, tensor.FoldIn(op, -1, out.Site(k), mpsUpAxis))
	return out
}

// MPSToVector contracts all sites into the full state vector, with the
// first site's physical index varying fastest. Periodic boundary bonds
// are traced over. Intended for testing on tiny systems only.
func MPSToVector[T tensor.Element](m *MPS[T]) *tensor.Tensor[T] {
	a0 := m.sites[0].Dimension(mpsLeftAxis)
	t := m.sites[0].Share()
	rows := a0 * t.Dimension(mpsUpAxis)
	t = tensor.Reshape(t, rows, t.Dimension(mpsRightAxis))
	for _, a := range m.sites[1:] {
		al, d, ar := a.Dimension(0), a.Dimension(1), a.Dimension(2)
		t = tensor.Mmult(t, tensor.Reshape(a, al, d*ar))
		rows *= d
		t = tensor.Reshape(t, rows, ar)
	}
	t = tensor.Reshape(t, a0, rows/a0, t.Dimension(1))
	return tensor.PartialTrace(t, 0, 2)
}
