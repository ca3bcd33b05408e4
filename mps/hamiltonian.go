package mps

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/sparse"
	"github.com/quvec/tensornet/tensor"
)

// Hamiltonian abstracts a one-dimensional lattice Hamiltonian made of
// on-site terms and nearest-neighbour interactions,
// H = sum_k h1_k + sum_k h12_{k,k+1}.
type Hamiltonian interface {
	// Size returns the number of lattice sites.
	Size() int
	// IsPeriodic reports whether the last site couples back to the first.
	IsPeriodic() bool
	// IsConstant reports whether the terms are time independent.
	IsConstant() bool
	// Interaction returns the two-site term acting on (k, k+1) as a
	// matrix over the combined physical space, with site k's index
	// varying fastest.
	Interaction(k int, t float64) *tensor.CTensor
	// InteractionDepth returns the number of product terms the
	// interaction at k splits into.
	InteractionDepth(k int, t float64) int
	// InteractionLeft returns the m-th left factor of the interaction
	// at k.
	InteractionLeft(k, m int, t float64) *tensor.CTensor
	// InteractionRight returns the m-th right factor.
	InteractionRight(k, m int, t float64) *tensor.CTensor
	// LocalTerm returns the on-site term at k.
	LocalTerm(k int, t float64) *tensor.CTensor
	// Dimension returns the physical dimension of site k.
	Dimension(k int) int
}

// TIHamiltonian is a translationally invariant Hamiltonian with a single
// interaction matrix and a single local term.
type TIHamiltonian struct {
	size     int
	h12      *tensor.CTensor
	h1       *tensor.CTensor
	o1, o2   *tensor.CTensor
	depth    int
	periodic bool
}

// NewTIHamiltonian builds a translationally invariant Hamiltonian of the
// given size. h12 is the two-site interaction matrix (site k's index
// fastest) and may be nil; h1 is the on-site term and may be nil.
func NewTIHamiltonian(size int, h12, h1 *tensor.CTensor, periodic bool) *TIHamiltonian {
	h := &TIHamiltonian{size: size, h12: h12, h1: h1, periodic: periodic}
	if h12 != nil {
		h.o1, h.o2 = DecomposeOperator(h12)
		h.depth = h.o1.Dimension(2)
	}
	d := h.Dimension(0)
	if h1 == nil {
		h.h1 = tensor.New[complex128](d, d)
	}
	return h
}

// Size returns the number of sites.
func (h *TIHamiltonian) Size() int { return h.size }

// IsPeriodic reports the boundary condition.
func (h *TIHamiltonian) IsPeriodic() bool { return h.periodic }

// IsConstant reports whether the terms depend on time.
func (h *TIHamiltonian) IsConstant() bool { return true }

// Interaction returns the two-site term for the pair (k, k+1).
func (h *TIHamiltonian) Interaction(k int, t float64) *tensor.CTensor {
	if h.h12 == nil {
		d := h.Dimension(k)
		return tensor.New[complex128](d*d, d*d)
	}
	return h.h12.Share()
}

// InteractionDepth returns the Schmidt rank of the interaction.
func (h *TIHamiltonian) InteractionDepth(k int, t float64) int { return h.depth }

// InteractionLeft returns the m-th left interaction factor.
func (h *TIHamiltonian) InteractionLeft(k, m int, t float64) *tensor.CTensor {
	return h.o1.Slice(tensor.Full(), tensor.Full(), tensor.Only(m))
}

// InteractionRight returns the m-th right interaction factor.
func (h *TIHamiltonian) InteractionRight(k, m int, t float64) *tensor.CTensor {
	return h.o2.Slice(tensor.Full(), tensor.Full(), tensor.Only(m))
}

// LocalTerm returns the on-site term.
func (h *TIHamiltonian) LocalTerm(k int, t float64) *tensor.CTensor { return h.h1.Share() }

// Dimension returns the physical dimension.
func (h *TIHamiltonian) Dimension(k int) int {
	if h.h1 != nil {
		return h.h1.Dimension(0)
	}
	d := 2
	if h.h12 != nil {
		rows := h.h12.Dimension(0)
		for d*d < rows {
			d++
		}
	}
	return d
}

// ConstantHamiltonian is a time independent Hamiltonian with
// site-dependent terms.
type ConstantHamiltonian struct {
	h12      []*tensor.CTensor
	h1       []*tensor.CTensor
	o1, o2   []*tensor.CTensor
	periodic bool
}

// NewConstantHamiltonian builds an empty Hamiltonian of the given size;
// terms are filled in with SetInteraction and SetLocal.
func NewConstantHamiltonian(size int, periodic bool) *ConstantHamiltonian {
	return &ConstantHamiltonian{
		h12:      make([]*tensor.CTensor, size),
		h1:       make([]*tensor.CTensor, size),
		o1:       make([]*tensor.CTensor, size),
		o2:       make([]*tensor.CTensor, size),
		periodic: periodic,
	}
}

// SetInteraction installs the two-site term acting on (k, k+1).
func (h *ConstantHamiltonian) SetInteraction(k int, h12 *tensor.CTensor) {
	k = tensor.Normalize(k, len(h.h12))
	h.h12[k] = h12
	h.o1[k], h.o2[k] = DecomposeOperator(h12)
}

// SetLocal installs the on-site term at k.
func (h *ConstantHamiltonian) SetLocal(k int, h1 *tensor.CTensor) {
	h.h1[tensor.Normalize(k, len(h.h1))] = h1
}

// Size returns the number of sites.
func (h *ConstantHamiltonian) Size() int { return len(h.h1) }

// IsPeriodic reports the boundary condition.
func (h *ConstantHamiltonian) IsPeriodic() bool { return h.periodic }

// IsConstant reports whether the terms depend on time.
func (h *ConstantHamiltonian) IsConstant() bool { return true }

// Interaction returns the two-site term for the pair (k, k+1).
func (h *ConstantHamiltonian) Interaction(k int, t float64) *tensor.CTensor {
	k = tensor.Normalize(k, len(h.h12))
	if h.h12[k] == nil {
		d := h.Dimension(k)
		return tensor.New[complex128](d*d, d*d)
	}
	return h.h12[k].Share()
}

// InteractionDepth returns the Schmidt rank of the interaction at k.
func (h *ConstantHamiltonian) InteractionDepth(k int, t float64) int {
	k = tensor.Normalize(k, len(h.o1))
	if h.o1[k] == nil {
		return 0
	}
	return h.o1[k].Dimension(2)
}

// InteractionLeft returns the m-th left interaction factor at k.
func (h *ConstantHamiltonian) InteractionLeft(k, m int, t float64) *tensor.CTensor {
	k = tensor.Normalize(k, len(h.o1))
	return h.o1[k].Slice(tensor.Full(), tensor.Full(), tensor.Only(m))
}

// InteractionRight returns the m-th right interaction factor at k.
func (h *ConstantHamiltonian) InteractionRight(k, m int, t float64) *tensor.CTensor {
	k = tensor.Normalize(k, len(h.o2))
	return h.o2[k].Slice(tensor.Full(), tensor.Full(), tensor.Only(m))
}

// LocalTerm returns the on-site term at k.
func (h *ConstantHamiltonian) LocalTerm(k int, t float64) *tensor.CTensor {
	k = tensor.Normalize(k, len(h.h1))
	if h.h1[k] == nil {
		d := h.Dimension(k)
		return tensor.New[complex128](d, d)
	}
	return h.h1[k].Share()
}

// Dimension returns the physical dimension of site k.
func (h *ConstantHamiltonian) Dimension(k int) int {
	k = tensor.Normalize(k, len(h.h1))
	if h.h1[k] != nil {
		return h.h1[k].Dimension(0)
	}
	if h.o1[k] != nil {
		return h.o1[k].Dimension(0)
	}
	if k > 0 && h.o2[k-1] != nil {
		return h.o2[k-1].Dimension(0)
	}
	panic(errors.Wrap(tensor.ErrInvalidDimension, fmt.Sprintf("site %d has no terms", k)))
}

// MPOFromHamiltonian assembles the matrix product operator of a
// Hamiltonian. Each interaction enlarges the bond by its Schmidt rank.
func MPOFromHamiltonian(h Hamiltonian, t float64) *CMPO {
	n := h.Size()
	sites := make([]*tensor.CTensor, n)
	if n == 1 {
		d := h.Dimension(0)
		sites[0] = tensor.Reshape(h.LocalTerm(0, t), 1, d, d, 1)
		return NewMPO(sites)
	}
	for k := 0; k < n; k++ {
		d := h.Dimension(k)
		prevDepth := 0
		if k > 0 {
			prevDepth = h.InteractionDepth(k-1, t)
		}
		depth := 0
		if k < n-1 {
			depth = h.InteractionDepth(k, t)
		}
		bl, br := 2+prevDepth, 2+depth
		w := tensor.New[complex128](bl, d, d, br)
		setBlock(w, 0, 0, identityC(d))
		setBlock(w, 0, br-1, h.LocalTerm(k, t))
		setBlock(w, bl-1, br-1, identityC(d))
		for m := 0; m < depth; m++ {
			setBlock(w, 0, 1+m, h.InteractionLeft(k, m, t))
		}
		for m := 0; m < prevDepth; m++ {
			setBlock(w, 1+m, br-1, h.InteractionRight(k-1, m, t))
		}
		switch k {
		case 0:
			w = w.Slice(tensor.Only(0), tensor.Full(), tensor.Full(), tensor.Full())
			w = tensor.Reshape(w, 1, d, d, br)
		case n - 1:
			w = w.Slice(tensor.Full(), tensor.Full(), tensor.Full(), tensor.Only(br-1))
			w = tensor.Reshape(w, bl, d, d, 1)
		}
		sites[k] = w
	}
	return NewMPO(sites)
}

func identityC(d int) *tensor.CTensor { return tensor.Eye[complex128](d) }

// setBlock writes the operator op into the (row, col) bond block of w.
func setBlock(w *tensor.CTensor, row, col int, op *tensor.CTensor) {
	d := w.Dimension(1)
	rs := []tensor.Range{tensor.Only(row), tensor.Full(), tensor.Full(), tensor.Only(col)}
	w.SetSlice(rs, tensor.Reshape(op, d, d))
}

// ExpectedHamiltonian returns <psi|H|psi> through the operator's MPO.
func ExpectedHamiltonian[T tensor.Element](psi *MPS[T], h Hamiltonian, t float64) complex128 {
	o := MPOFromHamiltonian(h, t)
	return Expectation(ToComplex(psi), o)
}

// SparseHamiltonian builds the full sparse matrix of a Hamiltonian, for
// exact diagonalization cross-checks on small lattices. The first site's
// index varies fastest in the combined basis.
func SparseHamiltonian(h Hamiltonian, t float64) *sparse.CMatrix {
	n := h.Size()
	total := 1
	dims := make([]int, n)
	for k := 0; k < n; k++ {
		dims[k] = h.Dimension(k)
		total *= dims[k]
	}
	out := sparse.New[complex128](total, total)

	embed := func(op *sparse.CMatrix, k, width int) *sparse.CMatrix {
		left, right := 1, 1
		for j := 0; j < k; j++ {
			left *= dims[j]
		}
		for j := k + width; j < n; j++ {
			right *= dims[j]
		}
		full := sparse.Kron(op, sparse.Eye[complex128](left))
		return sparse.Kron(sparse.Eye[complex128](right), full)
	}

	for k := 0; k < n; k++ {
		local := sparse.FromDense(h.LocalTerm(k, t))
		if local.NNZ() > 0 {
			out = sparse.Add(out, embed(local, k, 1))
		}
		last := k == n-1
		if last && !h.IsPeriodic() {
			continue
		}
		if last {
			// The periodic bond wraps around: embed each factor on its
			// own site and multiply the commuting embeddings.
			for m := 0; m < h.InteractionDepth(k, t); m++ {
				a := embed(sparse.FromDense(h.InteractionLeft(k, m, t)), k, 1)
				b := embed(sparse.FromDense(h.InteractionRight(k, m, t)), 0, 1)
				out = sparse.Add(out, sparse.Mmult(a, b))
			}
			continue
		}
		inter := sparse.FromDense(h.Interaction(k, t))
		if inter.NNZ() > 0 {
			out = sparse.Add(out, embed(inter, k, 2))
		}
	}
	return out
}
