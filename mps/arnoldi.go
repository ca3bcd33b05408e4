package mps

import (
	"github.com/pkg/errors"

	"github.com/quvec/tensornet/linalg"
	"github.com/quvec/tensornet/tensor"
)

// ArnoldiSolver advances a state by building a small Krylov basis of MPS
// vectors, exponentiating the effective Hamiltonian on that basis, and
// simplifying the resulting combination back into one state.
type ArnoldiSolver struct {
	dt        complex128
	h         *CMPO
	maxStates int
}

// NewArnoldiSolver builds the solver. nvectors is the Krylov basis size,
// limited to [2, 30].
func NewArnoldiSolver(h Hamiltonian, dt complex128, nvectors int) *ArnoldiSolver {
	if nvectors < 2 || nvectors > 30 {
		panic(errors.Wrap(tensor.ErrIndexOutOfBounds, "the number of states exceeds the limits [2,30]"))
	}
	return &ArnoldiSolver{dt: dt, h: MPOFromHamiltonian(h, 0), maxStates: nvectors}
}

// TimeStep returns the solver's step.
func (s *ArnoldiSolver) TimeStep() complex128 { return s.dt }

// OneStep advances the state by dt within bond dimension maxDim.
func (s *ArnoldiSolver) OneStep(p *CMPS, maxDim int) (float64, error) {
	n := s.maxStates
	overlap := tensor.New[complex128](n, n)
	heff := tensor.New[complex128](n, n)

	states := make([]*CMPS, 0, n)
	states = append(states, p.Clone())
	overlap.Set(1, 0, 0)
	heff.Set(Expectation(p, s.h), 0, 0)

	for k := 1; k < n; k++ {
		last := states[k-1]

		// Estimate the next basis vector with the three-term recurrence
		// current = H v[k-1] - <H>_{k-1} v[k-1] - <v[k-2]|H|v[k-1]> v[k-2],
		// compressed back into a bounded MPS.
		applied := Apply(s.h, last)
		vectors := []*CMPS{applied, last}
		coeffs := []complex128{1, -heff.At(k-1, k-1)}
		if k > 1 {
			vectors = append(vectors, states[k-2])
			coeffs = append(coeffs, -heff.At(k-2, k-1))
		}
		current, _ := Truncate(applied, 2*maxDim, false)
		Simplify(current, vectors, coeffs, nil, 2, true)
		states = append(states, current)

		// Extend the overlap and Hamiltonian matrices with the new
		// vector.
		for j := 0; j < k; j++ {
			v := Scprod(states[j], current)
			overlap.Set(v, j, k)
			overlap.Set(conjC(v), k, j)
			w := MatrixElement(states[j], s.h, current)
			heff.Set(w, j, k)
			heff.Set(conjC(w), k, j)
		}
		overlap.Set(1, k, k)
		heff.Set(Expectation(current, s.h), k, k)
	}

	// The basis is not orthonormal: orthogonalize through the overlap
	// matrix before exponentiating.
	m, err := linalg.SolveWithSVD(overlap, heff)
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	idt := complex(0, -1) * s.dt
	u, err := linalg.Expm(tensor.MulScalar(m, idt))
	if err != nil {
		return 0, errors.Wrap(err, "")
	}
	e1 := tensor.New[complex128](n)
	e1.Set(1, 0)
	coef := tensor.Mmult(u, e1)

	coeffs := make([]complex128, n)
	copy(coeffs, coef.RawData())
	out, _ := Truncate(states[0], maxDim, false)
	simplErr := Simplify(out, states, coeffs, nil, 12, true)
	*p = *out
	return simplErr, nil
}

func conjC(v complex128) complex128 { return complex(real(v), -imag(v)) }
