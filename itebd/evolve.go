package itebd

import (
	"log"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/linalg"
	"github.com/quvec/tensornet/tensor"
)

// EvolveItime evolves the state in imaginary time under the two-site
// Hamiltonian h12, applying nsteps elementary intervals dt alternately
// on the even and odd bonds. tolerance and maxDim set the truncation
// strategy; a non-zero deltan reports the energy every that many steps.
func EvolveItime[T tensor.Element](p *ITEBD[T], h12 *tensor.Tensor[T], dt float64, nsteps int, tolerance float64, maxDim int, deltan int) (*ITEBD[T], error) {
	gate, err := linalg.Expm(tensor.MulScalar(h12, scalarOf[T](-dt)))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	out := p
	for step := 0; step < nsteps; step++ {
		out = out.ApplyOperator(gate, false, tolerance, maxDim)
		out = out.ApplyOperator(gate, true, tolerance, maxDim)
		if deltan > 0 && (step+1)%deltan == 0 {
			log.Printf("itebd step %d E=%.12f S=%.6f D=%d",
				step+1, Energy(out, h12), out.Entropy(0), out.RightDimension(0))
		}
	}
	return out, nil
}
