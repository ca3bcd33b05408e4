package itebd

import (
	"math"

	"github.com/quvec/tensornet/tensor"
)

// InfiniteGHZState returns the infinitely long GHZ state in canonical
// form: both bonds carry the flat two-value Schmidt spectrum.
func InfiniteGHZState() *RITEBD {
	g := tensor.New[float64](2, 2, 2)
	g.Set(math.Sqrt2, 0, 0, 0)
	g.Set(math.Sqrt2, 1, 1, 1)
	l := tensor.T1([]float64{1 / math.Sqrt2, 1 / math.Sqrt2})
	return New(g.Share(), l.Share(), g.Share(), l.Share(), true)
}

// InfiniteClusterState returns the infinitely long one-dimensional
// cluster state in canonical form.
func InfiniteClusterState() *RITEBD {
	g := tensor.New[float64](2, 2, 2)
	for a := 0; a < 2; a++ {
		for s := 0; s < 2; s++ {
			v := 1.0
			if a == 1 && s == 1 {
				v = -1.0
			}
			g.Set(v, a, s, s)
		}
	}
	l := tensor.T1([]float64{1 / math.Sqrt2, 1 / math.Sqrt2})
	return New(g.Share(), l.Share(), g.Share(), l.Share(), true)
}

// InfiniteAKLTState returns the infinitely long AKLT state, built from
// the Pauli matrices acting on the virtual spin-1/2 pair.
func InfiniteAKLTState() *RITEBD {
	g := tensor.New[float64](2, 3, 2)
	// g(:, 0, :) is i times Pauli y.
	g.Set(1, 0, 0, 1)
	g.Set(-1, 1, 0, 0)
	// g(:, 1, :) is Pauli z.
	g.Set(1, 0, 1, 0)
	g.Set(-1, 1, 1, 1)
	// g(:, 2, :) is Pauli x.
	g.Set(1, 0, 2, 1)
	g.Set(1, 1, 2, 0)
	l := tensor.T1([]float64{1 / math.Sqrt2, 1 / math.Sqrt2})
	state := New(g.Share(), l.Share(), g.Share(), l.Share(), false)
	return state.CanonicalForm()
}
