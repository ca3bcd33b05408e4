package mps

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/tensor"
)

// ProductState builds the translationally invariant product of a local
// state vector.
func ProductState[T tensor.Element](length int, local *tensor.Tensor[T]) *MPS[T] {
	if local.Rank() != 1 {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "local state vector required"))
	}
	d := local.Dimension(0)
	site := tensor.Reshape(local, 1, d, 1)
	sites := make([]*tensor.Tensor[T], length)
	for k := range sites {
		sites[k] = site.Share()
	}
	return NewMPS(sites)
}

// GHZState builds the Greenberger-Horne-Zeilinger state of the given
// length, (|00...0> + |11...1>)/sqrt(2).
func GHZState(length int, periodic bool) *RMPS {
	bulk := tensor.New[float64](2, 2, 2)
	bulk.Set(1, 0, 0, 0)
	bulk.Set(1, 1, 1, 1)

	sites := make([]*tensor.RTensor, length)
	for k := range sites {
		sites[k] = bulk.Share()
	}
	if !periodic {
		first := tensor.New[float64](1, 2, 2)
		first.Set(1, 0, 0, 0)
		first.Set(1, 0, 1, 1)
		last := tensor.New[float64](2, 2, 1)
		last.Set(1, 0, 0, 0)
		last.Set(1, 1, 1, 0)
		sites[0] = first
		sites[length-1] = last
	}
	sites[0] = tensor.DivScalar(sites[0], math.Sqrt2)
	return NewMPS(sites)
}

// ClusterState builds the one-dimensional cluster state, the result of
// entangling a line of |+> states with controlled-phase gates.
func ClusterState(length int) *RMPS {
	isqrt2 := 1 / math.Sqrt2
	// Bulk tensor: A(a, s, b) = delta(b, s) * (-1)^(a*s) / sqrt(2).
	bulk := tensor.New[float64](2, 2, 2)
	for a := 0; a < 2; a++ {
		for s := 0; s < 2; s++ {
			v := isqrt2
			if a == 1 && s == 1 {
				v = -isqrt2
			}
			bulk.Set(v, a, s, s)
		}
	}
	first := tensor.New[float64](1, 2, 2)
	first.Set(isqrt2, 0, 0, 0)
	first.Set(isqrt2, 0, 1, 1)
	last := tensor.New[float64](2, 2, 1)
	for a := 0; a < 2; a++ {
		for s := 0; s < 2; s++ {
			v := isqrt2
			if a == 1 && s == 1 {
				v = -isqrt2
			}
			last.Set(v, a, s, 0)
		}
	}

	sites := make([]*tensor.RTensor, length)
	for k := range sites {
		sites[k] = bulk.Share()
	}
	sites[0] = first
	if length > 1 {
		sites[length-1] = last
	}
	return NewMPS(sites)
}

// RandomMPS builds a random state of the given length and uniform
// physical dimension, with bonds growing towards the middle up to
// maxBond.
func RandomMPS[T tensor.Element](length, physDim, maxBond int, periodic bool) *MPS[T] {
	sites := make([]*tensor.Tensor[T], length)
	boundary := 1
	if periodic {
		boundary = maxBond
	}
	left := boundary
	for k := 0; k < length; k++ {
		right := maxBond
		if !periodic {
			// Exact bond growth for open boundaries.
			fromLeft := intPow(physDim, k+1)
			fromRight := intPow(physDim, length-1-k)
			right = min(maxBond, fromLeft, fromRight)
		}
		if k == length-1 {
			right = boundary
		}
		sites[k] = randSite[T](left, physDim, right)
		left = right
	}
	return NewMPS(sites)
}

func intPow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		if out > 1<<20 {
			return out
		}
		out *= base
	}
	return out
}

func randSite[T tensor.Element](a, d, b int) *tensor.Tensor[T] {
	t := tensor.New[T](a, d, b)
	data := t.MutableData()
	for i := range data {
		data[i] = scalarC[T](complex(rand.Float64()*2-1, rand.Float64()*2-1))
	}
	return t
}
