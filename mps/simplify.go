package mps

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/tensor"
)

// Truncate builds an approximation of q with every bond dimension capped
// at maxDim, by chopping the trailing bond components. It reports whether
// any bond was actually trimmed; the output is meant to seed Simplify.
func Truncate[T tensor.Element](q *MPS[T], maxDim int, periodic bool) (*MPS[T], bool) {
	out := q.Clone()
	if maxDim <= 0 {
		return out, false
	}
	trimmed := false
	n := out.Len()
	for k := 0; k < n-1; k++ {
		bond := out.Site(k).Dimension(mpsRightAxis)
		if bond <= maxDim {
			continue
		}
		trimmed = true
		out.SetSite(k, tensor.ChangeDimension(out.Site(k), mpsRightAxis, maxDim))
		out.SetSite(k+1, tensor.ChangeDimension(out.Site(k+1), mpsLeftAxis, maxDim))
	}
	if periodic {
		bond := out.Site(n - 1).Dimension(mpsRightAxis)
		if bond > maxDim {
			trimmed = true
			out.SetSite(n-1, tensor.ChangeDimension(out.Site(n-1), mpsRightAxis, maxDim))
			out.SetSite(0, tensor.ChangeDimension(out.Site(0), mpsLeftAxis, maxDim))
		}
	}
	return out, trimmed
}

// Simplify minimizes the distance between p and the linear combination
// of the states qs with the given weights, by alternating single-site
// optimizations over the given number of back and forth sweeps. The
// sense pointer carries the sweep direction between calls and is flipped
// after every pass; a nil or zero sense starts with the default negative
// sweep. It returns the relative squared error achieved.
func Simplify[T tensor.Element](p *MPS[T], qs []*MPS[T], weights []T, sense *int, sweeps int, normalize bool) float64 {
	if len(qs) == 0 || len(qs) != len(weights) {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, fmt.Sprintf("%d states, %d weights", len(qs), len(weights))))
	}
	n := p.Len()
	for _, q := range qs {
		if q.Len() != n {
			panic(errors.Wrap(tensor.ErrDimensionsMismatch, fmt.Sprintf("%d %d", q.Len(), n)))
		}
	}
	dir := -1
	if sense != nil && *sense != 0 {
		dir = clampSense(*sense)
	}

	// The squared norm of the target combination is sweep-invariant.
	var normQ2 float64
	for i, qi := range qs {
		for j, qj := range qs {
			normQ2 += realPart(conjScalar(weights[i]) * weights[j] * Scprod(qi, qj))
		}
	}

	// Start from the canonical gauge opposite to the first sweep, so
	// that the local problem stays an orthogonal projection.
	*p = *CanonicalForm(p, -dir)

	err := math.Inf(1)
	for sweep := 0; sweep < sweeps; sweep++ {
		simplifySweep(p, qs, weights, dir)
		dir = -dir

		var scal T
		for i, qi := range qs {
			scal += weights[i] * Scprod(p, qi)
		}
		normP2 := realPart(Scprod(p, p))
		newErr := (normP2 - 2*realPart(scal) + normQ2) / math.Max(normQ2, epsilon)
		if math.Abs(err-newErr) < epsilon {
			err = newErr
			break
		}
		err = newErr
	}
	if normalize {
		*p = *NormalForm(p, dir)
	}
	if sense != nil {
		*sense = dir
	}
	return err
}

// SimplifyOne is Simplify against a single target state.
func SimplifyOne[T tensor.Element](p *MPS[T], q *MPS[T], sense *int, sweeps int, normalize bool) float64 {
	return Simplify(p, []*MPS[T]{q}, []T{scalar[T](1)}, sense, sweeps, normalize)
}

// simplifySweep performs one pass of single-site updates in the given
// direction.
func simplifySweep[T tensor.Element](p *MPS[T], qs []*MPS[T], weights []T, dir int) {
	n := p.Len()

	// back[i][k] is the environment of target i on the side the sweep
	// moves towards: sites k and beyond for a rightward sweep (so
	// back[i][k+1] lies right of site k), everything left of site k
	// otherwise.
	back := make([][]*tensor.Tensor[T], len(qs))
	front := make([]*tensor.Tensor[T], len(qs))
	for i, q := range qs {
		back[i] = make([]*tensor.Tensor[T], n+1)
		if dir > 0 {
			back[i][n] = startMatrix(p, q, -1)
			for k := n - 1; k >= 1; k-- {
				back[i][k] = propMatrix(back[i][k+1], -1, p.Site(k), q.Site(k), nil)
			}
			front[i] = startMatrix(p, q, +1)
		} else {
			back[i][0] = startMatrix(p, q, +1)
			for k := 0; k < n-1; k++ {
				back[i][k+1] = propMatrix(back[i][k], +1, p.Site(k), q.Site(k), nil)
			}
			front[i] = startMatrix(p, q, -1)
		}
	}

	update := func(k int) {
		// The optimal local tensor is the weighted contraction of every
		// target with the environments around site k.
		var pk *tensor.Tensor[T]
		for i, q := range qs {
			var left, right *tensor.Tensor[T]
			if dir > 0 {
				left, right = front[i], back[i][k+1]
			} else {
				left, right = back[i][k], front[i]
			}
			t := tensor.Fold(left, 1, q.Site(k), mpsLeftAxis)
			t = tensor.Fold(t, 2, right, 1)
			t = tensor.MulScalar(t, weights[i])
			if pk == nil {
				pk = t
			} else {
				pk = tensor.Add(pk, t)
			}
		}
		SetCanonical(p, k, pk, dir, true)
		for i, q := range qs {
			front[i] = propMatrix(front[i], dir, p.Site(k), q.Site(k), nil)
		}
	}

	if dir > 0 {
		for k := 0; k < n; k++ {
			update(k)
		}
	} else {
		for k := n - 1; k >= 0; k-- {
			update(k)
		}
	}
}

// clampSense saturates a sweep direction at the unit values.
func clampSense(sense int) int {
	if sense > 0 {
		return 1
	}
	if sense < 0 {
		return -1
	}
	return 0
}
