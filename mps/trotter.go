package mps

import (
	"math"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/linalg"
	"github.com/quvec/tensornet/tensor"
)

// TimeSolver approximates the time evolution of a complex matrix product
// state over one fixed short step.
type TimeSolver interface {
	// OneStep advances the state by one time step within bond dimension
	// maxDim, returning the accumulated truncation error.
	OneStep(p *CMPS, maxDim int) (float64, error)
	// TimeStep returns how long in time the solver advances.
	TimeStep() complex128
}

// TrotterOptions tune the Trotter solvers.
type TrotterOptions struct {
	optimize  bool
	tolerance float64
	sweeps    int
	normalize bool
}

// NewTrotterOptions returns the defaults: two-pass optimization through
// Simplify, machine tolerance, 32 sweeps, normalization on.
func NewTrotterOptions() TrotterOptions {
	return TrotterOptions{optimize: true, tolerance: -1, sweeps: 32, normalize: true}
}

// Optimize toggles the simplify-based update.
func (o TrotterOptions) Optimize(v bool) TrotterOptions { o.optimize = v; return o }

// Tolerance sets the truncation tolerance.
func (o TrotterOptions) Tolerance(v float64) TrotterOptions { o.tolerance = v; return o }

// Sweeps sets the simplification sweeps.
func (o TrotterOptions) Sweeps(v int) TrotterOptions { o.sweeps = v; return o }

// Normalize toggles normalization after each step.
func (o TrotterOptions) Normalize(v bool) TrotterOptions { o.normalize = v; return o }

// unitary is the elementary factor of a Trotter decomposition: the
// pre-exponentiated two-site gates of one parity, plus the halved local
// gates of the sites without a partner.
type unitary struct {
	u        []*tensor.CTensor
	k0, kN   int
	pairwise bool
	tol      float64
}

// newUnitary exponentiates the Hamiltonian terms for a sub-step of
// length dt starting at site k (0 or 1). With pairwise set only the
// pairs of matching parity receive a gate and the remaining sites get
// half their local term; otherwise every adjacent pair is exponentiated
// with the local terms spread so that each site is counted once.
func newUnitary(h Hamiltonian, k int, dt complex128, pairwise bool, tol float64) (*unitary, error) {
	if k != 0 && k != 1 {
		panic(errors.Wrap(tensor.ErrIndexOutOfBounds, "the initial site must be 0 or 1"))
	}
	n := h.Size()
	out := &unitary{u: make([]*tensor.CTensor, n), k0: k, kN: n, pairwise: pairwise, tol: tol}
	if pairwise {
		if (k&1)^(out.kN&1) == 1 {
			out.kN--
		}
		if out.kN-out.k0 < 2 {
			out.kN = out.k0
		}
	} else {
		out.kN = n - 1
	}

	// Evolution direction: exp(H*theta) with theta = -|Im dt| - i*Re dt,
	// so that real steps are unitary and imaginary steps decay.
	theta := complex(-math.Abs(imag(dt)), -real(dt))

	for i, di := 0, 1; i < n; i += di {
		var hi *tensor.CTensor
		if i < out.k0 || i >= out.kN {
			if !pairwise {
				di = 1
				continue
			}
			hi = tensor.DivScalar(h.LocalTerm(i, 0), 2)
			di = 1
		} else {
			f1, f2 := 0.5, 0.5
			if pairwise {
				di = 2
			} else {
				if i == 0 {
					f1 = 1
				}
				if i+2 == n {
					f2 = 1
				}
				di = 1
			}
			i1 := tensor.Eye[complex128](h.Dimension(i))
			i2 := tensor.Eye[complex128](h.Dimension(i + 1))
			hi = tensor.Add(h.Interaction(i, 0),
				tensor.Add(
					tensor.Kron2(tensor.MulScalar(h.LocalTerm(i, 0), complex(f1, 0)), i2),
					tensor.Kron2(i1, tensor.MulScalar(h.LocalTerm(i+1, 0), complex(f2, 0)))))
		}
		u, err := linalg.Expm(tensor.MulScalar(hi, theta))
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		out.u[i] = u
	}
	return out, nil
}

// applyOne acts with a halved local gate on a single site and moves the
// canonical seam across it.
func (u *unitary) applyOne(p *CMPS, k, sense int) {
	p1 := p.Site(k)
	if gate := u.u[k]; gate != nil {
		p1 = tensor.FoldIn(gate, -1, p1, mpsUpAxis)
	}
	SetCanonical(p, k, p1, sense, true)
}

// applyTwo acts with a two-site gate on (k1, k2), splits the result by
// SVD with truncation, and moves the seam in the direction of sense. It
// returns the squared-norm truncation error.
func (u *unitary) applyTwo(p *CMPS, gate *tensor.CTensor, k1, k2, sense, maxDim int) float64 {
	p1, p2 := p.Site(k1), p.Site(k2)
	a1, i1 := p1.Dimension(0), p1.Dimension(1)
	i2, a3 := p2.Dimension(1), p2.Dimension(2)

	if gate == nil {
		return 0
	}
	pair := tensor.Reshape(tensor.Fold(p1, -1, p2, 0), a1, i1*i2, a3)
	pair = tensor.FoldIn(gate, -1, pair, 1)

	pi, s, pj := svdSplit(tensor.Reshape(pair, a1*i1, i2*a3))
	a2 := s.Size()
	if sense > 0 {
		pj = tensor.Scale(pj, 0, toElem[complex128](s))
	} else {
		pi = tensor.Scale(pi, -1, toElem[complex128](s))
	}
	limit := a2
	if maxDim > 0 {
		limit = maxDim
	}
	newA2 := WhereToTruncate(s, u.tol, limit)
	var err float64
	if newA2 != a2 {
		sd := s.RawData()
		for i := newA2; i < len(sd); i++ {
			err += sd[i] * sd[i]
		}
		pi = tensor.ChangeDimension(pi, -1, newA2)
		pj = tensor.ChangeDimension(pj, 0, newA2)
		a2 = newA2
	}
	if sense > 0 {
		p.SetSite(k1, tensor.Reshape(pi, a1, i1, a2))
		SetCanonical(p, k2, tensor.Reshape(pj, a2, i2, a3), sense, true)
	} else {
		p.SetSite(k2, tensor.Reshape(pj, a2, i2, a3))
		SetCanonical(p, k1, tensor.Reshape(pi, a1, i1, a2), sense, true)
	}
	return err
}

// apply sweeps the unitary over the state in the direction of sense.
func (u *unitary) apply(p *CMPS, sense, maxDim int, normalize bool) float64 {
	n := p.Len()
	var err float64
	dk := 1
	if u.pairwise {
		dk = 2
	}
	if sense > 0 {
		if u.pairwise {
			for k := 0; k < u.k0; k++ {
				u.applyOne(p, k, sense)
			}
		}
		for k := u.k0; k < u.kN; k += dk {
			err += u.applyTwo(p, u.u[k], k, k+1, sense, maxDim)
		}
		if u.pairwise {
			for k := u.kN; k < n; k++ {
				u.applyOne(p, k, sense)
			}
		}
	} else {
		if u.pairwise {
			for k := n - 1; k >= u.kN; k-- {
				u.applyOne(p, k, sense)
			}
		}
		for k := u.kN - dk; k >= u.k0; k -= dk {
			err += u.applyTwo(p, u.u[k], k, k+1, sense, maxDim)
		}
		if u.pairwise {
			for k := u.k0 - 1; k >= 0; k-- {
				u.applyOne(p, k, sense)
			}
		}
	}
	if normalize {
		k := 0
		if sense > 0 {
			k = n - 1
		}
		pk := p.Site(k)
		if norm := tensor.Norm2(pk); norm > 0 {
			p.SetSite(k, tensor.DivScalar(pk, complex(norm, 0)))
		}
	}
	return err
}

// startSense canonicalizes the state on the solver's first step and
// fixes the initial sweep direction.
func startSense(p *CMPS, sense *int, normalize bool) {
	if *sense != 0 {
		return
	}
	if normalize {
		*p = *NormalForm(p, -1)
	} else {
		*p = *CanonicalForm(p, -1)
	}
	*sense = +1
}

// Trotter2Solver advances with the second-order formula: a left-to-right
// sweep of exp(-i*h12*dt/2) gates followed by the right-to-left sweep of
// the same.
type Trotter2Solver struct {
	u     *unitary
	dt    complex128
	sense int
	opt   TrotterOptions
}

// NewTrotter2Solver builds the solver for a nearest-neighbour
// Hamiltonian and time step.
func NewTrotter2Solver(h Hamiltonian, dt complex128, options ...TrotterOptions) (*Trotter2Solver, error) {
	opt := NewTrotterOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	u, err := newUnitary(h, 0, dt/2, false, opt.tolerance)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return &Trotter2Solver{u: u, dt: dt, opt: opt}, nil
}

// TimeStep returns the solver's step.
func (s *Trotter2Solver) TimeStep() complex128 { return s.dt }

// OneStep advances the state by dt.
func (s *Trotter2Solver) OneStep(p *CMPS, maxDim int) (float64, error) {
	startSense(p, &s.sense, s.opt.normalize)
	if s.opt.optimize {
		full := p.Clone()
		s.u.apply(full, s.sense, 0, false)
		s.sense = -s.sense
		s.u.apply(full, s.sense, 0, s.opt.normalize)
		s.sense = -s.sense
		if trimmed, changed := Truncate(full, maxDim, false); changed {
			*p = *trimmed
			return Simplify(p, []*CMPS{full}, []complex128{1}, &s.sense, s.opt.sweeps, s.opt.normalize), nil
		}
		*p = *full
		return 0, nil
	}
	err := s.u.apply(p, s.sense, maxDim, false)
	s.sense = -s.sense
	err += s.u.apply(p, s.sense, maxDim, s.opt.normalize)
	s.sense = -s.sense
	return err, nil
}

// Trotter3Solver advances with the three-pass second-order formula
// exp(-i*H_even*dt/2) exp(-i*H_odd*dt) exp(-i*H_even*dt/2).
type Trotter3Solver struct {
	u1, u2 *unitary
	dt     complex128
	sense  int
	opt    TrotterOptions
}

// NewTrotter3Solver builds the solver for a nearest-neighbour
// Hamiltonian and time step.
func NewTrotter3Solver(h Hamiltonian, dt complex128, options ...TrotterOptions) (*Trotter3Solver, error) {
	opt := NewTrotterOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	u1, err := newUnitary(h, 1, dt, true, opt.tolerance)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	u2, err := newUnitary(h, 0, dt/2, true, opt.tolerance)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return &Trotter3Solver{u1: u1, u2: u2, dt: dt, opt: opt}, nil
}

// TimeStep returns the solver's step.
func (s *Trotter3Solver) TimeStep() complex128 { return s.dt }

// OneStep advances the state by dt.
func (s *Trotter3Solver) OneStep(p *CMPS, maxDim int) (float64, error) {
	startSense(p, &s.sense, s.opt.normalize)
	if s.opt.optimize {
		full := p.Clone()
		err := s.u2.apply(full, s.sense, maxDim, false)
		s.sense = -s.sense
		err += s.u1.apply(full, s.sense, maxDim, false)
		s.sense = -s.sense
		err += s.u2.apply(full, s.sense, maxDim, false)
		s.sense = -s.sense
		if trimmed, changed := Truncate(full, maxDim, false); changed {
			*p = *trimmed
			return Simplify(p, []*CMPS{full}, []complex128{1}, &s.sense, s.opt.sweeps, s.opt.normalize), nil
		}
		*p = *full
		return err, nil
	}
	err := s.u2.apply(p, s.sense, maxDim, false)
	s.sense = -s.sense
	err += s.u1.apply(p, s.sense, maxDim, false)
	s.sense = -s.sense
	err += s.u2.apply(p, s.sense, maxDim, s.opt.normalize)
	s.sense = -s.sense
	return err, nil
}

// forestRuthTheta is the fourth-order Forest-Ruth splitting parameter.
const forestRuthTheta = 0.67560359597983

var forestRuthParam = [4]float64{
	forestRuthTheta,
	2 * forestRuthTheta,
	0.5*(1-4*forestRuthTheta) + forestRuthTheta,
	1 - 4*forestRuthTheta,
}

// ForestRuthSolver advances with the fourth-order Forest-Ruth
// decomposition, seven alternating even/odd sub-steps per step.
type ForestRuthSolver struct {
	u1, u2, u3, u4 *unitary
	dt             complex128
	sense          int
	opt            TrotterOptions
}

// NewForestRuthSolver builds the solver for a nearest-neighbour
// Hamiltonian and time step.
func NewForestRuthSolver(h Hamiltonian, dt complex128, options ...TrotterOptions) (*ForestRuthSolver, error) {
	opt := NewTrotterOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	build := func(k int, f float64) (*unitary, error) {
		return newUnitary(h, k, dt*complex(f, 0), true, opt.tolerance)
	}
	u1, err := build(0, forestRuthParam[0])
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	u2, err := build(1, forestRuthParam[1])
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	u3, err := build(0, forestRuthParam[2])
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	u4, err := build(1, forestRuthParam[3])
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return &ForestRuthSolver{u1: u1, u2: u2, u3: u3, u4: u4, dt: dt, opt: opt}, nil
}

// TimeStep returns the solver's step.
func (s *ForestRuthSolver) TimeStep() complex128 { return s.dt }

// OneStep advances the state by dt.
func (s *ForestRuthSolver) OneStep(p *CMPS, maxDim int) (float64, error) {
	startSense(p, &s.sense, s.opt.normalize)
	if s.opt.optimize {
		var err float64
		stages := [][]*unitary{
			{s.u1, s.u2},
			{s.u3, s.u4, s.u3},
			{s.u2, s.u1},
		}
		for _, stage := range stages {
			full := p.Clone()
			for _, u := range stage {
				u.apply(full, s.sense, 0, false)
				s.sense = -s.sense
			}
			if trimmed, changed := Truncate(full, maxDim, false); changed {
				*p = *trimmed
				err += Simplify(p, []*CMPS{full}, []complex128{1}, &s.sense, s.opt.sweeps, s.opt.normalize)
			} else {
				*p = *full
			}
		}
		return err, nil
	}
	var err float64
	for _, u := range []*unitary{s.u1, s.u2, s.u3, s.u4, s.u3, s.u2, s.u1} {
		err += u.apply(p, s.sense, maxDim, false)
		s.sense = -s.sense
	}
	*p = *NormalForm(p, s.sense)
	return err, nil
}
