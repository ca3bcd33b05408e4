package mps

import (
	"log"
	"math"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/linalg"
	"github.com/quvec/tensornet/tensor"
)

// DMRG is the density matrix renormalization group ground state search
// over matrix product states. After construction the public fields tune
// the sweeps; Minimize runs the optimization.
type DMRG struct {
	// Sweeps is the maximum number of back and forth passes.
	Sweeps int
	// Display turns on per-sweep progress logging.
	Display bool
	// Tolerance is the relative energy convergence criterion between
	// sweeps.
	Tolerance float64
	// SVDTolerance governs the two-site truncations.
	SVDTolerance float64
	// AllowEGrowth is how many sweeps the energy may grow before the
	// search aborts.
	AllowEGrowth int
	// Neigenvalues is the number of eigenpairs requested at every site
	// problem; the extra ones improve the solver's robustness.
	Neigenvalues int
	// Eigenvalues holds the energy after each sweep of the last
	// Minimize call.
	Eigenvalues *tensor.RTensor

	h   Hamiltonian
	mpo *CMPO

	orthogonal []*CMPS
	qOps       []*tensor.CTensor
	qValues    []float64
}

// NewDMRG prepares a search for the ground state of h.
func NewDMRG(h Hamiltonian) *DMRG {
	return &DMRG{
		Sweeps:       32,
		Tolerance:    1e-10,
		SVDTolerance: -1,
		AllowEGrowth: 2,
		Neigenvalues: 1,
		h:            h,
		mpo:          MPOFromHamiltonian(h, 0),
	}
}

// Size returns the number of lattice sites.
func (d *DMRG) Size() int { return d.h.Size() }

// OrthogonalTo constrains the search to the subspace orthogonal to p.
func (d *DMRG) OrthogonalTo(p *CMPS) { d.orthogonal = append(d.orthogonal, p) }

// ClearOrthogonality removes the orthogonality constraints.
func (d *DMRG) ClearOrthogonality() { d.orthogonal = nil }

// CommutesWith restricts the optimization to the eigenspace of the
// conserved single-site charge q with total value. Only diagonal charges
// are supported.
func (d *DMRG) CommutesWith(q *tensor.CTensor, value float64) {
	d.qOps = append(d.qOps, q)
	d.qValues = append(d.qValues, value)
}

// ClearConservedQuantities removes the charge constraints.
func (d *DMRG) ClearConservedQuantities() { d.qOps = nil; d.qValues = nil }

// qMPO builds the bond-2 operator of the lattice sum of a single-site
// charge.
func qMPO(q *tensor.CTensor, n int) *CMPO {
	h := NewTIHamiltonian(n, nil, q, false)
	return MPOFromHamiltonian(h, 0)
}

// dmrgEnv tracks the left and right environments of an operator
// sandwich around the active site.
type dmrgEnv struct {
	o     *CMPO
	left  []*tensor.CTensor
	right []*tensor.CTensor
}

func newDmrgEnv(p *CMPS, o *CMPO) *dmrgEnv {
	n := p.Len()
	e := &dmrgEnv{o: o, left: make([]*tensor.CTensor, n+1), right: make([]*tensor.CTensor, n+1)}
	e.left[0] = startMPOEnv(p, o, p, +1)
	e.right[n] = startMPOEnv(p, o, p, -1)
	for k := n - 1; k >= 1; k-- {
		e.right[k] = propMPO(e.right[k+1], -1, p.Site(k), o.Site(k), p.Site(k))
	}
	return e
}

func (e *dmrgEnv) updateLeft(p *CMPS, k int) {
	e.left[k+1] = propMPO(e.left[k], +1, p.Site(k), e.o.Site(k), p.Site(k))
}

func (e *dmrgEnv) updateRight(p *CMPS, k int) {
	e.right[k] = propMPO(e.right[k+1], -1, p.Site(k), e.o.Site(k), p.Site(k))
}

// stateEnv tracks plain overlap environments against a fixed state.
type stateEnv struct {
	q     *CMPS
	left  []*tensor.CTensor
	right []*tensor.CTensor
}

func newStateEnv(p, q *CMPS) *stateEnv {
	n := p.Len()
	e := &stateEnv{q: q, left: make([]*tensor.CTensor, n+1), right: make([]*tensor.CTensor, n+1)}
	e.left[0] = startMatrix(p, q, +1)
	e.right[n] = startMatrix(p, q, -1)
	for k := n - 1; k >= 1; k-- {
		e.right[k] = propMatrix(e.right[k+1], -1, p.Site(k), q.Site(k), nil)
	}
	return e
}

// effectiveMatrix contracts the environments with one or two operator
// tensors into the dense effective Hamiltonian of the active sites.
func effectiveMatrix(left, right *tensor.CTensor, w *tensor.CTensor) *tensor.CTensor {
	// wr(b, i, j, aP', aQ') = sum_{b'} w(b, i, j, b') right(aP', b', aQ').
	wr := tensor.Fold(w, mpoRightAxis, right, 1)
	// lwr(aP, aQ, i, j, aP', aQ') = sum_b left(aP, b, aQ) wr(..).
	lwr := tensor.Fold(left, 1, wr, 0)
	lwr = tensor.Permute(lwr, 1, 2)
	lwr = tensor.Permute(lwr, 2, 4)
	lwr = tensor.Permute(lwr, 3, 4)
	a := left.Dimension(0)
	d := w.Dimension(mpoUpAxis)
	a2 := right.Dimension(0)
	m := a * d * a2
	return tensor.Reshape(lwr, m, m)
}

// pairOperator merges two adjacent operator tensors into a single
// two-site tensor.
func pairOperator(w1, w2 *tensor.CTensor) *tensor.CTensor {
	b := w1.Dimension(mpoLeftAxis)
	d1, d2 := w1.Dimension(mpoUpAxis), w2.Dimension(mpoUpAxis)
	b2 := w2.Dimension(mpoRightAxis)
	t := tensor.Fold(w1, mpoRightAxis, w2, mpoLeftAxis)
	t = tensor.Permute(t, 2, 3)
	return tensor.Reshape(t, b, d1*d2, d1*d2, b2)
}

// localVector contracts the environments of an orthogonal state into its
// effective vector at the active sites.
func localVector(left, right *tensor.CTensor, sites ...*tensor.CTensor) *tensor.CTensor {
	t := tensor.Fold(left, 1, sites[0], mpsLeftAxis)
	for _, s := range sites[1:] {
		t = tensor.Fold(t, -1, s, mpsLeftAxis)
	}
	t = tensor.Fold(t, -1, right, 1)
	return tensor.Flatten(t)
}

// Minimize optimizes p towards the ground state. With maxDim zero the
// sweeps update one site at a time; a positive maxDim switches to
// two-site updates truncated to that bond dimension. It returns the
// final energy; ErrNotConverged escalates when the energy keeps growing.
func (d *DMRG) Minimize(p *CMPS, maxDim int) (float64, error) {
	n := p.Len()
	if n != d.h.Size() {
		panic(errors.Wrap(tensor.ErrDimensionsMismatch, "state and Hamiltonian sizes differ"))
	}
	*p = *NormalForm(p, -1)

	env := newDmrgEnv(p, d.mpo)
	orthoEnvs := make([]*stateEnv, len(d.orthogonal))
	for i, o := range d.orthogonal {
		orthoEnvs[i] = newStateEnv(p, o)
	}
	qEnvs := make([]*dmrgEnv, len(d.qOps))
	for i, q := range d.qOps {
		qEnvs[i] = newDmrgEnv(p, qMPO(q, n))
	}

	energies := make([]float64, 0, d.Sweeps)
	oldE := math.Inf(1)
	growth := 0
	var err error
	for sweep := 0; sweep < d.Sweeps; sweep++ {
		var e float64
		if maxDim > 0 {
			e, err = d.sweepTwoSites(p, env, orthoEnvs, qEnvs, maxDim)
		} else {
			e, err = d.sweepSingleSite(p, env, orthoEnvs, qEnvs)
		}
		if err != nil {
			return oldE, errors.Wrap(err, "")
		}
		energies = append(energies, e)
		if d.Display {
			log.Printf("dmrg sweep %d E=%.12f D=%d", sweep, e, p.MaxBond())
		}
		if e > oldE+d.Tolerance*math.Max(math.Abs(oldE), 1) {
			growth++
			if growth > d.AllowEGrowth {
				d.Eigenvalues = tensor.T1(energies)
				return e, errors.Wrap(linalg.ErrNotConverged, "energy keeps growing")
			}
		} else {
			growth = 0
		}
		if math.Abs(e-oldE) < d.Tolerance*math.Max(math.Abs(e), 1) {
			oldE = e
			break
		}
		oldE = e
	}
	d.Eigenvalues = tensor.T1(energies)
	return oldE, nil
}

// solveSite diagonalizes the effective matrix, applying the penalty
// projectors of the orthogonality constraints and the charge masks.
func (d *DMRG) solveSite(heff *tensor.CTensor, ortho []*tensor.CTensor, qeffs []*tensor.CTensor) (float64, *tensor.CTensor, error) {
	m := heff.Dimension(0)
	if len(ortho) > 0 {
		shift := complex(10+2*tensor.MatrixNormInf(heff), 0)
		for _, v := range ortho {
			norm := tensor.Norm2(v)
			if norm < epsilon {
				continue
			}
			vn := tensor.DivScalar(v, complex(norm, 0))
			proj := tensor.Fold(tensor.Reshape(vn, m, 1), 1, tensor.Reshape(tensor.Conj(vn), 1, m), 0)
			heff = tensor.Add(heff, tensor.MulScalar(proj, shift))
		}
	}
	vals, vecs, _, err := linalg.Eigs(heff, linalg.SmallestReal, min(d.Neigenvalues, m))
	if err != nil {
		return 0, nil, errors.Wrap(err, "")
	}
	x := vecs.Slice(tensor.Full(), tensor.Only(0))
	for i, qeff := range qeffs {
		x = maskCharge(x, qeff, d.qValues[i])
	}
	if norm := tensor.Norm2(x); norm > 0 {
		x = tensor.DivScalar(x, complex(norm, 0))
	}
	return real(vals.At(0)), x, nil
}

// maskCharge projects a site vector onto the eigenspace of the
// effective charge operator closest to the target value.
func maskCharge(x *tensor.CTensor, qeff *tensor.CTensor, target float64) *tensor.CTensor {
	vals, vecs, err := linalg.EigSym(qeff)
	if err != nil {
		panic(errors.Wrap(err, "charge diagonalization"))
	}
	coeff := tensor.FoldC(vecs, 0, tensor.Reshape(x, x.Size()), 0)
	cd := coeff.MutableData()
	for i, q := range vals.RawData() {
		if math.Abs(q-target) > 0.5 {
			cd[i] = 0
		}
	}
	return tensor.Mmult(vecs, coeff)
}

func (d *DMRG) sweepSingleSite(p *CMPS, env *dmrgEnv, orthoEnvs []*stateEnv, qEnvs []*dmrgEnv) (float64, error) {
	n := p.Len()
	var e float64
	update := func(k, dir int) error {
		heff := effectiveMatrix(env.left[k], env.right[k+1], d.mpo.Site(k))
		ortho := make([]*tensor.CTensor, len(orthoEnvs))
		for i, oe := range orthoEnvs {
			ortho[i] = localVector(oe.left[k], oe.right[k+1], oe.q.Site(k))
		}
		qeffs := make([]*tensor.CTensor, len(qEnvs))
		for i, qe := range qEnvs {
			qeffs[i] = effectiveMatrix(qe.left[k], qe.right[k+1], qe.o.Site(k))
		}
		energy, x, err := d.solveSite(heff, ortho, qeffs)
		if err != nil {
			return errors.Wrap(err, "")
		}
		e = energy
		a := p.Site(k).Dimension(0)
		dphys := p.Site(k).Dimension(1)
		a2 := p.Site(k).Dimension(2)
		SetCanonical(p, k, tensor.Reshape(x, a, dphys, a2), dir, true)
		if dir > 0 {
			env.updateLeft(p, k)
			for _, qe := range qEnvs {
				qe.updateLeft(p, k)
			}
			for _, oe := range orthoEnvs {
				oe.left[k+1] = propMatrix(oe.left[k], +1, p.Site(k), oe.q.Site(k), nil)
			}
		} else {
			env.updateRight(p, k)
			for _, qe := range qEnvs {
				qe.updateRight(p, k)
			}
			for _, oe := range orthoEnvs {
				oe.right[k] = propMatrix(oe.right[k+1], -1, p.Site(k), oe.q.Site(k), nil)
			}
		}
		return nil
	}

	for k := 0; k < n-1; k++ {
		if err := update(k, +1); err != nil {
			return 0, err
		}
	}
	for k := n - 1; k >= 1; k-- {
		if err := update(k, -1); err != nil {
			return 0, err
		}
	}
	return e, nil
}

func (d *DMRG) sweepTwoSites(p *CMPS, env *dmrgEnv, orthoEnvs []*stateEnv, qEnvs []*dmrgEnv, maxDim int) (float64, error) {
	n := p.Len()
	var e float64
	update := func(k, dir int) error {
		w := pairOperator(d.mpo.Site(k), d.mpo.Site(k+1))
		heff := effectiveMatrix(env.left[k], env.right[k+2], w)
		ortho := make([]*tensor.CTensor, len(orthoEnvs))
		for i, oe := range orthoEnvs {
			ortho[i] = localVector(oe.left[k], oe.right[k+2], oe.q.Site(k), oe.q.Site(k+1))
		}
		qeffs := make([]*tensor.CTensor, len(qEnvs))
		for i, qe := range qEnvs {
			qeffs[i] = effectiveMatrix(qe.left[k], qe.right[k+2], pairOperator(qe.o.Site(k), qe.o.Site(k+1)))
		}
		energy, x, err := d.solveSite(heff, ortho, qeffs)
		if err != nil {
			return errors.Wrap(err, "")
		}
		e = energy
		a := p.Site(k).Dimension(0)
		d1 := p.Site(k).Dimension(1)
		d2 := p.Site(k + 1).Dimension(1)
		a2 := p.Site(k + 1).Dimension(2)
		SetCanonical2Sites(p, tensor.Reshape(x, a, d1, d2, a2), k, dir, maxDim, d.SVDTolerance, true)
		if dir > 0 {
			env.updateLeft(p, k)
			for _, qe := range qEnvs {
				qe.updateLeft(p, k)
			}
			for _, oe := range orthoEnvs {
				oe.left[k+1] = propMatrix(oe.left[k], +1, p.Site(k), oe.q.Site(k), nil)
			}
		} else {
			env.updateRight(p, k+1)
			for _, qe := range qEnvs {
				qe.updateRight(p, k+1)
			}
			for _, oe := range orthoEnvs {
				oe.right[k+1] = propMatrix(oe.right[k+2], -1, p.Site(k+1), oe.q.Site(k+1), nil)
			}
		}
		return nil
	}

	for k := 0; k < n-2; k++ {
		if err := update(k, +1); err != nil {
			return 0, err
		}
	}
	for k := n - 2; k >= 0; k-- {
		if err := update(k, -1); err != nil {
			return 0, err
		}
	}
	return e, nil
}
