package mps

import (
	"fmt"
	"math"
	"testing"

	"github.com/quvec/tensornet/linalg"
	"github.com/quvec/tensornet/sparse"
	"github.com/quvec/tensornet/tensor"
)

func randomNormalState(n, maxBond int) *CMPS {
	return NormalForm(RandomMPS[complex128](n, 2, maxBond, false), -1)
}

func TestTrotterUnitarity(t *testing.T) {
	t.Parallel()
	const n = 5
	ham := isingHamiltonian(n, 0.8)
	type builder func() (TimeSolver, error)
	solvers := map[string]builder{
		"trotter2": func() (TimeSolver, error) {
			return NewTrotter2Solver(ham, 0.02, NewTrotterOptions().Optimize(false).Normalize(false))
		},
		"trotter3": func() (TimeSolver, error) {
			return NewTrotter3Solver(ham, 0.02, NewTrotterOptions().Optimize(false).Normalize(false))
		},
	}
	for name, build := range solvers {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			solver, err := build()
			if err != nil {
				t.Fatalf("%+v", err)
			}
			psi := randomNormalState(n, 4)
			// Real time steps without truncation keep the norm.
			if _, err := solver.OneStep(psi, 0); err != nil {
				t.Fatalf("%+v", err)
			}
			if got := Norm2(psi); math.Abs(got-1) > 1e-10 {
				t.Fatalf("norm %v", got)
			}
		})
	}
}

func TestTrotterMatchesExactPropagator(t *testing.T) {
	t.Parallel()
	const n = 4
	const dt = 0.01
	ham := isingHamiltonian(n, 0.9)

	psi := randomNormalState(n, 4)
	v0 := MPSToVector(psi)

	solver, err := NewTrotter2Solver(ham, dt, NewTrotterOptions().Optimize(false).Normalize(false))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := solver.OneStep(psi, 0); err != nil {
		t.Fatalf("%+v", err)
	}
	got := MPSToVector(psi)

	// Exact evolution of the same vector.
	hfull := sparse.ToDense(SparseHamiltonian(ham, 0))
	u, err := linalg.Expm(tensor.MulScalar(hfull, complex(0, -dt)))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := tensor.Mmult(u, v0)

	diff := tensor.Norm2(tensor.Sub(got, want))
	// Second order Trotter: one step errs at dt^3.
	if diff > 100*dt*dt*dt {
		t.Fatalf("propagation error %v", diff)
	}
}

func TestImaginaryTimeDecay(t *testing.T) {
	t.Parallel()
	const n = 4
	const h = 1.3
	ham := isingHamiltonian(n, h)

	hfull := sparse.ToDense(SparseHamiltonian(ham, 0))
	vals, _, err := linalg.EigSym(hfull)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	exact := vals.At(0)

	// Imaginary time evolution cools a random state to the ground
	// state.
	const dt = 0.05
	solver, err := NewTrotter2Solver(ham, complex(0, dt), NewTrotterOptions().Optimize(false))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	psi := randomNormalState(n, 4)
	for step := 0; step < 400; step++ {
		if _, err := solver.OneStep(psi, 8); err != nil {
			t.Fatalf("step %d: %+v", step, err)
		}
	}
	*psi = *NormalForm(psi, -1)
	energy := real(ExpectedHamiltonian(psi, ham, 0))
	// The Trotter error scales as dt^2.
	if math.Abs(energy-exact) > math.Max(10*dt*dt, 1e-2*math.Abs(exact)) {
		t.Fatalf("energy %v exact %v", energy, exact)
	}
}

func TestForestRuthOrder(t *testing.T) {
	t.Parallel()
	// The seven sub-steps telescope to one full step on each parity.
	even := 2*forestRuthParam[0] + 2*forestRuthParam[2]
	odd := 2*forestRuthParam[1] + forestRuthParam[3]
	if math.Abs(even-1) > 1e-12 || math.Abs(odd-1) > 1e-12 {
		t.Fatalf("%v %v", even, odd)
	}

	const n = 4
	ham := isingHamiltonian(n, 0.7)
	solver, err := NewForestRuthSolver(ham, 0.05, NewTrotterOptions().Optimize(false).Normalize(false))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	psi := randomNormalState(n, 4)
	v0 := MPSToVector(psi)
	if _, err := solver.OneStep(psi, 0); err != nil {
		t.Fatalf("%+v", err)
	}
	got := MPSToVector(psi)

	hfull := sparse.ToDense(SparseHamiltonian(ham, 0))
	u, err := linalg.Expm(tensor.MulScalar(hfull, complex(0, -0.05)))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := tensor.Mmult(u, v0)
	// A fourth order method at dt=0.05 is essentially exact here.
	if diff := tensor.Norm2(tensor.Sub(got, want)); diff > 1e-5 {
		t.Fatalf("propagation error %v", diff)
	}
}

func TestArnoldiSolver(t *testing.T) {
	t.Parallel()
	const n = 4
	const dt = 0.05
	ham := isingHamiltonian(n, 0.8)

	psi := randomNormalState(n, 4)
	v0 := MPSToVector(psi)

	solver := NewArnoldiSolver(ham, dt, 6)
	if _, err := solver.OneStep(psi, 8); err != nil {
		t.Fatalf("%+v", err)
	}
	got := MPSToVector(psi)

	hfull := sparse.ToDense(SparseHamiltonian(ham, 0))
	u, err := linalg.Expm(tensor.MulScalar(hfull, complex(0, -dt)))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := tensor.Mmult(u, v0)
	want = tensor.DivScalar(want, complex(tensor.Norm2(want), 0))

	// Compare up to the global phase through the overlap.
	overlap := tensor.Sum(tensor.Mul(tensor.Conj(want), got))
	if math.Abs(realAbs(overlap)-1) > 1e-4 {
		t.Fatalf("overlap %v", overlap)
	}
}

func realAbs(v complex128) float64 {
	return math.Hypot(real(v), imag(v))
}

func TestSenseSaturation(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct{ in, want int }{{3, 1}, {1, 1}, {0, 0}, {-2, -1}} {
		if got := clampSense(tc.in); got != tc.want {
			t.Fatalf("%d %d", got, tc.want)
		}
	}
}

func TestTrotterOptimizePath(t *testing.T) {
	t.Parallel()
	const n = 5
	ham := isingHamiltonian(n, 1.2)
	solver, err := NewTrotter2Solver(ham, 0.02, NewTrotterOptions().Optimize(true).Sweeps(8))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	psi := randomNormalState(n, 2)
	for step := 0; step < 3; step++ {
		if _, err := solver.OneStep(psi, 4); err != nil {
			t.Fatalf("%+v", err)
		}
	}
	if got := Norm2(psi); math.Abs(got-1) > 1e-8 {
		t.Fatalf("norm %v", got)
	}
	if psi.MaxBond() > 4 {
		t.Fatalf("bond %v", psi.BondDimensions())
	}
}

func ExampleGHZState() {
	psi := GHZState(4, false)
	fmt.Printf("norm %.4f\n", Norm2(psi))
	fmt.Printf("<Z0> %.4f\n", Expected(psi, PauliZ, 0))
	fmt.Printf("<Z0 Z3> %.4f\n", Expected2(psi, PauliZ, 0, PauliZ, 3))
	// Output:
	// norm 1.0000
	// <Z0> 0.0000
	// <Z0 Z3> 1.0000
}
