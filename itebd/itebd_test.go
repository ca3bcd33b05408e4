package itebd

import (
	"math"
	"testing"

	"github.com/quvec/tensornet/mps"
	"github.com/quvec/tensornet/tensor"
)

func TestInfiniteGHZ(t *testing.T) {
	t.Parallel()
	psi := InfiniteGHZState()
	if !psi.IsCanonical() {
		t.Fatalf("ghz is built canonical")
	}
	if got := psi.Entropy(0); math.Abs(got-math.Log(2)) > 1e-12 {
		t.Fatalf("entropy %v", got)
	}
	// Perfect ferromagnetic correlations at any distance.
	for _, d := range []int{1, 2, 5} {
		got := Expected2(psi, mps.PauliZ, 0, mps.PauliZ, d)
		if math.Abs(got-1) > 1e-12 {
			t.Fatalf("distance %d: %v", d, got)
		}
	}
	if got := Expected(psi, mps.PauliZ, 0); math.Abs(got) > 1e-12 {
		t.Fatalf("<Z> %v", got)
	}
}

func TestProductStateExpectations(t *testing.T) {
	t.Parallel()
	up := tensor.T1([]float64{1, 0})
	psi := NewProduct(up)
	if got := Expected(psi, mps.PauliZ, 0); math.Abs(got-1) > 1e-13 {
		t.Fatalf("%v", got)
	}
	if got := psi.Entropy(0); math.Abs(got) > 1e-13 {
		t.Fatalf("product state has no entanglement: %v", got)
	}
	zz := tensor.Kron(mps.PauliZ, mps.PauliZ)
	if got := Expected12(psi, zz, 0); math.Abs(got-1) > 1e-13 {
		t.Fatalf("%v", got)
	}
}

func TestCanonicalFormKeepsCanonical(t *testing.T) {
	t.Parallel()
	// Canonicalizing an already canonical state must not move the
	// Schmidt spectra.
	psi := InfiniteGHZState()
	out := psi.CanonicalForm()
	if got := out.Entropy(0); math.Abs(got-math.Log(2)) > 1e-9 {
		t.Fatalf("entropy %v", got)
	}
	if got := Expected2(out, mps.PauliZ, 0, mps.PauliZ, 3); math.Abs(got-1) > 1e-9 {
		t.Fatalf("correlation %v", got)
	}
}

func TestAKLTEntropy(t *testing.T) {
	t.Parallel()
	psi := InfiniteAKLTState()
	if got := psi.Entropy(0); math.Abs(got-math.Log(2)) > 1e-12 {
		t.Fatalf("entropy %v", got)
	}
	if got := psi.Entropy(1); math.Abs(got-math.Log(2)) > 1e-12 {
		t.Fatalf("entropy %v", got)
	}
}

func TestAKLTStringOrder(t *testing.T) {
	t.Parallel()
	psi := InfiniteAKLTState()
	_, _, sz := mps.SpinOperators(1)
	szr := tensor.Real(sz)

	// The den Nijs-Rommelse string order parameter of the AKLT state is
	// -4/9 in the long distance limit.
	expSz := tensor.Real(expPiSz())
	got := StringOrder(psi, szr, 0, expSz, szr, 7)
	if math.Abs(got-(-4.0/9)) > 1e-3 {
		t.Fatalf("string order %v", got)
	}

	// The nearest neighbour spin correlation is -4/9 as well.
	c1 := StringOrder(psi, szr, 0, nil, szr, 1)
	if math.Abs(c1-(-4.0/9)) > 1e-3 {
		t.Fatalf("nearest neighbour correlation %v", c1)
	}
}

// expPiSz is exp(i pi Sz) for spin 1, the string phase factor.
func expPiSz() *tensor.CTensor {
	return tensor.T2([][]complex128{
		{-1, 0, 0},
		{0, 1, 0},
		{0, 0, -1},
	})
}

func TestApplyOperatorIdentity(t *testing.T) {
	t.Parallel()
	psi := InfiniteGHZState()
	id4 := tensor.Eye[float64](4)
	out := psi.ApplyOperator(id4, false, -1, 0)
	if got := out.Entropy(0); math.Abs(got-math.Log(2)) > 1e-10 {
		t.Fatalf("entropy %v", got)
	}
	out = out.ApplyOperator(id4, true, -1, 0)
	if got := Expected2(out, mps.PauliZ, 0, mps.PauliZ, 2); math.Abs(got-1) > 1e-9 {
		t.Fatalf("correlation %v", got)
	}
}

func TestEvolveItimeIsing(t *testing.T) {
	t.Parallel()
	// Imaginary time evolution of the critical transverse field Ising
	// model; the exact ground energy per bond is -4/pi.
	sx := mps.PauliX
	sz := mps.PauliZ
	h12 := tensor.Neg(tensor.Add(
		tensor.Kron(sz, sz),
		tensor.MulScalar(tensor.Kron2Sum(sx, sx), 0.5)))

	psi := NewProduct(tensor.T1([]float64{1, 1}))
	psi, err := EvolveItime(psi, h12, 0.05, 200, -1, 12, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	psi, err = EvolveItime(psi, h12, 0.01, 200, -1, 12, 0)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	exact := -4 / math.Pi
	if got := Energy(psi, h12); math.Abs(got-exact) > 2e-2 {
		t.Fatalf("energy %v exact %v", got, exact)
	}
}
