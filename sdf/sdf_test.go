package sdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quvec/tensornet/tensor"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.sdf")

	r := tensor.Random[float64](3, 4)
	c := tensor.Random[complex128](2, 2, 2)
	rv := []*tensor.RTensor{tensor.T1([]float64{1, 2}), tensor.Random[float64](2, 3)}

	out, err := NewOutDataFile(path)
	require.NoError(t, err)
	require.NoError(t, out.DumpRTensor("r", r))
	require.NoError(t, out.DumpCTensor("c", c))
	require.NoError(t, out.DumpRTensorVector("rv", rv))
	require.NoError(t, out.DumpDouble("x", 3.5))
	require.NoError(t, out.Close())

	in, err := NewInDataFile(path)
	require.NoError(t, err)
	defer in.Close()

	gotR, err := in.LoadRTensor("r")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(r.RawData(), gotR.RawData()))
	assert.Empty(t, cmp.Diff([]int(r.Dimensions()), []int(gotR.Dimensions())))

	gotC, err := in.LoadCTensor("c")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(c.RawData(), gotC.RawData()))

	gotRV, err := in.LoadRTensorVector("rv")
	require.NoError(t, err)
	require.Len(t, gotRV, 2)
	for i := range rv {
		assert.Empty(t, cmp.Diff(rv[i].RawData(), gotRV[i].RawData()))
	}

	x, err := in.LoadRTensor("x")
	require.NoError(t, err)
	assert.Equal(t, 3.5, x.At(0))
}

func TestNameMismatch(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.sdf")
	out, err := NewOutDataFile(path)
	require.NoError(t, err)
	require.NoError(t, out.DumpRTensor("alpha", tensor.T1([]float64{1})))
	require.NoError(t, out.Close())

	in, err := NewInDataFile(path)
	require.NoError(t, err)
	defer in.Close()
	_, err = in.LoadRTensor("beta")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Cause(err), ErrFormat))
}

func TestTypeMismatch(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.sdf")
	out, err := NewOutDataFile(path)
	require.NoError(t, err)
	require.NoError(t, out.DumpCTensor("z", tensor.Zeros[complex128](2)))
	require.NoError(t, out.Close())

	in, err := NewInDataFile(path)
	require.NoError(t, err)
	defer in.Close()
	_, err = in.LoadRTensor("z")
	require.Error(t, err)
}

func TestBadHeader(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.sdf")
	require.NoError(t, os.WriteFile(path, []byte("not a data file"), 0644))
	_, err := NewInDataFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Cause(err), ErrFormat))
}

func TestLockFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.sdf")
	out, err := NewOutDataFile(path)
	require.NoError(t, err)

	// The advisory lock is a sibling of the data file while open.
	_, statErr := os.Stat(path + ".lck")
	assert.NoError(t, statErr)

	require.NoError(t, out.Close())
	_, statErr = os.Stat(path + ".lck")
	assert.True(t, os.IsNotExist(statErr))
}

func TestAppend(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.sdf")
	out, err := NewOutDataFile(path)
	require.NoError(t, err)
	require.NoError(t, out.DumpDouble("a", 1))
	require.NoError(t, out.Close())

	// Reopening appends without rewriting the header.
	out, err = NewOutDataFile(path)
	require.NoError(t, err)
	require.NoError(t, out.DumpDouble("b", 2))
	require.NoError(t, out.Close())

	in, err := NewInDataFile(path)
	require.NoError(t, err)
	defer in.Close()
	a, err := in.LoadRTensor("a")
	require.NoError(t, err)
	b, err := in.LoadRTensor("b")
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.At(0))
	assert.Equal(t, 2.0, b.At(0))
}
