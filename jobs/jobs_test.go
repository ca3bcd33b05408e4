package jobs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJobFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseFile(t *testing.T) {
	t.Parallel()
	vars, err := ParseFile(strings.NewReader("h 0 2 5\n\nn 4 8 2\n"))
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "h", vars[0].Name())
	assert.Equal(t, 5, vars[0].Size())
	assert.Equal(t, 2, vars[1].Size())

	// The step count defaults to ten.
	vars, err = ParseFile(strings.NewReader("x 0 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, vars[0].Size())

	_, err = ParseFile(strings.NewReader("x 0\n"))
	require.Error(t, err)
	_, err = ParseFile(strings.NewReader("x 0 1 2 3 4\n"))
	require.Error(t, err)
}

func TestJobSelection(t *testing.T) {
	t.Parallel()
	path := writeJobFile(t, "h 0 2 3\nn 4 8 2\n")
	job, printJobs, err := NewJob([]string{"--job", path})
	require.NoError(t, err)
	assert.False(t, printJobs)
	assert.Equal(t, 6, job.NumberOfJobs())

	// The first variable varies fastest across the cartesian product.
	require.NoError(t, job.Select(0))
	h, err := job.GetValue("h")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, h, 1e-14)

	require.NoError(t, job.Select(2))
	h, _ = job.GetValue("h")
	n, _ := job.GetValue("n")
	assert.InDelta(t, 2.0, h, 1e-14)
	assert.InDelta(t, 4.0, n, 1e-14)

	require.NoError(t, job.Select(5))
	h, _ = job.GetValue("h")
	n, _ = job.GetValue("n")
	assert.InDelta(t, 2.0, h, 1e-14)
	assert.InDelta(t, 8.0, n, 1e-14)

	require.Error(t, job.Select(6))

	_, err = job.GetValue("missing")
	require.Error(t, err)
	assert.Equal(t, 1.5, job.GetValueWithDefault("missing", 1.5))
}

func TestJobFlags(t *testing.T) {
	t.Parallel()
	path := writeJobFile(t, "h 0 1 4\n")
	job, printJobs, err := NewJob([]string{"--job", path, "--this-job", "3", "--print-jobs"})
	require.NoError(t, err)
	assert.True(t, printJobs)
	assert.Equal(t, 3, job.CurrentJob())
	assert.Equal(t, 4, job.NumberOfJobs())

	_, _, err = NewJob([]string{"--this-job", "1"})
	require.Error(t, err)
	_, _, err = NewJob([]string{"--job", filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
}

func TestJobNext(t *testing.T) {
	t.Parallel()
	path := writeJobFile(t, "h 0 1 3\n")
	job, _, err := NewJob([]string{"--job", path})
	require.NoError(t, err)
	count := 1
	for job.Next() {
		count++
	}
	assert.Equal(t, 3, count)
}

func TestDataset(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "results.db")
	ds, err := OpenDataset(path)
	require.NoError(t, err)
	defer ds.Close()

	_, ok, err := ds.Get(0, "E")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ds.Put(0, "E", -1.25))
	require.NoError(t, ds.Put(1, "E", -2.5))
	// Upserts override.
	require.NoError(t, ds.Put(0, "E", -1.5))

	v, ok, err := ds.Get(0, "E")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -1.5, v)

	ids, values, err := ds.All("E")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, ids)
	assert.Equal(t, []float64{-1.5, -2.5}, values)

	done, err := ds.IsDone(0)
	require.NoError(t, err)
	assert.False(t, done)
	require.NoError(t, ds.MarkDone(0))
	done, err = ds.IsDone(0)
	require.NoError(t, err)
	assert.True(t, done)
}
