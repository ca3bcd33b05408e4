// Package jobs drives parameter sweeps: a job file declares variable
// grids, and the cartesian product of the grids is enumerated so that
// many processes can each pick one cell.
package jobs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/quvec/tensornet/sdf"
	"github.com/quvec/tensornet/tensor"
)

// Variable is one swept parameter with its value grid.
type Variable struct {
	name   string
	values *tensor.RTensor
	which  int
}

// Name returns the variable name.
func (v *Variable) Name() string { return v.name }

// Size returns the number of grid points.
func (v *Variable) Size() int { return v.values.Size() }

// Value returns the currently selected grid point.
func (v *Variable) Value() float64 { return v.values.At(v.which) }

// parseLine reads one job file line with the format
// "name min max [n_steps]", where n_steps defaults to 10. Blank lines
// are skipped.
func parseLine(line string) (*Variable, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) < 3 {
		return nil, errors.Errorf("missing values for variable %s", fields[0])
	}
	if len(fields) > 4 {
		return nil, errors.Errorf("too many arguments for variable %s", fields[0])
	}
	lo, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, errors.Wrap(err, fields[1])
	}
	hi, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, errors.Wrap(err, fields[2])
	}
	n := 10
	if len(fields) == 4 {
		n, err = strconv.Atoi(fields[3])
		if err != nil || n <= 0 {
			return nil, errors.Errorf("bad step count %s", fields[3])
		}
	}
	return &Variable{name: fields[0], values: tensor.Linspace(lo, hi, n)}, nil
}

// ParseFile reads a whole job file.
func ParseFile(r io.Reader) ([]*Variable, error) {
	out := make([]*Variable, 0)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		v, err := parseLine(scanner.Text())
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("line %d", line))
		}
		if v != nil {
			out = append(out, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return out, nil
}

// Job is one selected cell of the cartesian product of the variable
// grids.
type Job struct {
	filename  string
	variables []*Variable
	thisJob   int
	total     int
}

// NewJob parses the conventional command line arguments: --job <file>
// declares the grid file, --this-job <k> selects the k-th cell, and
// --print-jobs asks for the total count only (reported by the second
// return value).
func NewJob(args []string) (*Job, bool, error) {
	j := &Job{}
	printJobs := false
	loaded := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--job":
			i++
			if i == len(args) {
				return nil, false, errors.New("missing argument after --job")
			}
			j.filename = args[i]
			f, err := os.Open(args[i])
			if err != nil {
				return nil, false, errors.Wrap(err, "")
			}
			j.variables, err = ParseFile(f)
			f.Close()
			if err != nil {
				return nil, false, errors.Wrap(err, j.filename)
			}
			loaded = true
		case "--print-jobs":
			printJobs = true
		case "--this-job":
			i++
			if i == len(args) {
				return nil, false, errors.New("missing argument to --this-job")
			}
			k, err := strconv.Atoi(args[i])
			if err != nil {
				return nil, false, errors.Wrap(err, args[i])
			}
			j.thisJob = k
		}
	}
	if !loaded {
		return nil, false, errors.New("missing --job file option")
	}
	if len(j.variables) == 0 {
		return nil, false, errors.Errorf("job file %s contained no variables", j.filename)
	}
	j.total = 1
	for _, v := range j.variables {
		j.total *= v.Size()
	}
	if err := j.Select(j.thisJob); err != nil {
		return nil, false, errors.Wrap(err, "")
	}
	return j, printJobs, nil
}

// NumberOfJobs returns the total cell count.
func (j *Job) NumberOfJobs() int { return j.total }

// CurrentJob returns the selected cell index.
func (j *Job) CurrentJob() int { return j.thisJob }

// Select picks the k-th cell, decomposing the index over the grids with
// the first variable varying fastest.
func (j *Job) Select(which int) error {
	if which < 0 || which >= j.total {
		return errors.Errorf("cannot select job %d out of %d in job file %s", which, j.total, j.filename)
	}
	j.thisJob = which
	i := which
	for _, v := range j.variables {
		n := v.Size()
		v.which = i % n
		i /= n
	}
	return nil
}

// Next advances to the following cell, reporting whether one remains.
func (j *Job) Next() bool {
	if j.thisJob+1 >= j.total {
		return false
	}
	return j.Select(j.thisJob+1) == nil
}

// GetValue returns the selected value of a variable.
func (j *Job) GetValue(name string) (float64, error) {
	for _, v := range j.variables {
		if v.name == name {
			return v.Value(), nil
		}
	}
	return 0, errors.Errorf("variable %s not found in job file %s", name, j.filename)
}

// GetValueWithDefault returns the selected value, or def when the
// variable is not declared.
func (j *Job) GetValueWithDefault(name string, def float64) float64 {
	v, err := j.GetValue(name)
	if err != nil {
		return def
	}
	return v
}

// Variables lists the declared variables.
func (j *Job) Variables() []*Variable { return j.variables }

// DumpVariables records the selected values into a data file.
func (j *Job) DumpVariables(f *sdf.OutDataFile) error {
	for _, v := range j.variables {
		if err := f.DumpDouble(v.name, v.Value()); err != nil {
			return errors.Wrap(err, v.name)
		}
	}
	return nil
}
