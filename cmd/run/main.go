// Command run sweeps the ground state of the transverse field Ising
// chain over a job grid, storing energies and magnetizations in a
// sqlite dataset plus CSV, and optionally rendering an HTML report.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"

	"github.com/quvec/tensornet/jobs"
	"github.com/quvec/tensornet/linalg"
	"github.com/quvec/tensornet/mps"
	"github.com/quvec/tensornet/tensor"
)

const (
	fnameResults = "results.csv"
	fnameDB      = "results.db"
	fnameReport  = "report.html"
)

var (
	runDir    = flag.String("d", filepath.Join("runs", "ising"), "run directory")
	plot      = flag.Bool("plot", false, "render the HTML report after solving")
	allJob    = flag.Bool("all-jobs", false, "run every job cell instead of one")
	jobFile   = flag.String("job", "", "job file with the variable grids")
	thisJob   = flag.Int("this-job", 0, "cell of the cartesian product to run")
	printJobs = flag.Bool("print-jobs", false, "print the total job count and exit")
)

// solve finds the ground state of an Ising chain of n spins with the
// transverse field h, returning the energy and transverse
// magnetization per site.
func solve(n int, h float64, maxDim int) (float64, float64, error) {
	h12 := tensor.ToComplex(tensor.Neg(tensor.Kron(mps.PauliZ, mps.PauliZ)))
	h1 := tensor.MulScalar(tensor.ToComplex(mps.PauliX), complex(-h, 0))
	ham := mps.NewTIHamiltonian(n, h12, h1, false)

	state := mps.RandomMPS[complex128](n, 2, maxDim, false)
	solver := mps.NewDMRG(ham)
	energy, err := solver.Minimize(state, maxDim)
	if err != nil {
		return 0, 0, errors.Wrap(err, "")
	}
	sx := tensor.ToComplex(mps.PauliX)
	mx := real(mps.ExpectedAll(state, sx)) / float64(n)
	return energy, mx, nil
}

func runJob(job *jobs.Job, ds *jobs.Dataset, w *csv.Writer, maxDim int) error {
	id := job.CurrentJob()
	if done, err := ds.IsDone(id); err != nil {
		return errors.Wrap(err, "")
	} else if done {
		return nil
	}

	n := int(job.GetValueWithDefault("n", 8))
	h, err := job.GetValue("h")
	if err != nil {
		return errors.Wrap(err, "")
	}
	energy, mx, err := solve(n, h, maxDim)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("job %d", id))
	}

	for name, v := range map[string]float64{"n": float64(n), "h": h, "E": energy, "mx": mx} {
		if err := ds.Put(id, name, v); err != nil {
			return errors.Wrap(err, "")
		}
	}
	if err := ds.MarkDone(id); err != nil {
		return errors.Wrap(err, "")
	}
	record := []string{
		strconv.Itoa(id),
		strconv.Itoa(n),
		strconv.FormatFloat(h, 'g', -1, 64),
		strconv.FormatFloat(energy, 'g', -1, 64),
		strconv.FormatFloat(mx, 'g', -1, 64),
	}
	if err := w.Write(record); err != nil {
		return errors.Wrap(err, "")
	}
	w.Flush()
	log.Printf("job %d n=%d h=%.4f E=%.8f mx=%.6f", id, n, h, energy, mx)
	return nil
}

// report renders energy and magnetization against the field strength.
func report(ds *jobs.Dataset, path string) error {
	jobsIdx, hs, err := ds.All("h")
	if err != nil {
		return errors.Wrap(err, "")
	}
	_, es, err := ds.All("E")
	if err != nil {
		return errors.Wrap(err, "")
	}
	_, mxs, err := ds.All("mx")
	if err != nil {
		return errors.Wrap(err, "")
	}
	if len(hs) != len(es) || len(hs) != len(mxs) {
		return errors.Errorf("inconsistent dataset: %d %d %d", len(hs), len(es), len(mxs))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Transverse field Ising ground state",
			Subtitle: fmt.Sprintf("%d grid cells", len(jobsIdx)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "h"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "E, mx"}),
	)
	xs := make([]string, len(hs))
	energy := make([]opts.LineData, len(hs))
	magnet := make([]opts.LineData, len(hs))
	for i := range hs {
		xs[i] = strconv.FormatFloat(hs[i], 'f', 3, 64)
		energy[i] = opts.LineData{Value: es[i]}
		magnet[i] = opts.LineData{Value: mxs[i]}
	}
	line.SetXAxis(xs).
		AddSeries("E", energy).
		AddSeries("mx", magnet)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer f.Close()
	return line.Render(f)
}

func run() error {
	flag.Parse()

	args := []string{"--job", *jobFile, "--this-job", strconv.Itoa(*thisJob)}
	if *printJobs {
		args = append(args, "--print-jobs")
	}
	job, printCount, err := jobs.NewJob(args)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if printCount {
		fmt.Println(job.NumberOfJobs())
		return nil
	}

	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	ds, err := jobs.OpenDataset(filepath.Join(*runDir, fnameDB))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer ds.Close()

	csvFile, err := os.OpenFile(filepath.Join(*runDir, fnameResults), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer csvFile.Close()
	w := csv.NewWriter(csvFile)

	maxDim := int(job.GetValueWithDefault("D", 16))
	if err := runJob(job, ds, w, maxDim); err != nil {
		return errors.Wrap(err, "")
	}
	for *allJob && job.Next() {
		if err := runJob(job, ds, w, maxDim); err != nil {
			return errors.Wrap(err, "")
		}
	}

	if *plot {
		if err := report(ds, filepath.Join(*runDir, fnameReport)); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

func main() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)
	if err := run(); err != nil {
		if errors.Is(errors.Cause(err), linalg.ErrNotConverged) {
			log.Printf("%+v", err)
			os.Exit(2)
		}
		log.Fatalf("%+v", err)
	}
}
