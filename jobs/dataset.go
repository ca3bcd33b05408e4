package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const tableResults = "results"

// Dataset is a sqlite-backed store of sweep results, keyed by the job
// cell index and a result name.
type Dataset struct {
	Path string
	db   *sql.DB
}

// OpenDataset opens or creates the store.
func OpenDataset(path string) (*Dataset, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (job INTEGER, name TEXT, value REAL, PRIMARY KEY (job, name)) STRICT`, tableResults)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return &Dataset{Path: path, db: db}, nil
}

// Close releases the database.
func (d *Dataset) Close() error {
	return d.db.Close()
}

// Put upserts one result value of a job cell.
func (d *Dataset) Put(job int, name string, value float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (job, name, value) VALUES (?, ?, ?)`, tableResults)
	if _, err := d.db.ExecContext(ctx, sqlStr, job, name, value); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%d %s", job, name))
	}
	return nil
}

// Get reads one result value; the second return reports presence.
func (d *Dataset) Get(job int, name string) (float64, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT value FROM %s WHERE job=? AND name=?`, tableResults)
	var v float64
	err := d.db.QueryRowContext(ctx, sqlStr, job, name).Scan(&v)
	switch {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, errors.Wrap(err, fmt.Sprintf("%d %s", job, name))
	}
	return v, true, nil
}

// All streams every stored value of a result name, ordered by job.
func (d *Dataset) All(name string) ([]int, []float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT job, value FROM %s WHERE name=? ORDER BY job`, tableResults)
	rows, err := d.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return nil, nil, errors.Wrap(err, name)
	}
	defer rows.Close()

	var ids []int
	var values []float64
	for rows.Next() {
		var job int
		var v float64
		if err := rows.Scan(&job, &v); err != nil {
			return nil, nil, errors.Wrap(err, "")
		}
		ids = append(ids, job)
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "")
	}
	return ids, values, nil
}

// MarkDone stamps a job cell as finished.
func (d *Dataset) MarkDone(job int) error {
	return d.Put(job, "done", 1)
}

// IsDone reports whether a job cell was stamped.
func (d *Dataset) IsDone(job int) (bool, error) {
	_, ok, err := d.Get(job, "done")
	return ok, err
}
