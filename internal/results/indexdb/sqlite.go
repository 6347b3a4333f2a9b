// Package indexdb keeps a queryable sqlite index of archived aggregates.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"dla-grow/internal/results"
)

// Row is one archived run.
type Row struct {
	JobID         string
	Path          string
	Seed          int64
	DomainSize    float64
	Radius        float64
	MaxParticles  int
	Stuck         int
	Iterations    int
	ForcedFreezes int
	Dimension     sql.NullFloat64
	RecordedAt    time.Time
}

// RowFor summarises r stored at path.
func RowFor(path string, r results.Result) Row {
	row := Row{
		JobID:         r.Header.JobID,
		Path:          path,
		Seed:          r.Config.Seed,
		DomainSize:    r.Config.DomainSize,
		Radius:        r.Config.Radius,
		MaxParticles:  r.Config.MaxParticles,
		Stuck:         len(r.Snapshot.Stuck),
		Iterations:    r.Snapshot.Iteration,
		ForcedFreezes: r.Snapshot.ForcedFreezes,
		RecordedAt:    time.Now().UTC(),
	}
	if r.HasDimension {
		row.Dimension = sql.NullFloat64{Float64: r.Dimension, Valid: true}
	}
	return row
}

// SQLiteIndex serialises writes through one goroutine so recording never
// contends with the job server's connection handlers.
type SQLiteIndex struct {
	db  *sql.DB
	log logrus.FieldLogger

	ch   chan Row
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

// OpenSQLite opens (or creates) the index at path.
func OpenSQLite(path string, log logrus.FieldLogger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, log: log, ch: make(chan Row, 1024)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			job_id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			domain_size REAL NOT NULL,
			radius REAL NOT NULL,
			max_particles INTEGER NOT NULL,
			stuck INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			forced_freezes INTEGER NOT NULL,
			dimension REAL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS runs_by_radius ON runs(radius, domain_size);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains pending rows and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Record queues r for insertion; a later row with the same job id replaces it.
func (s *SQLiteIndex) Record(r Row) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- r
}

func (s *SQLiteIndex) loop() {
	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO runs(job_id,path,seed,domain_size,radius,max_particles,stuck,iterations,forced_freezes,dimension,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		s.log.WithError(err).Error("prepare run insert")
		for range s.ch {
		}
		return
	}
	defer insert.Close()

	for r := range s.ch {
		if _, err := insert.Exec(
			r.JobID,
			r.Path,
			r.Seed,
			r.DomainSize,
			r.Radius,
			r.MaxParticles,
			r.Stuck,
			r.Iterations,
			r.ForcedFreezes,
			r.Dimension,
			r.RecordedAt.Format(time.RFC3339Nano),
		); err != nil {
			s.log.WithError(err).WithField("job_id", r.JobID).Error("index run")
		}
	}
}

// List returns every committed row ordered by job id.
func (s *SQLiteIndex) List(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT job_id,path,seed,domain_size,radius,max_particles,stuck,iterations,forced_freezes,dimension,recorded_at FROM runs ORDER BY job_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r  Row
			at string
		)
		if err := rows.Scan(&r.JobID, &r.Path, &r.Seed, &r.DomainSize, &r.Radius, &r.MaxParticles,
			&r.Stuck, &r.Iterations, &r.ForcedFreezes, &r.Dimension, &at); err != nil {
			return nil, err
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("job %s: %w", r.JobID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
