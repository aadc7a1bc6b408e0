package recorder

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	pf "github.com/jhoydich/range-localizer"
	"github.com/jhoydich/range-localizer/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMeta describes a localization run.
type RunMeta struct {
	Particles int
	Seed      uint64
	MapSource string
}

// Run is a stored run header.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Particles  int
	Seed       uint64
	MapSource  string
	Steps      int
}

// SQLiteStore records every result of one run into a SQLite database, keyed
// by a fresh run id, so that runs can be compared after the fact.
type SQLiteStore struct {
	db     *sql.DB
	runID  string
	insert *sql.Stmt
	steps  int
}

// OpenDB opens (creating if needed) the database at path and brings its
// schema up to date.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	// m is not closed: closing it would close db too.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	log.Debug(fmt.Sprintf("[migrate] "+format, v...))
}

func (migrateLogger) Verbose() bool { return false }

// NewSQLiteStore opens path and starts a new run in it.
func NewSQLiteStore(path string, meta RunMeta) (*SQLiteStore, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	s, err := StartRun(db, meta)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// StartRun inserts a run header into an already migrated db. The store owns
// db from here on and closes it on Close.
func StartRun(db *sql.DB, meta RunMeta) (*SQLiteStore, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO runs (run_id, started_at, particles, seed, map_source) VALUES (?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), meta.Particles, int64(meta.Seed), meta.MapSource,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	stmt, err := db.Prepare(`INSERT INTO estimates
		(run_id, step, sim_time, est_x, est_y, est_theta, true_x, true_y, true_theta, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	log.Info("run started", "run_id", id, "particles", meta.Particles)
	return &SQLiteStore{db: db, runID: id, insert: stmt}, nil
}

// RunID is the id of the run being recorded.
func (s *SQLiteStore) RunID() string { return s.runID }

// DB exposes the underlying handle for queries.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Record(r Result) error {
	var tx, ty, tt, e sql.NullFloat64
	if r.Truth != nil {
		tx = sql.NullFloat64{Float64: r.Truth.X, Valid: true}
		ty = sql.NullFloat64{Float64: r.Truth.Y, Valid: true}
		tt = sql.NullFloat64{Float64: r.Truth.Theta, Valid: true}
		e = sql.NullFloat64{Float64: r.Error, Valid: true}
	}
	_, err := s.insert.Exec(s.runID, r.Step, r.Time,
		r.Estimate.X, r.Estimate.Y, r.Estimate.Theta, tx, ty, tt, e)
	if err != nil {
		return fmt.Errorf("failed to record step %d: %w", r.Step, err)
	}
	s.steps++
	return nil
}

// Close marks the run finished and closes the database.
func (s *SQLiteStore) Close() error {
	_, err := s.db.Exec(`UPDATE runs SET finished_at = ?, steps = ? WHERE run_id = ?`,
		time.Now().UTC(), s.steps, s.runID)
	if err != nil {
		err = fmt.Errorf("failed to finish run: %w", err)
	}
	return errors.Join(err, s.insert.Close(), s.db.Close())
}

// ListRuns returns all stored runs, oldest first.
func ListRuns(db *sql.DB) ([]Run, error) {
	rows, err := db.Query(`SELECT run_id, started_at, finished_at, particles, seed, map_source, steps
		FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			seed     int64
			finished sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Particles, &seed, &r.MapSource, &r.Steps); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Seed = uint64(seed)
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadResults returns the recorded results of a run in step order.
func LoadResults(db *sql.DB, runID string) ([]Result, error) {
	rows, err := db.Query(`SELECT step, sim_time, est_x, est_y, est_theta, true_x, true_y, true_theta, error
		FROM estimates WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query estimates: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r             Result
			tx, ty, tt, e sql.NullFloat64
		)
		if err := rows.Scan(&r.Step, &r.Time, &r.Estimate.X, &r.Estimate.Y, &r.Estimate.Theta,
			&tx, &ty, &tt, &e); err != nil {
			return nil, fmt.Errorf("failed to scan estimate: %w", err)
		}
		if tx.Valid && ty.Valid {
			r.Truth = &pf.Pose{X: tx.Float64, Y: ty.Float64, Theta: tt.Float64}
			r.Error = e.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
