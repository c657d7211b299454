package production

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/comalice/rtdevs"

	_ "modernc.org/sqlite"
)

// Store keeps traces of many runs in one SQLite database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path and initializes the
// schema.
func OpenStore(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		topology    TEXT NOT NULL,
		mode        TEXT NOT NULL,
		started_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS records (
		run_id     TEXT NOT NULL REFERENCES runs(id),
		seq        INTEGER NOT NULL,
		time       REAL NOT NULL,
		model      TEXT NOT NULL,
		kind       TEXT NOT NULL,
		port       TEXT NOT NULL DEFAULT '',
		vals       TEXT,
		sigma      REAL,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_records_model ON records(run_id, model, kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun registers run and returns a recorder appending to it.
func (s *Store) BeginRun(ctx context.Context, run RunInfo) (*SQLiteRecorder, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, fingerprint, topology, mode, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Fingerprint, run.Topology, run.Mode, run.Started.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return &SQLiteRecorder{store: s, run: run.ID}, nil
}

// Runs lists every run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fingerprint, topology, mode, started_at FROM runs ORDER BY started_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		var started string
		if err := rows.Scan(&r.ID, &r.Fingerprint, &r.Topology, &r.Mode, &started); err != nil {
			return nil, err
		}
		if r.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at for run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Records returns the trace of run in recording order. Numeric values come
// back as float64.
func (s *Store) Records(ctx context.Context, run string) ([]rtdevs.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, model, kind, port, COALESCE(vals, ''), sigma
		 FROM records WHERE run_id = ? ORDER BY seq ASC`, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []rtdevs.Record
	for rows.Next() {
		var r rtdevs.Record
		var kind, vals string
		var sigma sql.NullFloat64
		if err := rows.Scan(&r.Time, &r.Model, &kind, &r.Port, &vals, &sigma); err != nil {
			return nil, err
		}
		r.Kind = rtdevs.RecordKind(kind)
		r.Sigma = rtdevs.Infinity
		if sigma.Valid {
			r.Sigma = sigma.Float64
		}
		if vals != "" {
			if err := json.Unmarshal([]byte(vals), &r.Values); err != nil {
				return nil, fmt.Errorf("decode values of %s at %v: %w", r.Model, r.Time, err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SQLiteRecorder appends the records of one run to a Store.
type SQLiteRecorder struct {
	store *Store
	run   string

	mu  sync.Mutex
	seq int64
}

// Run returns the run ID.
func (r *SQLiteRecorder) Run() string { return r.run }

func (r *SQLiteRecorder) Record(ctx context.Context, rec rtdevs.Record) error {
	var vals sql.NullString
	if len(rec.Values) > 0 {
		data, err := json.Marshal(rec.Values)
		if err != nil {
			return fmt.Errorf("encode values: %w", err)
		}
		vals = sql.NullString{String: string(data), Valid: true}
	}
	// Passive models have an infinite sigma, stored as NULL.
	var sigma sql.NullFloat64
	if !math.IsInf(rec.Sigma, 0) && !math.IsNaN(rec.Sigma) {
		sigma = sql.NullFloat64{Float64: rec.Sigma, Valid: true}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO records (run_id, seq, time, model, kind, port, vals, sigma) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.run, r.seq, rec.Time, rec.Model, string(rec.Kind), rec.Port, vals, sigma,
	)
	if err != nil {
		return fmt.Errorf("insert record %d: %w", r.seq, err)
	}
	r.seq++
	return nil
}
