// Package store keeps a history of sieve runs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"segsieve/internal/metrics"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT    NOT NULL,
	strategy    TEXT    NOT NULL,
	n           INTEGER NOT NULL,
	workers     INTEGER NOT NULL,
	build_s     REAL    NOT NULL,
	sieve_s     REAL    NOT NULL,
	total_s     REAL    NOT NULL,
	mem_mb      REAL    NOT NULL,
	primes      INTEGER NOT NULL,
	cpu         TEXT    NOT NULL DEFAULT ''
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_runs_n ON runs(n)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy)`,
}

// Run is one recorded report.
type Run struct {
	ID         int64
	RecordedAt time.Time
	metrics.Report
}

type Store struct {
	db  *sql.DB
	log logrus.FieldLogger
	now func() time.Time
}

// Open opens (creating if needed) the database at path and makes sure the
// runs table exists.
func Open(path string, log logrus.FieldLogger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, log: log, now: time.Now}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	log.WithField("path", path).Debug("run history opened")
	return s, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	for _, stmt := range indexes {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Set pragmas for performance
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores r and returns its id.
func (s *Store) Record(ctx context.Context, r metrics.Report) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(recorded_at, strategy, n, workers, build_s, sieve_s, total_s, mem_mb, primes, cpu)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.now().UTC().Format(time.RFC3339Nano),
		r.Strategy, r.N, r.Workers,
		r.BuildSeconds, r.SieveSeconds, r.TotalSeconds, r.MemoryMB,
		r.Primes, r.CPU,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run for n=%d: %w", r.N, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"id":       id,
		"strategy": r.Strategy,
		"n":        r.N,
	}).Debug("run recorded")
	return id, nil
}

// Recent returns up to limit runs, newest first. A limit below one means all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		id, recorded_at, strategy, n, workers, build_s, sieve_s, total_s, mem_mb, primes, cpu
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var r Run
		var recordedAt string
		if err := rows.Scan(&r.ID, &recordedAt,
			&r.Strategy, &r.N, &r.Workers,
			&r.BuildSeconds, &r.SieveSeconds, &r.TotalSeconds, &r.MemoryMB,
			&r.Primes, &r.CPU,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("run %d has a malformed timestamp %q: %w", r.ID, recordedAt, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// Count returns the number of recorded runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}
