// Package store persists analysis runs and their per-sprint outcomes in
// SQLite so detections can be compared across parameter changes.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	sprintzero "github.com/lucasjlepore/sprint-analyzer"
	"github.com/lucasjlepore/sprint-analyzer/detection"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("store: run not found")

// Run is one persisted batch analysis.
type Run struct {
	ID        string           `json:"run_id"`
	Source    string           `json:"source"`
	CreatedAt time.Time        `json:"created_at"`
	Params    detection.Params `json:"params"`
	Analyzed  int              `json:"analyzed"`
	Skipped   int              `json:"skipped"`
}

// SprintRow is the stored summary of one analyzed sprint.
type SprintRow struct {
	RunID            string             `json:"run_id"`
	Index            int                `json:"index"`
	Position         int                `json:"position"`
	Date             string             `json:"date"`
	Distance         int                `json:"distance"`
	ForwardDuration  float64            `json:"forward_duration"`
	BackwardDuration float64            `json:"backward_duration"`
	FinalDuration    float64            `json:"final_duration"`
	Gap              float64            `json:"gap"`
	Decision         detection.Decision `json:"decision"`
	SprintLevel      float64            `json:"sprint_level"`
	Threshold        float64            `json:"threshold"`
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// migrateUp leaves m open: closing it would close the shared *sql.DB.
func (s *Store) migrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version.
func (s *Store) SchemaVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// SaveRun stores a batch and its parameters under a new run ID.
func (s *Store) SaveRun(ctx context.Context, source string, params detection.Params, batch *sprintzero.Batch) (*Run, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	run := &Run{
		ID:        uuid.New().String(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Params:    params,
		Analyzed:  len(batch.Results),
		Skipped:   len(batch.Skipped),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin run transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_id, source, created_at, params_json, analyzed, skipped)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.CreatedAt.UnixNano(), string(paramsJSON), run.Analyzed, run.Skipped,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	for _, r := range batch.Results {
		d := r.Detection
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sprint_results (
				run_id, idx, position, session_date, distance,
				forward_duration, backward_duration, final_duration, gap,
				decision, sprint_level, threshold
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, r.Index, r.Position, r.Date, r.Distance,
			d.ForwardDuration, d.BackwardDuration, d.FinalDuration, d.Gap,
			d.Decision.String(), d.SprintLevel, d.Threshold,
		); err != nil {
			return nil, fmt.Errorf("insert sprint #%d: %w", r.Index, err)
		}
	}
	for _, sk := range batch.Skipped {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO skipped_records (run_id, position, session_date, distance, reason)
			VALUES (?, ?, ?, ?, ?)`,
			run.ID, sk.Position, sk.Date, sk.Distance, sk.Reason,
		); err != nil {
			return nil, fmt.Errorf("insert skipped record %d: %w", sk.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, created_at, params_json, analyzed, skipped
		FROM analysis_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun loads one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, source, created_at, params_json, analyzed, skipped
		FROM analysis_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		createdAt  int64
		paramsJSON string
	)
	if err := row.Scan(&run.ID, &run.Source, &createdAt, &paramsJSON, &run.Analyzed, &run.Skipped); err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, fmt.Errorf("decode params of run %s: %w", run.ID, err)
	}
	return &run, nil
}

// Results returns a run's sprint rows in index order.
func (s *Store) Results(ctx context.Context, runID string) ([]SprintRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, position, session_date, distance,
		       forward_duration, backward_duration, final_duration, gap,
		       decision, sprint_level, threshold
		FROM sprint_results
		WHERE run_id = ?
		ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []SprintRow
	for rows.Next() {
		var (
			r        SprintRow
			decision string
		)
		if err := rows.Scan(
			&r.RunID, &r.Index, &r.Position, &r.Date, &r.Distance,
			&r.ForwardDuration, &r.BackwardDuration, &r.FinalDuration, &r.Gap,
			&decision, &r.SprintLevel, &r.Threshold,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Decision, err = detection.ParseDecision(decision); err != nil {
			return nil, fmt.Errorf("result #%d: %w", r.Index, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SkippedReasons returns the skip reason of each skipped record in a run,
// keyed by source position.
func (s *Store) SkippedReasons(ctx context.Context, runID string) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, reason FROM skipped_records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query skipped records: %w", err)
	}
	defer rows.Close()

	out := map[int]string{}
	for rows.Next() {
		var (
			pos    int
			reason string
		)
		if err := rows.Scan(&pos, &reason); err != nil {
			return nil, fmt.Errorf("scan skipped record: %w", err)
		}
		out[pos] = reason
	}
	return out, rows.Err()
}
