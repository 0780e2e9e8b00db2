// Package store keeps a SQLite ledger of batch runs and per-patient verdicts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run describes one batch invocation
type Run struct {
	ID        int64
	StartedAt time.Time
	Dataset   string
	Expect    string
}

// Record is the stored outcome for one patient
type Record struct {
	RunID         int64
	PatientID     string
	SkullPresent  bool
	Votes         [4]bool
	MaxLayer      int
	LowConfidence bool
	// Profiles holds the normalized profiles in [N, S, W, E] order
	Profiles [4][]int
	// Error is the failure message; the verdict fields are unset when present
	Error     string
	CreatedAt time.Time
}

// Repository is a SQLite-backed results ledger
type Repository struct {
	db *sql.DB
}

// New opens (and migrates) the ledger at dbPath. ":memory:" gives a
// throwaway database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		dataset TEXT NOT NULL,
		expect TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS results (
		run_id INTEGER NOT NULL,
		patient_id TEXT NOT NULL,
		skull_present INTEGER NOT NULL DEFAULT 0,
		votes JSON NOT NULL,
		max_layer INTEGER NOT NULL DEFAULT 0,
		low_confidence INTEGER NOT NULL DEFAULT 0,
		profiles JSON NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, patient_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_results_patient ON results(patient_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Close closes the database
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateRun inserts a run and returns it with its ID set
func (r *Repository) CreateRun(ctx context.Context, dataset, expect string) (*Run, error) {
	run := &Run{
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Dataset:   dataset,
		Expect:    expect,
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, dataset, expect) VALUES (?, ?, ?)`,
		run.StartedAt, run.Dataset, run.Expect)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	run.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get run id: %w", err)
	}
	return run, nil
}

// GetRun loads a run by ID
func (r *Repository) GetRun(ctx context.Context, id int64) (*Run, error) {
	run := &Run{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, started_at, dataset, expect FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.StartedAt, &run.Dataset, &run.Expect)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// SaveResult stores (or replaces) the result of one patient
func (r *Repository) SaveResult(ctx context.Context, rec *Record) error {
	votes, err := json.Marshal(rec.Votes)
	if err != nil {
		return fmt.Errorf("failed to marshal votes: %w", err)
	}
	profiles, err := json.Marshal(rec.Profiles)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO results
			(run_id, patient_id, skull_present, votes, max_layer, low_confidence, profiles, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.PatientID, rec.SkullPresent, string(votes), rec.MaxLayer,
		rec.LowConfidence, string(profiles), rec.Error)
	if err != nil {
		return fmt.Errorf("failed to save result for %s: %w", rec.PatientID, err)
	}
	return nil
}

// ListResults returns the results of a run ordered by patient ID
func (r *Repository) ListResults(ctx context.Context, runID int64) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, patient_id, skull_present, votes, max_layer, low_confidence, profiles, error, created_at
		FROM results
		WHERE run_id = ?
		ORDER BY patient_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec             Record
			votes, profiles string
			createdAt       sql.NullTime
		)
		if err := rows.Scan(&rec.RunID, &rec.PatientID, &rec.SkullPresent, &votes, &rec.MaxLayer,
			&rec.LowConfidence, &profiles, &rec.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(votes), &rec.Votes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal votes: %w", err)
		}
		if err := json.Unmarshal([]byte(profiles), &rec.Profiles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profiles: %w", err)
		}
		rec.CreatedAt = createdAt.Time
		records = append(records, &rec)
	}

	return records, rows.Err()
}
