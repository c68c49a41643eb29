package cron

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS jobs (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		schedule   TEXT NOT NULL,
		params     TEXT NOT NULL DEFAULT '{}',
		enabled    INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		last_run   TEXT,
		last_error TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS job_actions (
		job_id   TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		action   TEXT NOT NULL,
		PRIMARY KEY (job_id, position)
	);
`

const jobColumns = `id, name, schedule, params, enabled, created_at, last_run, last_error`

// Store persists scheduled jobs in SQLite. Action lists live in their own
// table so their order survives round trips.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the job store at path. It can share a
// database file with other stores.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dsn := "file:" + filepath.ToSlash(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create job tables: %w", err)
	}
	return &Store{db: db}, nil
}

// List returns every job, oldest first.
func (s *Store) List(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	index := make(map[string]int)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		index[job.ID] = len(jobs)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	if len(jobs) == 0 {
		return jobs, nil
	}

	actions, err := s.db.QueryContext(ctx, `SELECT job_id, action FROM job_actions ORDER BY job_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query job actions: %w", err)
	}
	defer actions.Close()
	for actions.Next() {
		var id, action string
		if err := actions.Scan(&id, &action); err != nil {
			return nil, fmt.Errorf("scan job action: %w", err)
		}
		if i, ok := index[id]; ok {
			jobs[i].Actions = append(jobs[i].Actions, action)
		}
	}
	return jobs, actions.Err()
}

// Get returns the job called name. ok is false when there is none.
func (s *Store) Get(ctx context.Context, name string) (job Job, ok bool, err error) {
	job, err = scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT action FROM job_actions WHERE job_id = ? ORDER BY position`, job.ID)
	if err != nil {
		return Job{}, false, fmt.Errorf("query job actions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return Job{}, false, fmt.Errorf("scan job action: %w", err)
		}
		job.Actions = append(job.Actions, action)
	}
	return job, true, rows.Err()
}

// Put stores the definition of job: name, schedule, actions, params and
// the enabled flag. Run results are only written by RecordResult.
func (s *Store) Put(ctx context.Context, job Job) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (id, name, schedule, params, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			schedule = excluded.schedule,
			params = excluded.params,
			enabled = excluded.enabled
	`, job.ID, job.Name, job.Schedule, string(params), job.Enabled, job.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_actions WHERE job_id = ?`, job.ID); err != nil {
		return fmt.Errorf("clear job actions: %w", err)
	}
	for i, action := range job.Actions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_actions (job_id, position, action) VALUES (?, ?, ?)`, job.ID, i, action); err != nil {
			return fmt.Errorf("save job action %s: %w", action, err)
		}
	}
	return tx.Commit()
}

// SetEnabled flips the enabled flag of the job with id.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET enabled = ? WHERE id = ?`, enabled, id)
	return err
}

// RecordResult stores the time and outcome of the latest run. A nil runErr
// clears the last error.
func (s *Store) RecordResult(ctx context.Context, id string, at time.Time, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET last_run = ?, last_error = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), msg, id)
	return err
}

// Delete removes the job with id and its actions.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		job       Job
		params    string
		createdAt string
		lastRun   sql.NullString
	)
	if err := row.Scan(&job.ID, &job.Name, &job.Schedule, &params, &job.Enabled,
		&createdAt, &lastRun, &job.LastError); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, err
		}
		return Job{}, fmt.Errorf("scan job: %w", err)
	}

	if err := json.Unmarshal([]byte(params), &job.Params); err != nil {
		return Job{}, fmt.Errorf("job %s params: %w", job.Name, err)
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if lastRun.Valid {
		job.LastRun, _ = time.Parse(time.RFC3339Nano, lastRun.String)
	}
	return job, nil
}
