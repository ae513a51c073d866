package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the on-disk run journal backed by SQLite. It mirrors the
// orchestrator's in-memory job table so past runs can be inspected; during a
// run the in-memory table stays authoritative.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies
// migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the journal file location.
func (s *Store) Path() string {
	return s.path
}

// RunRecord describes one pipeline run.
type RunRecord struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    *time.Time
	URLFile       string
	TimestampFile string
	OutputDir     string
	Completed     int
	Partial       int
	Failed        int
}

// BeginRun inserts the run row before any job work starts.
func (s *Store) BeginRun(ctx context.Context, run RunRecord) error {
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, started_at, url_file, timestamp_file, output_dir) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		started.UTC().Format(time.RFC3339Nano),
		run.URLFile,
		run.TimestampFile,
		run.OutputDir,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time and outcome counts.
func (s *Store) FinishRun(ctx context.Context, runID string, completed, partial, failed int) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET finished_at = ?, completed = ?, partial = ?, failed = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		completed,
		partial,
		failed,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// InsertJobs mirrors freshly parsed jobs into the journal.
func (s *Store) InsertJobs(ctx context.Context, runID string, jobs []*Job) error {
	if len(jobs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert jobs: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO jobs (
        run_id, job_index, source_url, source_id, title, status,
        failure_reason, asset_path, asset_duration, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert jobs: %w", err)
	}
	defer stmt.Close()

	for _, job := range jobs {
		if _, err := stmt.ExecContext(
			ctx,
			runID,
			job.Index,
			job.SourceURL,
			job.SourceID,
			nullableString(job.Title),
			string(job.Status),
			nullableString(job.FailureReason),
			nullableString(job.AssetPath),
			job.AssetDuration,
			now,
			now,
		); err != nil {
			return fmt.Errorf("insert job %d: %w", job.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert jobs: %w", err)
	}
	return nil
}

// UpdateJob mirrors a job's current state into the journal.
func (s *Store) UpdateJob(ctx context.Context, runID string, job *Job) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET title = ?, status = ?, failure_reason = ?, asset_path = ?,
            asset_duration = ?, updated_at = ?
         WHERE run_id = ? AND job_index = ?`,
		nullableString(job.Title),
		string(job.Status),
		nullableString(job.FailureReason),
		nullableString(job.AssetPath),
		job.AssetDuration,
		time.Now().UTC().Format(time.RFC3339Nano),
		runID,
		job.Index,
	)
	if err != nil {
		return fmt.Errorf("update job %d: %w", job.Index, err)
	}
	return nil
}

// InsertSegments mirrors a job's planned segments.
func (s *Store) InsertSegments(ctx context.Context, runID string, segments []Segment) error {
	if len(segments) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert segments: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO segments (
        run_id, job_index, sequence, start_seconds, end_seconds,
        output_path, whole, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert segments: %w", err)
	}
	defer stmt.Close()

	for _, segment := range segments {
		if _, err := stmt.ExecContext(
			ctx,
			runID,
			segment.JobIndex,
			segment.Sequence,
			segment.Start,
			segment.End,
			segment.OutputPath,
			boolToInt(segment.Whole),
			now,
		); err != nil {
			return fmt.Errorf("insert segment %d/%d: %w", segment.JobIndex, segment.Sequence, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert segments: %w", err)
	}
	return nil
}

// UpdateSegmentOutcome records a segment's terminal outcome.
func (s *Store) UpdateSegmentOutcome(ctx context.Context, runID string, jobIndex, sequence int, outcome Outcome, detail string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE segments SET outcome = ?, detail = ?, updated_at = ?
         WHERE run_id = ? AND job_index = ? AND sequence = ?`,
		string(outcome),
		nullableString(detail),
		time.Now().UTC().Format(time.RFC3339Nano),
		runID,
		jobIndex,
		sequence,
	)
	if err != nil {
		return fmt.Errorf("update segment %d/%d: %w", jobIndex, sequence, err)
	}
	return nil
}

// AppendResult appends one entry to the ordered result log.
func (s *Store) AppendResult(ctx context.Context, runID string, result ExecutionResult) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO results (run_id, job_index, segment, stage, outcome, detail, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID,
		result.JobIndex,
		result.Segment,
		result.Stage,
		string(result.Outcome),
		nullableString(result.Detail),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run, or nil when the journal
// is empty.
func (s *Store) LatestRun(ctx context.Context) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, started_at, finished_at, url_file, timestamp_file,
        output_dir, completed, partial, failed
        FROM runs ORDER BY started_at DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// JobsForRun lists a run's jobs ordered by input position.
func (s *Store) JobsForRun(ctx context.Context, runID string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, job_index, source_url, source_id, title,
        status, failure_reason, asset_path, asset_duration, created_at, updated_at
        FROM jobs WHERE run_id = ? ORDER BY job_index ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		record, err := scanJobRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return records, nil
}

// ResultsForRun returns the run's result log in append order.
func (s *Store) ResultsForRun(ctx context.Context, runID string) ([]ExecutionResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT job_index, segment, stage, outcome, detail
        FROM results WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []ExecutionResult
	for rows.Next() {
		var (
			result  ExecutionResult
			outcome string
			detail  sql.NullString
		)
		if err := rows.Scan(&result.JobIndex, &result.Segment, &result.Stage, &outcome, &detail); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		result.Outcome = Outcome(outcome)
		result.Detail = detail.String
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// Stats counts a run's jobs by status.
func (s *Store) Stats(ctx context.Context, runID string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			raw   string
			count int
		)
		if err := rows.Scan(&raw, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		status, err := ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// JobRecord is the journal's view of a job.
type JobRecord struct {
	RunID         string
	Index         int
	SourceURL     string
	SourceID      string
	Title         string
	Status        Status
	FailureReason string
	AssetPath     string
	AssetDuration float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*RunRecord, error) {
	var (
		run         RunRecord
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&run.URLFile,
		&run.TimestampFile,
		&run.OutputDir,
		&run.Completed,
		&run.Partial,
		&run.Failed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	started, err := parseTimeString(startedRaw)
	if err != nil {
		return nil, err
	}
	run.StartedAt = started

	if finishedRaw.Valid && finishedRaw.String != "" {
		finished, err := parseTimeString(finishedRaw.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &finished
	}
	return &run, nil
}

func scanJobRecord(scanner rowScanner) (*JobRecord, error) {
	var (
		record        JobRecord
		title         sql.NullString
		statusRaw     string
		failureReason sql.NullString
		assetPath     sql.NullString
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&record.RunID,
		&record.Index,
		&record.SourceURL,
		&record.SourceID,
		&title,
		&statusRaw,
		&failureReason,
		&assetPath,
		&record.AssetDuration,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	status, err := ParseStatus(statusRaw)
	if err != nil {
		return nil, err
	}
	record.Status = status
	record.Title = title.String
	record.FailureReason = failureReason.String
	record.AssetPath = assetPath.String

	if record.CreatedAt, err = parseTimeString(createdRaw); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = parseTimeString(updatedRaw); err != nil {
		return nil, err
	}
	return &record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", value)
}
