package store

import (
	"database/sql"
	"time"
)

// Run is the audit record of one extraction run.
type Run struct {
	ID             int64
	StartedAt      time.Time
	FinishedAt     sql.NullTime
	GridDir        string
	Identifier     string
	FilesProcessed int
	RowsWritten    int
	Success        bool
	ErrorMessage   sql.NullString
}

// StartRun records the start of an extraction run and returns it.
func (s *Store) StartRun(gridDir, identifier string) (*Run, error) {
	run := &Run{
		StartedAt:  time.Now().UTC(),
		GridDir:    gridDir,
		Identifier: identifier,
	}

	result, err := s.db.Exec(`
		INSERT INTO extraction_runs (started_at, grid_dir, identifier, success)
		VALUES (?, ?, ?, FALSE)
	`, run.StartedAt, run.GridDir, run.Identifier)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteRun stores the outcome of run. runErr, when set, marks it failed.
func (s *Store) CompleteRun(run *Run, runErr error) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	run.Success = runErr == nil
	if runErr != nil {
		run.ErrorMessage = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := s.db.Exec(`
		UPDATE extraction_runs SET
			finished_at = ?,
			files_processed = ?,
			rows_written = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.FilesProcessed, run.RowsWritten, run.Success, run.ErrorMessage, run.ID)
	return err
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, grid_dir, identifier,
			   COALESCE(files_processed, 0), COALESCE(rows_written, 0), success, error_message
		FROM extraction_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.GridDir, &r.Identifier,
			&r.FilesProcessed, &r.RowsWritten, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
