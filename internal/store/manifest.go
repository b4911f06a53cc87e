package store

import (
	"database/sql"
	"time"
)

// ProcessedFile records that one source file's rows were appended to one
// site's output.
type ProcessedFile struct {
	SiteID      string
	SourceFile  string
	Measure     string
	RowsWritten int
	RunID       sql.NullInt64
	ProcessedAt time.Time
}

// IsProcessed reports whether sourceFile has already been appended to the
// site's output for measure.
func (s *Store) IsProcessed(siteID, sourceFile, measure string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM processed_files
		WHERE site_id = ? AND source_file = ? AND measure = ?
	`, siteID, sourceFile, measure).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed records a written unit. Recording the same unit twice keeps
// the first record.
func (s *Store) MarkProcessed(pf ProcessedFile) error {
	if pf.ProcessedAt.IsZero() {
		pf.ProcessedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO processed_files (site_id, source_file, measure, rows_written, run_id, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_id, source_file, measure) DO NOTHING
	`, pf.SiteID, pf.SourceFile, pf.Measure, pf.RowsWritten, pf.RunID, pf.ProcessedAt)
	return err
}

// ProcessedFiles lists the units recorded for a site, oldest first.
func (s *Store) ProcessedFiles(siteID string) ([]ProcessedFile, error) {
	rows, err := s.db.Query(`
		SELECT site_id, source_file, measure, rows_written, run_id, processed_at
		FROM processed_files
		WHERE site_id = ?
		ORDER BY processed_at ASC, source_file ASC
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ProcessedFile
	for rows.Next() {
		var pf ProcessedFile
		if err := rows.Scan(&pf.SiteID, &pf.SourceFile, &pf.Measure, &pf.RowsWritten, &pf.RunID, &pf.ProcessedAt); err != nil {
			return nil, err
		}
		results = append(results, pf)
	}
	return results, rows.Err()
}
