package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db, zap.NewNop())
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.MarkProcessed(ProcessedFile{SiteID: "V1", SourceFile: "a.nc", Measure: "PM25", RowsWritten: 2}); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	done, err := s.IsProcessed("V1", "a.nc", "PM25")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if !done {
		t.Error("unit recorded before reopen is not processed")
	}
}

func TestManifest(t *testing.T) {
	store := setupTestStore(t)
	const file = "20220101_PM25plus_vtas.nc"

	done, err := store.IsProcessed("V1", file, "PM25")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if done {
		t.Fatal("empty manifest reports unit as processed")
	}

	pf := ProcessedFile{SiteID: "V1", SourceFile: file, Measure: "PM25", RowsWritten: 2}
	if err := store.MarkProcessed(pf); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	pf.RowsWritten = 99
	if err := store.MarkProcessed(pf); err != nil {
		t.Fatalf("MarkProcessed duplicate: %v", err)
	}

	if done, err = store.IsProcessed("V1", file, "PM25"); err != nil || !done {
		t.Errorf("IsProcessed(V1) = %v, %v; want true, nil", done, err)
	}
	if done, err = store.IsProcessed("V2", file, "PM25"); err != nil || done {
		t.Errorf("IsProcessed(V2) = %v, %v; want false, nil", done, err)
	}

	files, err := store.ProcessedFiles("V1")
	if err != nil {
		t.Fatalf("ProcessedFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("len(files) = %d, want 1", len(files))
	}
	if files[0].RowsWritten != 2 {
		t.Errorf("RowsWritten = %d, want 2 (duplicate must not overwrite)", files[0].RowsWritten)
	}
}

func TestRuns(t *testing.T) {
	store := setupTestStore(t)

	ok, err := store.StartRun("test_data", "PM25plus_vtas")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	ok.FilesProcessed = 3
	ok.RowsWritten = 12
	if err := store.CompleteRun(ok, nil); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	failed, err := store.StartRun("test_data", "PM25plus_vtas")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.CompleteRun(failed, errors.New("grid: open x.nc: no such file")); err != nil {
		t.Fatalf("CompleteRun failed run: %v", err)
	}
	if err := store.CompleteRun(nil, nil); err != nil {
		t.Fatalf("CompleteRun(nil): %v", err)
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}

	if runs[0].ID != failed.ID {
		t.Errorf("runs[0].ID = %d, want %d", runs[0].ID, failed.ID)
	}
	if runs[0].Success {
		t.Error("failed run recorded as success")
	}
	if got := runs[0].ErrorMessage.String; got != "grid: open x.nc: no such file" {
		t.Errorf("ErrorMessage = %q", got)
	}

	if !runs[1].Success {
		t.Error("successful run recorded as failure")
	}
	if runs[1].FilesProcessed != 3 || runs[1].RowsWritten != 12 {
		t.Errorf("counts = %d files, %d rows; want 3, 12", runs[1].FilesProcessed, runs[1].RowsWritten)
	}
	if !runs[1].FinishedAt.Valid {
		t.Error("FinishedAt not set")
	}
}
