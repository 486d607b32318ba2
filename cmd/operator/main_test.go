package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindMigrationFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_index.sql", "001_init.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "old.sql"), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	files, err := findMigrationFiles(dir, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	if filepath.Base(files[0]) != "001_init.sql" || filepath.Base(files[1]) != "002_index.sql" {
		t.Fatalf("expected sorted files, got %v", files)
	}
}

func TestFindMigrationFilesSpecific(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	files, err := findMigrationFiles(dir, "001_init.sql")
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one file, got %v (%v)", files, err)
	}
	if _, err := findMigrationFiles(dir, "missing.sql"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
