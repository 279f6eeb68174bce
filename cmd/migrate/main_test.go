package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		filename string
		want     int64
		wantErr  bool
	}{
		{"001_init.up.sql", 1, false},
		{"012_price_audit.up.sql", 12, false},
		{"noprefix.sql", 0, true},
		{"abc_bad.up.sql", 0, true},
	}

	for _, tt := range tests {
		got, err := parseVersion(tt.filename)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseVersion(%q): expected error", tt.filename)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseVersion(%q): %v", tt.filename, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseVersion(%q): got %d, want %d", tt.filename, got, tt.want)
		}
	}
}

func TestLoadDir_sortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_events.up.sql", "001_init.up.sql", "001_init.down.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	migrations, err := loadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 up migrations, got %d", len(migrations))
	}
	if migrations[0].version != 1 || migrations[1].version != 2 {
		t.Errorf("wrong order: %v", migrations)
	}
	if migrations[0].name != "001_init.up.sql" {
		t.Errorf("first migration: got %s", migrations[0].name)
	}
}
