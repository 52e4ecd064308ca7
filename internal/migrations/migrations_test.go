package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(embedded, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected embedded migrations")
	}

	data, err := fs.ReadFile(embedded, "00001_init.sql")
	if err != nil {
		t.Fatalf("reading init migration: %v", err)
	}
	body := string(data)
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(body, marker) {
			t.Errorf("missing %q annotation", marker)
		}
	}

	want := []string{"organizations", "caseworkers", "qr_codes", "clients", "assessments", "action_items"}
	for _, table := range want {
		if !strings.Contains(body, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("table %q not created", table)
		}
	}
}

