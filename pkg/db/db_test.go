package db

import (
	"path/filepath"
	"testing"
)

func TestInitAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Init(path)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer d.Close()

	// Tables exist and are queryable.
	for _, table := range []string{"trip_jobs", "job_queue", "cache"} {
		var count int
		if err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// Re-opening migrates idempotently.
	d2, err := Init(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	d2.Close()
}
