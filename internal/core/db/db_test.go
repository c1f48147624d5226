package db

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestNew(t *testing.T) {
	database := newTestDB(t)

	var count int
	err := database.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='credentials'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query schema: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected credentials table, got %d", count)
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	database, err := New(filepath.Join(dir, "chatify.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = database.Close() }()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected directory %s to exist: %v", dir, err)
	}
}

func TestNew_WALMode(t *testing.T) {
	database := newTestDB(t)

	var journalMode string
	err := database.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("Expected WAL mode, got %s", journalMode)
	}
}

func TestNew_BusyTimeout(t *testing.T) {
	database := newTestDB(t)

	var timeout int
	if err := database.conn.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("Failed to query busy timeout: %v", err)
	}

	if timeout != 5000 {
		t.Errorf("Expected busy timeout 5000, got %d", timeout)
	}
}

func TestCredentials(t *testing.T) {
	database := newTestDB(t)
	endpoint := "http://127.0.0.1:8000"

	// Nothing stored yet
	c, err := database.LoadCredential(endpoint)
	if err != nil {
		t.Fatalf("LoadCredential() error = %v", err)
	}
	if c != nil {
		t.Fatalf("Expected no credential, got %+v", c)
	}

	if err := database.SaveCredential(endpoint, "tok-1"); err != nil {
		t.Fatalf("SaveCredential() error = %v", err)
	}
	if err := database.SaveCredential(endpoint, "tok-2"); err != nil {
		t.Fatalf("SaveCredential() overwrite error = %v", err)
	}

	c, err = database.LoadCredential(endpoint)
	if err != nil {
		t.Fatalf("LoadCredential() error = %v", err)
	}
	if c == nil || c.Token != "tok-2" {
		t.Fatalf("Expected tok-2, got %+v", c)
	}
	if c.SavedAt.IsZero() {
		t.Error("Expected saved_at to be set")
	}

	// Other endpoints are independent
	other, err := database.LoadCredential("https://elsewhere")
	if err != nil || other != nil {
		t.Errorf("Expected no credential for other endpoint, got %+v, %v", other, err)
	}

	if err := database.DeleteCredential(endpoint); err != nil {
		t.Fatalf("DeleteCredential() error = %v", err)
	}
	// Second delete is a no-op
	if err := database.DeleteCredential(endpoint); err != nil {
		t.Fatalf("DeleteCredential() second call error = %v", err)
	}

	c, err = database.LoadCredential(endpoint)
	if err != nil || c != nil {
		t.Errorf("Expected credential gone, got %+v, %v", c, err)
	}
}
