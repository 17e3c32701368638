package database

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), "http://localhost:3000")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadTokenEmpty(t *testing.T) {
	db := openTestDB(t)
	token, err := db.LoadToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token, got %q", token)
	}
}

func TestSaveAndReplaceToken(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveToken("first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.SaveToken("second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := db.LoadToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "second" {
		t.Errorf("expected 'second', got %q", token)
	}
}

func TestClearToken(t *testing.T) {
	db := openTestDB(t)
	db.SaveToken("tok")
	if err := db.ClearToken(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, _ := db.LoadToken()
	if token != "" {
		t.Errorf("expected token cleared, got %q", token)
	}

	// Clearing twice is fine.
	if err := db.ClearToken(); err != nil {
		t.Errorf("unexpected error clearing absent token: %v", err)
	}
}

func TestTokensAreScopedByService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := Open(path, "https://a.example")
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := Open(path, "https://b.example")
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()

	a.SaveToken("token-a")
	token, _ := b.LoadToken()
	if token != "" {
		t.Errorf("expected no token for service b, got %q", token)
	}
}
