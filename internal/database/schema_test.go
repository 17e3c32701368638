package database

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestFreshFileAtCurrentSchema(t *testing.T) {
	db := openTestDB(t)

	v, err := schemaVersion(db.conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if v != len(schema) {
		t.Errorf("expected schema v%d, got v%d", len(schema), v)
	}
}

func TestReopenKeepsToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	first, err := Open(path, "svc")
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.SaveToken("tok"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	first.Close()

	second, err := Open(path, "svc")
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	if token, _ := second.LoadToken(); token != "tok" {
		t.Errorf("expected token to survive reopen, got %q", token)
	}
}

func TestNewerFileLeftAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := conn.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set version: %v", err)
	}
	conn.Close()

	db, err := Open(path, "svc")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if v, _ := schemaVersion(db.conn); v != 99 {
		t.Errorf("expected version untouched, got %d", v)
	}
}
