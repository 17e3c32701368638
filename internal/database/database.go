// Package database persists the one thing the client keeps across runs:
// the opaque session token.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is a credential store backed by a SQLite file. Each DB reads and
// writes the token of a single service.
type DB struct {
	conn    *sql.DB
	path    string
	service string
}

// Open creates or opens the credential file at dbPath, bound to service.
// Tokens are keyed by service so one file can hold credentials for several
// servers.
func Open(dbPath, service string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	// Two CLI invocations may touch the file at once.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := upgrade(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, path: dbPath, service: service}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Service returns the service the stored token belongs to.
func (db *DB) Service() string {
	return db.service
}
