package database

import (
	"database/sql"
	"fmt"
	"log"
)

// schema holds one DDL batch per version; schema[i] takes the file from
// version i to i+1. Only ever append.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS credentials (
		service  TEXT PRIMARY KEY,
		token    TEXT NOT NULL,
		saved_at TEXT DEFAULT (datetime('now'))
	)`,
}

func schemaVersion(conn *sql.DB) (int, error) {
	var v int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// upgrade applies every batch newer than the file's user_version. A file
// written by a newer client is left alone.
func upgrade(conn *sql.DB) error {
	have, err := schemaVersion(conn)
	if err != nil {
		return err
	}
	for v := have; v < len(schema); v++ {
		if err := applyBatch(conn, schema[v]); err != nil {
			return fmt.Errorf("upgrading credential store to v%d: %w", v+1, err)
		}
		// user_version cannot change inside a modernc transaction.
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			return fmt.Errorf("recording schema v%d: %w", v+1, err)
		}
		log.Printf("credential store upgraded to v%d", v+1)
	}
	return nil
}

func applyBatch(conn *sql.DB, ddl string) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ddl); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
