package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// LoadToken returns the stored token, or "" when none is stored.
func (db *DB) LoadToken() (string, error) {
	var token string
	err := db.conn.QueryRow(`SELECT token FROM credentials WHERE service = ?`, db.service).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading token: %w", err)
	}
	return token, nil
}

// SaveToken stores the token, replacing any previous one.
func (db *DB) SaveToken(token string) error {
	_, err := db.conn.Exec(`
		INSERT INTO credentials (service, token, saved_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(service) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at`,
		db.service, token)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// ClearToken removes the stored token. Clearing an absent token is not an error.
func (db *DB) ClearToken() error {
	if _, err := db.conn.Exec(`DELETE FROM credentials WHERE service = ?`, db.service); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	return nil
}
