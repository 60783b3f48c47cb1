// Package database provides the console's local SQLite store: the remembered
// server connection and the recent-connection history.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sovdscope/internal/logging"
	"sovdscope/internal/migrations"
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck // Cleanup, error not critical
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		db.Close() //nolint:errcheck // Cleanup, error not critical
		return nil, err
	}

	logging.Info("Database initialized at %s", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RememberServer persists the server URL and base path of the last
// successful connect and records it in the connection history.
func (s *Store) RememberServer(serverURL, basePath string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	_, err = tx.Exec(`
		INSERT INTO connection_state (id, server_url, base_path, updated_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			server_url = excluded.server_url,
			base_path = excluded.base_path,
			updated_at = CURRENT_TIMESTAMP`,
		serverURL, basePath)
	if err != nil {
		return fmt.Errorf("failed to persist connection state: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO connection_history (server_url, base_path, last_connected_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(server_url) DO UPDATE SET
			base_path = excluded.base_path,
			last_connected_at = CURRENT_TIMESTAMP`,
		serverURL, basePath)
	if err != nil {
		return fmt.Errorf("failed to record connection history: %w", err)
	}

	return tx.Commit()
}

// RememberedServer returns the persisted server URL and base path, or empty
// strings when nothing has been remembered yet.
func (s *Store) RememberedServer() (string, string, error) {
	var serverURL, basePath string
	err := s.db.QueryRow(
		"SELECT server_url, base_path FROM connection_state WHERE id = 1").
		Scan(&serverURL, &basePath)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read connection state: %w", err)
	}
	return serverURL, basePath, nil
}

// HistoryEntry is one recently used server.
type HistoryEntry struct {
	ServerURL       string    `json:"serverUrl"`
	BasePath        string    `json:"basePath"`
	LastConnectedAt time.Time `json:"lastConnectedAt"`
}

// History returns the most recently used servers, newest first.
func (s *Store) History(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(`
		SELECT server_url, base_path, last_connected_at
		FROM connection_history
		ORDER BY last_connected_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query connection history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Cleanup, error not critical

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.ServerURL, &entry.BasePath, &entry.LastConnectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
