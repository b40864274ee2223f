// Package store provides storage backends for VoicePipe conversation turns.
//
// This file implements the SQLite-backed turn store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/VoicePipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure the turns table exists
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddTurn(turn models.Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO turns (user_id, role, content) VALUES (?, ?, ?)`,
		turn.UserID, turn.Role, turn.Content)
	if err != nil {
		slog.Error("SQLiteStore AddTurn failed", "error", err, "userID", turn.UserID, "role", turn.Role)
		return fmt.Errorf("failed to insert turn for %s: %w", turn.UserID, err)
	}
	slog.Debug("SQLiteStore AddTurn succeeded", "userID", turn.UserID, "role", turn.Role)
	return nil
}

func (s *SQLiteStore) RecentTurns(userID string, limit int) ([]models.Turn, error) {
	rows, err := s.db.Query(`SELECT id, user_id, role, content FROM turns WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		slog.Error("SQLiteStore RecentTurns query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query turns for %s: %w", userID, err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		slog.Error("SQLiteStore RecentTurns scan failed", "error", err, "userID", userID)
		return nil, err
	}
	reverseTurns(turns)
	slog.Debug("SQLiteStore RecentTurns succeeded", "userID", userID, "count", len(turns))
	return turns, nil
}

func (s *SQLiteStore) DeleteTurns(userID string) error {
	_, err := s.db.Exec(`DELETE FROM turns WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore DeleteTurns failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete turns for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore DeleteTurns succeeded", "userID", userID)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
