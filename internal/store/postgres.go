// Package store provides storage backends for VoicePipe conversation turns.
//
// This file implements the PostgreSQL-backed turn store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/VoicePipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure the turns table exists
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddTurn(turn models.Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO turns (user_id, role, content) VALUES ($1, $2, $3)`,
		turn.UserID, turn.Role, turn.Content)
	if err != nil {
		slog.Error("PostgresStore AddTurn failed", "error", err, "userID", turn.UserID, "role", turn.Role)
		return fmt.Errorf("failed to insert turn for %s: %w", turn.UserID, err)
	}
	slog.Debug("PostgresStore AddTurn succeeded", "userID", turn.UserID, "role", turn.Role)
	return nil
}

func (s *PostgresStore) RecentTurns(userID string, limit int) ([]models.Turn, error) {
	rows, err := s.db.Query(`SELECT id, user_id, role, content FROM turns WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		slog.Error("PostgresStore RecentTurns query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query turns for %s: %w", userID, err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		slog.Error("PostgresStore RecentTurns scan failed", "error", err, "userID", userID)
		return nil, err
	}
	reverseTurns(turns)
	slog.Debug("PostgresStore RecentTurns succeeded", "userID", userID, "count", len(turns))
	return turns, nil
}

func (s *PostgresStore) DeleteTurns(userID string) error {
	_, err := s.db.Exec(`DELETE FROM turns WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore DeleteTurns failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete turns for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore DeleteTurns succeeded", "userID", userID)
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	}
	return err
}
