// Package store provides storage backends for VoicePipe conversation turns.
//
// It includes PostgreSQL and SQLite backends with embedded migrations, plus
// an in-memory store used for tests and for running without a database.
package store

import (
	"strings"

	"github.com/BTreeMap/VoicePipe/internal/models"
)

// Store is the conversation turn log. Rows are append-only; the only delete
// path removes all rows for a single user.
type Store interface {
	// AddTurn inserts one turn. The assigned ID is monotonically increasing
	// and is used only for ordering.
	AddTurn(turn models.Turn) error
	// RecentTurns returns at most limit most-recent turns for the user,
	// re-ordered chronologically (oldest first).
	RecentTurns(userID string, limit int) ([]models.Turn, error)
	// DeleteTurns removes all turns for the user. Idempotent.
	DeleteTurns(userID string) error
	// Close releases the underlying database connection.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN configures a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use URL or key=value forms; anything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
