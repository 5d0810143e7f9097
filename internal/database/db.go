package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// ErrNotConnected is reported when the initial connection never succeeded.
var ErrNotConnected = errors.New("database is not connected")

// DB wraps the sql connection pool. A DB whose connection attempt failed
// stays usable: repositories degrade to empty reads and no-op writes so
// a storage outage never takes the application down.
type DB struct {
	*sql.DB
	connected bool
}

// New connects to Postgres and pings it. On failure it returns a
// disconnected handle together with the error so callers can report the
// condition once and continue degraded.
func New(databaseURL string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return &DB{}, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return &DB{}, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqlDB, connected: true}, nil
}

// Connected reports whether the initial connection succeeded.
func (db *DB) Connected() bool {
	return db != nil && db.connected
}

// Close closes the underlying pool.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// EnsureSchema creates the application tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if !db.Connected() {
		return nil
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			disabled BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			last_login TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			last_updated TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activity_logs (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			activity_type TEXT NOT NULL,
			user_id TEXT NOT NULL,
			details JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS activity_logs_timestamp_idx
			ON activity_logs (timestamp DESC)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			num_pages INT NOT NULL,
			num_words INT NOT NULL,
			file_size BIGINT NOT NULL,
			upload_date TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			summaries JSONB NOT NULL,
			files_analyzed JSONB NOT NULL,
			total_files INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			files_referenced JSONB NOT NULL,
			session_id TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return nil
}
