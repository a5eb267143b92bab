package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// ErrConnectionFailed is returned when the database cannot be reached.
var ErrConnectionFailed = errors.New("database connection failed")

// Connection wraps a pooled *sql.DB configured from Config.
type Connection struct {
	db *sql.DB
}

// Connect opens a pooled PostgreSQL connection and verifies it with a ping.
func Connect(ctx context.Context, cfg *Config) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return &Connection{db: db}, nil
}

// DB exposes the underlying pool for migrations and tests.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Close closes the connection pool. Safe to call multiple times.
func (c *Connection) Close() error {
	if c.db == nil {
		return nil
	}

	return c.db.Close()
}

// PostgresStore implements WatermarkStore with a PostgreSQL backend so
// watermarks survive process restarts and are shared between extractor
// instances.
type PostgresStore struct {
	conn *Connection
}

// NewPostgresStore creates a watermark store on an established connection.
func NewPostgresStore(conn *Connection) *PostgresStore {
	return &PostgresStore{conn: conn}
}

// Get returns the stored watermark, or "" when none has been recorded.
func (s *PostgresStore) Get(ctx context.Context, stream, profileID string) (string, error) {
	query := `
		SELECT value
		FROM watermarks
		WHERE stream = $1 AND profile_id = $2
	`

	var value string

	err := s.conn.db.QueryRowContext(ctx, query, stream, profileID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("reading watermark for %s/%s: %w", stream, profileID, err)
	}

	return value, nil
}

// Set upserts the watermark for the stream and profile.
func (s *PostgresStore) Set(ctx context.Context, stream, profileID, value string) error {
	query := `
		INSERT INTO watermarks (stream, profile_id, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (stream, profile_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.conn.db.ExecContext(ctx, query, stream, profileID, value); err != nil {
		return fmt.Errorf("writing watermark for %s/%s: %w", stream, profileID, err)
	}

	return nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.conn.Close()
}
