package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Config holds connection settings for the pgvector-backed document store.
type Config struct {
	DSN             string `envconfig:"POSTGRES_DSN" required:"true"`
	MaxConns        int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	ConnMaxLifetime string `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"1h"`
}

// New opens a pooled connection and verifies it with a ping.
func (c *Config) New(ctx context.Context) (*sqlx.DB, error) {
	lifetime, err := time.ParseDuration(c.ConnMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("invalid POSTGRES_CONN_MAX_LIFETIME %q: %w", c.ConnMaxLifetime, err)
	}

	db, err := sqlx.Open("postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(c.MaxConns)
	db.SetMaxIdleConns(c.MaxConns / 2)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}
