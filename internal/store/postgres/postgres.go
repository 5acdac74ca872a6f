// Package postgres implements the store interfaces against PostgreSQL using
// database/sql. Queue claims use FOR UPDATE SKIP LOCKED so concurrent worker
// processes never double-claim; status writes are guarded single statements
// so concurrent writers cannot race past the state machine.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/outreach-engine/internal/store"
)

// Store is the Postgres-backed implementation of store.Store.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db), nil
}

// DB exposes the underlying handle for components that need raw access
// (advisory locks, health pings).
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

var _ store.Store = (*Store)(nil)
