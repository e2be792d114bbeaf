package sqlstore

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// driverName maps a configured database kind to its database/sql driver
func driverName(kind string) (string, error) {
	switch strings.ToLower(kind) {
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "pq", "lib/pq":
		// lib/pq registers itself as "postgres"
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported database %q (want sqlite3 or postgres)", kind)
	}
}

// goquDialect maps a configured database kind to its goqu dialect
func goquDialect(kind string) (string, error) {
	driver, err := driverName(kind)
	if err != nil {
		return "", err
	}
	if driver == "pgx" {
		return "postgres", nil
	}
	return driver, nil
}

// Open connects to the database, creates the snapshot tables and returns a store
func Open(ctx context.Context, kind, dsn string, opts ...Option) (*Store, error) {
	driver, err := driverName(kind)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", kind, err)
	}

	s, err := New(db, kind, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the snapshot tables when they do not exist. The statements are
// portable between SQLite and PostgreSQL.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(36) PRIMARY KEY,
	version VARCHAR(16) NOT NULL,
	source_hash VARCHAR(64) NOT NULL,
	generated_at TIMESTAMP NOT NULL,
	spec_count INTEGER NOT NULL,
	failure_count INTEGER NOT NULL,
	document TEXT NOT NULL
)`, s.snapshots),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	snapshot_id VARCHAR(36) NOT NULL REFERENCES %s (id),
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	nature VARCHAR(32) NOT NULL,
	document TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, type)
)`, s.specs, s.snapshots),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_name ON %s (name)`, s.specs, s.specs),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate snapshot tables: %w", err)
		}
	}
	return nil
}
