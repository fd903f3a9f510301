// Package sqlite is the storage backend for licensegate. It owns the
// persisted layout: the licenses table, the two module-record generations,
// the scalar settings table and the active-user tracking table. The core
// packages only see it through their interfaces and perform keyed point
// lookups; all locking discipline stays inside database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS licenses (
	license_key     TEXT PRIMARY KEY,
	customer        TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'active',
	expires_at      TEXT,
	user_limit      INTEGER NOT NULL DEFAULT 1,
	allowed_modules TEXT NOT NULL DEFAULT '[]',
	allowed_domains TEXT NOT NULL DEFAULT '[]',
	created_at      TEXT NOT NULL DEFAULT '',
	updated_at      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS modules (
	slug        TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	view_params TEXT NOT NULL DEFAULT '[]',
	category    TEXT NOT NULL DEFAULT '',
	is_core     INTEGER NOT NULL DEFAULT 0,
	is_active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS legacy_modules (
	slug        TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	view_param  TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS active_users (
	customer TEXT NOT NULL,
	user_id  TEXT NOT NULL,
	PRIMARY KEY (customer, user_id)
);
`

// DB wraps the sqlite connection and implements the core's Store,
// SettingsSource and SeatSource contracts.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and bootstraps the schema.
// Pass ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = "licensegate.db"
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.InfoContext(ctx, "database initialized",
		slog.String("component", "sqlite"),
		slog.String("path", path),
	)
	return &DB{conn: conn, logger: logger.With(slog.String("component", "sqlite"))}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping checks connectivity to the underlying database.
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// CurrentModules returns the current-generation registry backend.
func (d *DB) CurrentModules() *CurrentModules {
	return &CurrentModules{conn: d.conn}
}

// LegacyModules returns the legacy-generation registry backend.
func (d *DB) LegacyModules() *LegacyModules {
	return &LegacyModules{conn: d.conn}
}

// missingTable reports whether err is sqlite's complaint about a table
// that does not exist. A generation's table being absent is a normal
// condition for the registry, not a fault.
func missingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
