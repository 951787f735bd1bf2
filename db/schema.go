// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database types
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Open connects to the database and verifies the connection.
// SQLite is limited to one connection so transactions serialize
// instead of failing with SQLITE_BUSY.
func Open(ctx context.Context, dialect, url string) (*sql.DB, error) {
	var driver string
	switch dialect {
	case DialectPostgres:
		driver = "postgres"
	case DialectSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database type %q", dialect)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		conn.SetMaxOpenConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB, dialect string) error {
	schema := postgresSchema
	if dialect == DialectSQLite {
		schema = sqliteSchema
	}

	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const postgresSchema = `
-- Polls
CREATE TABLE IF NOT EXISTS polls (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    creator_id BIGINT NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    options TEXT NOT NULL,
    channel_id BIGINT NOT NULL,
    message_id BIGINT,
    total_votes INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_polls_active_end ON polls(is_active, end_time);
CREATE INDEX IF NOT EXISTS idx_polls_creator ON polls(creator_id);

-- Votes
CREATE TABLE IF NOT EXISTS votes (
    poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    encrypted_user_id TEXT NOT NULL,
    choice INTEGER NOT NULL CHECK (choice >= 0)
);

CREATE INDEX IF NOT EXISTS idx_votes_poll_id ON votes(poll_id);

-- Vote Checks
CREATE TABLE IF NOT EXISTS vote_checks (
    vote_hash TEXT PRIMARY KEY,
    poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_vote_checks_poll_id ON vote_checks(poll_id);

-- Encryption Keys
CREATE TABLE IF NOT EXISTS encryption_keys (
    id INTEGER PRIMARY KEY,
    key_value TEXT NOT NULL
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS polls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    creator_id INTEGER NOT NULL,
    end_time TIMESTAMP NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT 1,
    options TEXT NOT NULL,
    channel_id INTEGER NOT NULL,
    message_id INTEGER,
    total_votes INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_polls_active_end ON polls(is_active, end_time);
CREATE INDEX IF NOT EXISTS idx_polls_creator ON polls(creator_id);

CREATE TABLE IF NOT EXISTS votes (
    poll_id INTEGER NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    encrypted_user_id TEXT NOT NULL,
    choice INTEGER NOT NULL CHECK (choice >= 0)
);

CREATE INDEX IF NOT EXISTS idx_votes_poll_id ON votes(poll_id);

CREATE TABLE IF NOT EXISTS vote_checks (
    vote_hash TEXT PRIMARY KEY,
    poll_id INTEGER NOT NULL REFERENCES polls(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_vote_checks_poll_id ON vote_checks(poll_id);

CREATE TABLE IF NOT EXISTS encryption_keys (
    id INTEGER PRIMARY KEY,
    key_value TEXT NOT NULL
);
`
