// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the poll schema.

# Opening

	conn, err := db.Open(ctx, db.DialectPostgres, cfg.DatabaseURL)

Two dialects are supported: postgres (lib/pq) and sqlite
(modernc.org/sqlite). SQLite connections are capped at one so that
transactions queue in the pool rather than racing for the file lock.

# Schema Creation

	if err := db.CreateSchema(ctx, conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - polls: poll metadata, options (JSON), live message location
  - votes: one row per accepted ballot, voter identity encrypted
  - vote_checks: commitment hash per (poll, voter), the uniqueness point
  - encryption_keys: the single identity key (id = 1)

# Relationships

	polls 1──* votes
	polls 1──* vote_checks

All foreign keys use ON DELETE CASCADE.
*/
package db
