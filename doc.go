// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Tokumei Poll Discord bot.

Tokumei Poll runs anonymous polls in Discord channels. Voters press a button
to vote; the bot records who voted only as ciphertext plus a one-way
commitment, so the stored votes cannot be tied to members without the
identity key, and each member can vote once per poll.

# Starting the Bot

	DISCORD_TOKEN=... DATABASE_URL=postgres://... go run .

Or with flags:

	go run . -token ... -t sqlite -d "file:poll.db" -p 3318 -recover

A .env file in the working directory is loaded first; variables already set
in the environment win.

# Configuration

Required settings:

  - DISCORD_TOKEN (-token): Bot token

Optional settings:

  - DATABASE_TYPE (-t): postgres or sqlite (default: postgres)
  - DATABASE_URL (-d): Connection string, or DB_HOST/DB_USER/DB_PASSWORD/DB_NAME
  - REDIS_URL (-redis): Shared cooldown store
  - PORT (-p): Health and metrics port (default: 3318)
  - LOG_FILE, LOG_LEVEL: Rotated JSON log file and level
  - POLL_RECOVER (-recover): Repost active polls on startup
  - POLL_TIMEZONE (-tz): Display timezone (default: Asia/Tokyo)

# Architecture

  - chat: Discord gateway adapter (arikawa)
  - router: Interaction dispatch and the HTTP health/metrics routes
  - handlers: Poll creation, voting, ending and result rendering
  - scheduler: Expiry sweep, retention cleanup and restart recovery
  - store: Transactional poll and vote persistence
  - identity: Voter identity encryption and commitment hashes
  - db: Connection and schema for Postgres and SQLite
  - middleware: Logging, panic recovery and Prometheus metrics
  - logging, cliparse, models: Ambient setup and shared types

See package documentation for each component.
*/
package main
