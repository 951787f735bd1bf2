// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadDotEnv reads an optional .env file, then ParseFlags returns a Config:

	if err := cliparse.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-token      Discord bot token
	-d          Database URL
	-t          Database type (postgres or sqlite, default postgres)
	-p          Health and metrics port (default 3318)
	-redis      Redis URL for shared cooldowns
	-log-file   Rotated log file
	-log-level  debug, info, warn or error
	-recover    Re-post active polls on startup
	-tz         Display time zone (default Asia/Tokyo)

# Environment Variables

Flags fall back to environment variables:

	DISCORD_TOKEN  → -token
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	PORT           → -p
	REDIS_URL      → -redis
	LOG_FILE       → -log-file
	LOG_LEVEL      → -log-level
	POLL_RECOVER   → -recover
	POLL_TIMEZONE  → -tz

When DATABASE_URL is empty the PostgreSQL URL is built from DB_HOST,
DB_USER, DB_PASSWORD and DB_NAME (default "poll").

Loop timings and cooldowns are environment only and take Go durations:

	POLL_SWEEP_INTERVAL    (10s)
	POLL_CLEANUP_INTERVAL  (24h)
	POLL_RETENTION         (24h)
	POLL_VOTE_COOLDOWN     (2s)
	POLL_COMMAND_COOLDOWN  (5s)

CLI flags take precedence over environment variables.
*/
package cliparse
