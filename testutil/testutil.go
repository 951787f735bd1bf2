// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/danielhkuo/tokumei-poll/cliparse"
	"github.com/danielhkuo/tokumei-poll/db"
	"github.com/danielhkuo/tokumei-poll/identity"
	"github.com/danielhkuo/tokumei-poll/models"
)

// TestDBURL is an in-memory SQLite database. db.Open limits SQLite to one
// connection, so each SetupTestDB call gets its own isolated database.
const TestDBURL = "file::memory:?_pragma=foreign_keys(1)"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.DialectSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(context.Background(), conn, db.DialectSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// NewTestCipher returns a cipher with a freshly generated key
func NewTestCipher(t *testing.T) *identity.Cipher {
	t.Helper()

	key, err := identity.GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	c, err := identity.NewCipher(key)
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}
	return c
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		DiscordToken:    "test-token",
		DatabaseType:    db.DialectSQLite,
		DatabaseURL:     TestDBURL,
		Port:            3318,
		LogLevel:        "info",
		Timezone:        "Asia/Tokyo",
		SweepInterval:   10 * time.Second,
		CleanupInterval: 24 * time.Hour,
		RetentionGrace:  24 * time.Hour,
		VoteCooldown:    2 * time.Second,
		CommandCooldown: 5 * time.Second,
	}
}

// InsertTestPoll writes a poll row directly, bypassing validation.
// Useful for expired or inactive fixtures.
func InsertTestPoll(t *testing.T, conn *sql.DB, creatorID uint64, endTime time.Time, active bool, options ...string) int64 {
	t.Helper()

	if len(options) == 0 {
		options = []string{"A", "B"}
	}
	raw, err := json.Marshal(options)
	if err != nil {
		t.Fatalf("Failed to encode options: %v", err)
	}

	var pollID int64
	err = conn.QueryRow(`
		INSERT INTO polls (title, description, creator_id, end_time, is_active, options, channel_id, message_id, total_votes)
		VALUES ('Test Poll', 'A test poll', $1, $2, $3, $4, 100, 200, 0)
		RETURNING id
	`, int64(creatorID), endTime.UTC().Truncate(time.Second), active, string(raw)).Scan(&pollID)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return pollID
}

// CountRows returns COUNT(*) of a table filtered by poll_id (or id for polls)
func CountRows(t *testing.T, conn *sql.DB, table string, pollID int64) int {
	t.Helper()

	column := "poll_id"
	if table == "polls" {
		column = "id"
	}

	var n int
	err := conn.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE `+column+` = $1`, pollID).Scan(&n)
	if err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// TestPoll is a valid two-option poll ending an hour from now
func TestPoll(creatorID uint64) models.NewPoll {
	return models.NewPoll{
		Title:       "Lunch",
		Description: "Where to eat",
		CreatorID:   creatorID,
		EndTime:     time.Now().Add(time.Hour),
		Options:     []string{"A", "B"},
		ChannelID:   100,
	}
}
