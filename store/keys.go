// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// LoadOrCreateKey returns the persisted encryption key, creating it with
// generate on first use. The key row has a fixed primary key so concurrent
// first starts converge on whichever key was inserted first.
func LoadOrCreateKey(ctx context.Context, db *sql.DB, generate func() (string, error)) (string, error) {
	key, err := readKey(ctx, db)
	if err == nil {
		return key, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to read encryption key: %w", err)
	}

	candidate, err := generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO encryption_keys (id, key_value)
		VALUES (1, $1)
		ON CONFLICT (id) DO NOTHING
	`, candidate)
	if err != nil {
		return "", fmt.Errorf("failed to store encryption key: %w", err)
	}

	key, err = readKey(ctx, db)
	if err != nil {
		return "", fmt.Errorf("failed to read encryption key: %w", err)
	}
	return key, nil
}

func readKey(ctx context.Context, db *sql.DB) (string, error) {
	var key string
	err := db.QueryRowContext(ctx, `SELECT key_value FROM encryption_keys WHERE id = 1`).Scan(&key)
	return key, err
}
