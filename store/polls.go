// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/tokumei-poll/models"
)

// CreatePoll inserts a new active poll and returns its ID
func (s *Store) CreatePoll(ctx context.Context, p models.NewPoll) (int64, error) {
	if len(p.Options) < models.MinOptions || len(p.Options) > models.MaxOptions {
		return 0, fmt.Errorf("create poll: %d options", len(p.Options))
	}

	options, err := encodeOptions(p.Options)
	if err != nil {
		return 0, err
	}

	var pollID int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO polls (title, description, creator_id, end_time, is_active, options, channel_id, total_votes)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6, 0)
		RETURNING id
	`, p.Title, p.Description, int64(p.CreatorID), dbTime(p.EndTime), options, int64(p.ChannelID)).Scan(&pollID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert poll: %w", err)
	}

	return pollID, nil
}

// AttachMessage records where the live interactive message for a poll is
func (s *Store) AttachMessage(ctx context.Context, pollID int64, messageID uint64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE polls SET message_id = $1 WHERE id = $2
	`, int64(messageID), pollID)
	if err != nil {
		return fmt.Errorf("failed to attach message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to attach message: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetActivePollSummary returns an active poll or ErrNotFound
func (s *Store) GetActivePollSummary(ctx context.Context, pollID int64) (models.Poll, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+pollColumns+`
		FROM polls
		WHERE id = $1 AND is_active
	`, pollID)

	p, err := scanPoll(row)
	if err == sql.ErrNoRows {
		return models.Poll{}, ErrNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}
	return p, nil
}

// ListActiveByCreator returns up to limit active polls created by creatorID, oldest first
func (s *Store) ListActiveByCreator(ctx context.Context, creatorID uint64, limit int) ([]models.Poll, error) {
	polls, err := queryPolls(ctx, s.db, `
		SELECT `+pollColumns+`
		FROM polls
		WHERE creator_id = $1 AND is_active
		ORDER BY id
		LIMIT $2
	`, int64(creatorID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	return polls, nil
}

// ListActive returns every poll still marked active
func (s *Store) ListActive(ctx context.Context) ([]models.Poll, error) {
	polls, err := queryPolls(ctx, s.db, `
		SELECT `+pollColumns+`
		FROM polls
		WHERE is_active
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active polls: %w", err)
	}
	return polls, nil
}

// SweepExpired lists active polls whose end time is before now. Read-only.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) ([]models.Poll, error) {
	polls, err := queryPolls(ctx, s.db, `
		SELECT `+pollColumns+`
		FROM polls
		WHERE is_active AND end_time < $1
		ORDER BY end_time
	`, dbTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired polls: %w", err)
	}
	return polls, nil
}

// Tally counts votes per option by aggregation. Every option index is present.
func (s *Store) Tally(ctx context.Context, pollID int64) (map[int]int, error) {
	var optionsRaw string
	err := s.db.QueryRowContext(ctx, `SELECT options FROM polls WHERE id = $1`, pollID).Scan(&optionsRaw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}

	options, err := decodeOptions(optionsRaw)
	if err != nil {
		return nil, err
	}

	counts, _, err := tally(ctx, s.db, pollID)
	if err != nil {
		return nil, err
	}

	result := make(map[int]int, len(options))
	for i := range options {
		result[i] = counts[i]
	}
	return result, nil
}

// EndPoll reads a poll's final tally and deletes the poll, its votes and its
// commitments in one transaction. Only one caller can finalize a given poll;
// every other caller gets EndNotFound. The poll row is locked first, so every
// accepted vote is in the tally.
func (s *Store) EndPoll(ctx context.Context, pollID int64) (models.FinalResult, models.EndOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.FinalResult{}, models.EndNotFound, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// A vote still in flight commits before the tally below is read; one
	// arriving later waits here and then finds the poll gone.
	found, err := lockPoll(ctx, tx, pollID)
	if err != nil {
		return models.FinalResult{}, models.EndNotFound, err
	}
	if !found {
		return models.FinalResult{}, models.EndNotFound, nil
	}

	p, err := scanPoll(tx.QueryRowContext(ctx, `
		SELECT `+pollColumns+`
		FROM polls
		WHERE id = $1
	`, pollID))
	if err == sql.ErrNoRows {
		return models.FinalResult{}, models.EndNotFound, nil
	}
	if err != nil {
		return models.FinalResult{}, models.EndNotFound, fmt.Errorf("failed to query poll: %w", err)
	}

	counts, total, err := tally(ctx, tx, pollID)
	if err != nil {
		return models.FinalResult{}, models.EndNotFound, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vote_checks WHERE poll_id = $1`, pollID); err != nil {
		return models.FinalResult{}, models.EndNotFound, fmt.Errorf("failed to delete vote checks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE poll_id = $1`, pollID); err != nil {
		return models.FinalResult{}, models.EndNotFound, fmt.Errorf("failed to delete votes: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, pollID)
	if err != nil {
		return models.FinalResult{}, models.EndNotFound, fmt.Errorf("failed to delete poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.FinalResult{}, models.EndNotFound, fmt.Errorf("failed to delete poll: %w", err)
	}
	if n != 1 {
		// A concurrent finalize deleted it first
		return models.FinalResult{}, models.EndNotFound, nil
	}

	if err := tx.Commit(); err != nil {
		return models.FinalResult{}, models.EndNotFound, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result := models.FinalResult{
		PollID:    p.ID,
		Title:     p.Title,
		Options:   p.Options,
		Tally:     make(map[int]int, len(p.Options)),
		Total:     total,
		ChannelID: p.ChannelID,
		MessageID: p.MessageID,
	}
	for i := range p.Options {
		result.Tally[i] = counts[i]
	}
	return result, models.EndFinalized, nil
}

// PurgeRetired deletes inactive polls that ended before the given time,
// together with their votes and commitments. Returns the number of polls removed.
func (s *Store) PurgeRetired(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := dbTime(before)

	_, err = tx.ExecContext(ctx, `
		DELETE FROM vote_checks WHERE poll_id IN (
			SELECT id FROM polls WHERE NOT is_active AND end_time < $1
		)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge vote checks: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM votes WHERE poll_id IN (
			SELECT id FROM polls WHERE NOT is_active AND end_time < $1
		)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge votes: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM polls WHERE NOT is_active AND end_time < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge polls: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge polls: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// Deactivate marks a poll as ended without deleting it, leaving the rows for
// PurgeRetired. Used when a poll can no longer be shown anywhere.
func (s *Store) Deactivate(ctx context.Context, pollID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE polls SET is_active = FALSE WHERE id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("failed to deactivate poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to deactivate poll: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
