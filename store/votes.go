// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/danielhkuo/tokumei-poll/models"
)

// CastVote records one anonymous ballot. The commitment insert is the only
// uniqueness check: two concurrent ballots from the same voter cannot both
// commit. A non-nil error means nothing was written and the voter may retry.
func (s *Store) CastVote(ctx context.Context, pollID int64, voterID uint64, choice int) (models.VoteResult, error) {
	encrypted, err := s.cipher.EncryptIdentity(voterID)
	if err != nil {
		return models.VoteResult{}, fmt.Errorf("failed to encrypt identity: %w", err)
	}
	commitment := s.cipher.CommitmentHash(pollID, voterID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.VoteResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	found, err := lockPoll(ctx, tx, pollID)
	if err != nil {
		return models.VoteResult{}, err
	}
	if !found {
		return models.VoteResult{Outcome: models.VotePollNotFound}, nil
	}

	var (
		isActive   bool
		optionsRaw string
		p          models.Poll
	)
	err = tx.QueryRowContext(ctx, `
		SELECT is_active, end_time, options
		FROM polls
		WHERE id = $1
	`, pollID).Scan(&isActive, &p.EndTime, &optionsRaw)
	if err == sql.ErrNoRows {
		return models.VoteResult{Outcome: models.VotePollNotFound}, nil
	}
	if err != nil {
		return models.VoteResult{}, fmt.Errorf("failed to query poll: %w", err)
	}

	if !isActive || !p.EndTime.After(s.now()) {
		return models.VoteResult{Outcome: models.VotePollInactive}, nil
	}

	options, err := decodeOptions(optionsRaw)
	if err != nil {
		return models.VoteResult{}, err
	}
	if choice < 0 || choice >= len(options) {
		return models.VoteResult{Outcome: models.VoteInvalidChoice}, nil
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO vote_checks (vote_hash, poll_id)
		VALUES ($1, $2)
		ON CONFLICT (vote_hash) DO NOTHING
	`, commitment, pollID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.VoteResult{Outcome: models.VotePollNotFound}, nil
		}
		return models.VoteResult{}, fmt.Errorf("failed to insert vote check: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.VoteResult{}, fmt.Errorf("failed to insert vote check: %w", err)
	}
	if n == 0 {
		return models.VoteResult{Outcome: models.VoteDuplicate}, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO votes (poll_id, encrypted_user_id, choice)
		VALUES ($1, $2, $3)
	`, pollID, encrypted, choice)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.VoteResult{Outcome: models.VotePollNotFound}, nil
		}
		return models.VoteResult{}, fmt.Errorf("failed to insert vote: %w", err)
	}

	var total int
	err = tx.QueryRowContext(ctx, `
		UPDATE polls
		SET total_votes = (SELECT COUNT(*) FROM votes WHERE poll_id = $1)
		WHERE id = $1
		RETURNING total_votes
	`, pollID).Scan(&total)
	if err == sql.ErrNoRows {
		return models.VoteResult{Outcome: models.VotePollNotFound}, nil
	}
	if err != nil {
		return models.VoteResult{}, fmt.Errorf("failed to update vote count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isForeignKeyViolation(err) {
			return models.VoteResult{Outcome: models.VotePollNotFound}, nil
		}
		return models.VoteResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return models.VoteResult{Outcome: models.VoteAccepted, TotalVotes: total}, nil
}
