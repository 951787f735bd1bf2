// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/danielhkuo/tokumei-poll/models"
)

// ErrNotFound is returned when a poll does not exist (or is no longer active
// for operations that require an active poll).
var ErrNotFound = errors.New("poll not found")

// Cipher is the part of the identity cipher the store needs.
type Cipher interface {
	EncryptIdentity(voterID uint64) (string, error)
	CommitmentHash(pollID int64, voterID uint64) string
}

// Store is the poll store. Every exported method is a single atomic unit;
// multi-statement operations run inside one transaction.
type Store struct {
	db     *sql.DB
	cipher Cipher
	now    func() time.Time
}

func New(db *sql.DB, cipher Cipher) *Store {
	return &Store{db: db, cipher: cipher, now: time.Now}
}

// SetClock replaces the clock used to decide whether a poll has expired.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const pollColumns = `id, title, description, creator_id, end_time, is_active, options, channel_id, message_id, total_votes`

// dbTime normalizes timestamps so both dialects compare them the same way
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func encodeOptions(options []string) (string, error) {
	b, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to encode options: %w", err)
	}
	return string(b), nil
}

func decodeOptions(raw string) ([]string, error) {
	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	return options, nil
}

func scanPoll(row scanner) (models.Poll, error) {
	var (
		p          models.Poll
		creatorID  int64
		channelID  int64
		messageID  sql.NullInt64
		optionsRaw string
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &creatorID, &p.EndTime,
		&p.IsActive, &optionsRaw, &channelID, &messageID, &p.TotalVotes,
	)
	if err != nil {
		return models.Poll{}, err
	}

	p.Options, err = decodeOptions(optionsRaw)
	if err != nil {
		return models.Poll{}, err
	}
	p.CreatorID = uint64(creatorID)
	p.ChannelID = uint64(channelID)
	if messageID.Valid {
		p.MessageID = uint64(messageID.Int64)
	}
	return p, nil
}

func queryPolls(ctx context.Context, q queryer, query string, args ...any) ([]models.Poll, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	polls := []models.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	return polls, rows.Err()
}

// tally counts votes per choice. Choices without votes are absent.
func tally(ctx context.Context, q queryer, pollID int64) (map[int]int, int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT choice, COUNT(*)
		FROM votes
		WHERE poll_id = $1
		GROUP BY choice
	`, pollID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to tally votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	total := 0
	for rows.Next() {
		var choice, votes int
		if err := rows.Scan(&choice, &votes); err != nil {
			return nil, 0, fmt.Errorf("failed to scan tally: %w", err)
		}
		counts[choice] = votes
		total += votes
	}
	return counts, total, rows.Err()
}

// lockPoll takes the poll's row lock as the first statement of a transaction
// and reports whether the poll exists. The no-op update works in both
// dialects; on Postgres it makes every later statement in the transaction see
// the work of any vote or finalize that held the lock before it.
func lockPoll(ctx context.Context, tx *sql.Tx, pollID int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE polls SET total_votes = total_votes WHERE id = $1`, pollID)
	if err != nil {
		return false, fmt.Errorf("failed to lock poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to lock poll: %w", err)
	}
	return n == 1, nil
}

// isForeignKeyViolation reports a Postgres FK failure, which happens when a
// poll is deleted between a vote's read and its insert.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
