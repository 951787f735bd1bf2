// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tokumei-poll/identity"
	"github.com/danielhkuo/tokumei-poll/models"
	"github.com/danielhkuo/tokumei-poll/testutil"
)

func setupStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	return New(conn, testutil.NewTestCipher(t)), conn
}

func TestCreatePoll(t *testing.T) {
	s, conn := setupStore(t)
	ctx := context.Background()

	pollID, err := s.CreatePoll(ctx, testutil.TestPoll(1))
	require.NoError(t, err)
	assert.Positive(t, pollID)

	p, err := s.GetActivePollSummary(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", p.Title)
	assert.Equal(t, []string{"A", "B"}, p.Options)
	assert.Equal(t, uint64(1), p.CreatorID)
	assert.Equal(t, uint64(100), p.ChannelID)
	assert.Zero(t, p.MessageID)
	assert.True(t, p.IsActive)
	assert.Zero(t, p.TotalVotes)

	require.NoError(t, s.AttachMessage(ctx, pollID, 555))
	p, err = s.GetActivePollSummary(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, uint64(555), p.MessageID)

	assert.ErrorIs(t, s.AttachMessage(ctx, 9999, 1), ErrNotFound)
	assert.Equal(t, 1, testutil.CountRows(t, conn, "polls", pollID))
}

func TestCreatePoll_OptionBounds(t *testing.T) {
	s, _ := setupStore(t)

	np := testutil.TestPoll(1)
	np.Options = []string{"only"}
	_, err := s.CreatePoll(context.Background(), np)
	assert.Error(t, err)

	np.Options = []string{"1", "2", "3", "4", "5", "6"}
	_, err = s.CreatePoll(context.Background(), np)
	assert.Error(t, err)
}

func TestGetActivePollSummary_Inactive(t *testing.T) {
	s, conn := setupStore(t)

	pollID := testutil.InsertTestPoll(t, conn, 1, time.Now().Add(time.Hour), false)
	_, err := s.GetActivePollSummary(context.Background(), pollID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetActivePollSummary(context.Background(), 424242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCastVote_Outcomes(t *testing.T) {
	s, conn := setupStore(t)
	ctx := context.Background()

	active := testutil.InsertTestPoll(t, conn, 1, time.Now().Add(time.Hour), true)
	inactive := testutil.InsertTestPoll(t, conn, 1, time.Now().Add(time.Hour), false)
	expired := testutil.InsertTestPoll(t, conn, 1, time.Now().Add(-time.Minute), true)

	tests := []struct {
		name    string
		pollID  int64
		voterID uint64
		choice  int
		want    models.VoteOutcome
	}{
		{"accepted", active, 10, 0, models.VoteAccepted},
		{"duplicate same choice", active, 10, 0, models.VoteDuplicate},
		{"duplicate different choice", active, 10, 1, models.VoteDuplicate},
		{"choice too high", active, 11, 2, models.VoteInvalidChoice},
		{"negative choice", active, 11, -1, models.VoteInvalidChoice},
		{"inactive poll", inactive, 10, 0, models.VotePollInactive},
		{"expired poll", expired, 10, 0, models.VotePollInactive},
		{"missing poll", 9999, 10, 0, models.VotePollNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.CastVote(ctx, tt.pollID, tt.voterID, tt.choice)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
		})
	}

	// Only the first ballot was written
	assert.Equal(t, 1, testutil.CountRows(t, conn, "votes", active))
	assert.Equal(t, 1, testutil.CountRows(t, conn, "vote_checks", active))
	assert.Zero(t, testutil.CountRows(t, conn, "votes", inactive))
	assert.Zero(t, testutil.CountRows(t, conn, "votes", expired))

	tally, err := s.Tally(ctx, active)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 1, 1: 0}, tally)
}

func TestCastVote_StoresEncryptedIdentity(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cipher := testutil.NewTestCipher(t)
	s := New(conn, cipher)
	ctx := context.Background()

	pollID, err := s.CreatePoll(ctx, testutil.TestPoll(1))
	require.NoError(t, err)

	res, err := s.CastVote(ctx, pollID, 987654321, 1)
	require.NoError(t, err)
	assert.Equal(t, models.VoteAccepted, res.Outcome)
	assert.Equal(t, 1, res.TotalVotes)

	var encrypted string
	var choice int
	err = conn.QueryRow(`SELECT encrypted_user_id, choice FROM votes WHERE poll_id = $1`, pollID).Scan(&encrypted, &choice)
	require.NoError(t, err)
	assert.Equal(t, 1, choice)
	assert.NotContains(t, encrypted, "987654321")

	voterID, err := cipher.DecryptIdentity(encrypted)
	require.NoError(t, err)
	assert.Equal(t, uint64(987654321), voterID)

	var hash string
	err = conn.QueryRow(`SELECT vote_hash FROM vote_checks WHERE poll_id = $1`, pollID).Scan(&hash)
	require.NoError(t, err)
	assert.Equal(t, identity.CommitmentHash(pollID, 987654321), hash)
}

func TestCastVote_SameVoterDifferentPolls(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	p1, err := s.CreatePoll(ctx, testutil.TestPoll(1))
	require.NoError(t, err)
	p2, err := s.CreatePoll(ctx, testutil.TestPoll(1))
	require.NoError(t, err)

	for _, pollID := range []int64{p1, p2} {
		res, err := s.CastVote(ctx, pollID, 42, 0)
		require.NoError(t, err)
		assert.Equal(t, models.VoteAccepted, res.Outcome)
	}
}

func TestCastVote_ConcurrentSameVoter(t *testing.T) {
	s, conn := setupStore(t)
	ctx := context.Background()

	pollID, err := s.CreatePoll(ctx, testutil.TestPoll(1))
	require.NoError(t, err)

	const attempts = 10
	var accepted, duplicate, failed int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(choice int) {
			defer wg.Done()
			res, err := s.CastVote(ctx, pollID, 7, choice%2)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				return
			}
			switch res.Outcome {
			case models.VoteAccepted:
				atomic.AddInt32(&accepted, 1)
			case models.VoteDuplicate:
				atomic.AddInt32(&duplicate, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Zero(t, failed)
	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(attempts-1), duplicate)
	assert.Equal(t, 1, testutil.CountRows(t, conn, "votes", pollID))
	assert.Equal(t, 1, testutil.CountRows(t, conn, "vote_checks", pollID))
}

func TestCastVote_ConcurrentTallyMatchesRows(t *testing.T) {
	s, conn := setupStore(t)
	ctx := context.Background()

	np := testutil.TestPoll(1)
	np.Options = []string{"A", "B", "C"}
	pollID, err := s.CreatePoll(ctx, np)
	require.NoError(t, err)

	const voters = 30
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(voter int) {
			defer wg.Done()
			_, _ = s.CastVote(ctx, pollID, uint64(1000+voter), voter%3)
		}(i)
	}
	wg.Wait()

	tally, err := s.Tally(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 10, 1: 10, 2: 10}, tally)

	p, err := s.GetActivePollSummary(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, voters, p.TotalVotes)
	assert.Equal(t, voters, testutil.CountRows(t, conn, "votes", pollID))
}

func TestTally_NotFound(t *testing.T) {
	s, _ := setupStore(t)
	_, err := s.Tally(context.Background(), 31337)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEndPoll(t *testing.T) {
	s, conn := setupStore(t)
	ctx := context.Background()

	pollID, err := s.CreatePoll(ctx, testutil.TestPoll(1))
	require.NoError(t, err)
	require.NoError(t, s.AttachMessage(ctx, pollID, 777))

	for voter, choice := range []int{0, 0, 1} {
		res, err := s.CastVote(ctx, pollID, uint64(voter+1), choice)
		require.NoError(t, err)
		require.Equal(t, models.VoteAccepted, res.Outcome)
	}

	final, outcome, err := s.EndPoll(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, models.EndFinalized, outcome)
	assert.Equal(t, "Lunch", final.Title)
	assert.Equal(t, []string{"A", "B"}, final.Options)
	assert.Equal(t, map[int]int{0: 2, 1: 1}, final.Tally)
	assert.Equal(t, 3, final.Total)
	assert.Equal(t, uint64(100), final.ChannelID)
	assert.Equal(t, uint64(777), final.MessageID)

	assert.Zero(t, testutil.CountRows(t, conn, "polls", pollID))
	assert.Zero(t, testutil.CountRows(t, conn, "votes", pollID))
	assert.Zero(t, testutil.CountRows(t, conn, "vote_checks", pollID))

	// Second finalize is a quiet no-op
	_, outcome, err = s.EndPoll(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, models.EndNotFound, outcome)
}

func TestEndPoll_ConcurrentFinalizers(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	pollID, err := s.CreatePoll(ctx, testutil.TestPoll(1))
	require.NoError(t, err)

	var finalized, notFound int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, outcome, err := s.EndPoll(ctx, pollID)
			if err != nil {
				return
			}
			if outcome == models.EndFinalized {
				atomic.AddInt32(&finalized, 1)
			} else {
				atomic.AddInt32(&notFound, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), finalized)
	assert.Equal(t, int32(4), notFound)
}

func TestSweepExpired(t *testing.T) {
	s, conn := setupStore(t)
	now := time.Now()

	expired := testutil.InsertTestPoll(t, conn, 1, now.Add(-time.Minute), true)
	testutil.InsertTestPoll(t, conn, 1, now.Add(time.Hour), true)
	testutil.InsertTestPoll(t, conn, 1, now.Add(-time.Hour), false)

	polls, err := s.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, polls, 1)
	assert.Equal(t, expired, polls[0].ID)

	// Read-only
	assert.Equal(t, 1, testutil.CountRows(t, conn, "polls", expired))
}

func TestPurgeRetired(t *testing.T) {
	s, conn := setupStore(t)
	ctx := context.Background()

	ended := time.Now().Add(-48 * time.Hour)
	retired := testutil.InsertTestPoll(t, conn, 1, ended, false)
	stillActive := testutil.InsertTestPoll(t, conn, 1, ended, true)

	_, err := conn.Exec(`INSERT INTO votes (poll_id, encrypted_user_id, choice) VALUES ($1, 'x', 0)`, retired)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO vote_checks (vote_hash, poll_id) VALUES ('h', $1)`, retired)
	require.NoError(t, err)

	// Before the threshold: untouched
	n, err := s.PurgeRetired(ctx, ended.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, testutil.CountRows(t, conn, "polls", retired))

	// After the threshold: gone with its votes and commitments
	n, err = s.PurgeRetired(ctx, ended.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, testutil.CountRows(t, conn, "polls", retired))
	assert.Zero(t, testutil.CountRows(t, conn, "votes", retired))
	assert.Zero(t, testutil.CountRows(t, conn, "vote_checks", retired))

	// Active polls are left for the expiry sweep
	assert.Equal(t, 1, testutil.CountRows(t, conn, "polls", stillActive))
}

func TestDeactivate(t *testing.T) {
	s, conn := setupStore(t)
	ctx := context.Background()

	pollID := testutil.InsertTestPoll(t, conn, 1, time.Now().Add(time.Hour), true)
	require.NoError(t, s.Deactivate(ctx, pollID))

	_, err := s.GetActivePollSummary(ctx, pollID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Deactivate(ctx, 9999), ErrNotFound)
}

func TestListActiveByCreator(t *testing.T) {
	s, conn := setupStore(t)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	mine1 := testutil.InsertTestPoll(t, conn, 1, future, true)
	mine2 := testutil.InsertTestPoll(t, conn, 1, future, true)
	testutil.InsertTestPoll(t, conn, 1, future, false)
	testutil.InsertTestPoll(t, conn, 2, future, true)

	polls, err := s.ListActiveByCreator(ctx, 1, 25)
	require.NoError(t, err)
	require.Len(t, polls, 2)
	assert.Equal(t, mine1, polls[0].ID)
	assert.Equal(t, mine2, polls[1].ID)

	polls, err = s.ListActiveByCreator(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, polls, 1)

	all, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLoadOrCreateKey(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()

	var generated int32
	generate := func() (string, error) {
		atomic.AddInt32(&generated, 1)
		key, err := identity.GenerateKey()
		if err != nil {
			return "", err
		}
		return identity.EncodeKey(key), nil
	}

	first, err := LoadOrCreateKey(ctx, conn, generate)
	require.NoError(t, err)
	second, err := LoadOrCreateKey(ctx, conn, generate)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), generated)

	_, err = identity.DecodeKey(first)
	assert.NoError(t, err)
}

func TestLoadOrCreateKey_ConcurrentFirstUse(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()

	generate := func() (string, error) {
		key, err := identity.GenerateKey()
		if err != nil {
			return "", err
		}
		return identity.EncodeKey(key), nil
	}

	keys := make([]string, 8)
	var wg sync.WaitGroup
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := LoadOrCreateKey(ctx, conn, generate)
			if err == nil {
				keys[i] = k
			}
		}(i)
	}
	wg.Wait()

	for _, k := range keys {
		assert.Equal(t, keys[0], k)
	}

	var rows int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM encryption_keys`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestScenario_ThreeVoters(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	np := testutil.TestPoll(1)
	np.EndTime = time.Now().Add(30 * time.Minute)
	pollID, err := s.CreatePoll(ctx, np)
	require.NoError(t, err)

	for voter, choice := range []int{0, 0, 1} {
		res, err := s.CastVote(ctx, pollID, uint64(500+voter), choice)
		require.NoError(t, err)
		require.Equal(t, models.VoteAccepted, res.Outcome)
		assert.Equal(t, voter+1, res.TotalVotes)
	}

	tally, err := s.Tally(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 2, 1: 1}, tally)
}

func TestScenario_RevoteIsDuplicate(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	pollID, err := s.CreatePoll(ctx, testutil.TestPoll(1))
	require.NoError(t, err)

	res, err := s.CastVote(ctx, pollID, 9, 0)
	require.NoError(t, err)
	require.Equal(t, models.VoteAccepted, res.Outcome)

	res, err = s.CastVote(ctx, pollID, 9, 1)
	require.NoError(t, err)
	assert.Equal(t, models.VoteDuplicate, res.Outcome)

	tally, err := s.Tally(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 1, 1: 0}, tally)
}
