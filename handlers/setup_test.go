// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"testing"

	"github.com/danielhkuo/tokumei-poll/store"
	"github.com/danielhkuo/tokumei-poll/testutil"
)

type testEnv struct {
	db     *sql.DB
	store  *store.Store
	msgr   *testutil.FakeMessenger
	voting *VotingHandler
	polls  *PollHandler
}

// setupTestEnv wires both handlers to an in-memory store with cooldowns disabled
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	st := store.New(db, testutil.NewTestCipher(t))
	msgr := testutil.NewFakeMessenger()
	cfg := testutil.GetTestConfig()

	return &testEnv{
		db:     db,
		store:  st,
		msgr:   msgr,
		voting: NewVotingHandler(st, msgr, NewMemoryCooldown(0), cfg),
		polls:  NewPollHandler(st, msgr, NewMemoryCooldown(0), cfg),
	}
}
