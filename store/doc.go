// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the durable poll state: polls, anonymous votes, duplicate
check commitments, and the encryption key.

Every exported operation is atomic. Operations that touch more than one
statement run inside a single database transaction, so callers never see
a VoteCheck without its Vote or a poll whose votes were half deleted.

# Vote Casting

CastVote runs in one transaction:

 1. Re-read the poll: missing, inactive, past its end time, or an
    out-of-range choice are returned as outcomes.
 2. Insert the commitment hash into vote_checks with ON CONFLICT DO
    NOTHING. Zero rows affected means the voter already voted.
 3. Insert the vote with the encrypted identity.
 4. Recompute total_votes from the votes table.

# Finalizing

EndPoll reads the tally and deletes the poll with its votes and
commitments in the same transaction. The transaction commits only if the
poll row was actually deleted by this caller, so of two racing finalizers
exactly one gets EndFinalized and the other gets EndNotFound.

# Dialects

Queries use $N placeholders and ON CONFLICT / RETURNING, which both
PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite) accept.
*/
package store
