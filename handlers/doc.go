// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the interaction handlers for anonymous polls.

# Handler Types

Each handler is a struct holding the poll store, a Messenger for channel
messages, a Cooldown, and Config:

  - PollHandler: /poll create and end, and the shared finalize path
  - VotingHandler: vote button presses

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(st, msgr, commandCooldown, cfg)
	votingHandler := handlers.NewVotingHandler(st, msgr, voteCooldown, cfg)

Handlers do not depend on a Discord client. They take models.Interaction
and return models.Reply; the chat package does the conversion.

# Poll Lifecycle

	/poll action:create → Create (validate, store, post message, attach)
	/poll action:end    → ListEndable (up to 25 poll_end_<id> buttons)
	poll_end_<id>       → End (creator only) → Finalize
	expiry sweep        → FinalizeExpired → Finalize
	retention cleanup   → PurgeRetired
	startup recovery    → Recover

Finalize deletes the poll with its votes and commitments in one store
transaction before anything is announced. When the sweep and a manual end
race, only one sees EndFinalized and posts results.

# Voting Flow

	poll_<id>_<choice> → Vote

Vote applies the per-user cooldown, calls Store.CastVote, maps the outcome
to a reply, and refreshes the live message. Refresh failures are logged
and never fail the vote.

# Result Rendering

RenderResults is pure: the leading option's bar is BarWidth blocks wide,
the others are scaled by votes*BarWidth/max, and each line reads

	████████████████████ 2票 (66.7%)

# Cooldowns

MemoryCooldown is per process. RedisCooldown shares the window between
processes with SET NX PX and fails open when Redis is unreachable.
*/
package handlers
