// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, outcome, and domain types shared by the
store, the handlers, and the chat adapter.

# Domain Types

  - Poll: poll metadata, options, and live message location
  - NewPoll: input to Store.CreatePoll
  - FinalResult: tally and location read while a poll is deleted

# Outcomes

Expected conflicts are values, not errors:

	VoteAccepted, VoteDuplicate, VotePollNotFound,
	VotePollInactive, VoteInvalidChoice

	EndFinalized, EndNotFound

# Outbound Messages

PollMessage, ResultMessage, and Reply describe what the bot posts without
depending on any Discord client library. The chat package converts them to
embeds and buttons.

# Component IDs

	poll_<poll_id>_<choice>  vote button
	poll_end_<poll_id>       end-poll selection button

# Constants

	MinOptions = 2
	MaxOptions = 5
	DefaultDuration = 24h
*/
package models
