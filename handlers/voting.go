// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/danielhkuo/tokumei-poll/cliparse"
	"github.com/danielhkuo/tokumei-poll/middleware"
	"github.com/danielhkuo/tokumei-poll/models"
)

type VotingHandler struct {
	store    PollStore
	msgr     Messenger
	cooldown Cooldown
	loc      *time.Location
}

func NewVotingHandler(store PollStore, msgr Messenger, cooldown Cooldown, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{
		store:    store,
		msgr:     msgr,
		cooldown: cooldown,
		loc:      loadLocation(cfg.Timezone),
	}
}

// Vote handles a press of a poll_<id>_<choice> button
func (h *VotingHandler) Vote(ctx context.Context, in models.Interaction) models.Reply {
	pollID, choice, ok := models.ParseVoteButtonID(in.CustomID)
	if !ok {
		return models.Reply{Content: msgInvalidChoice}
	}

	if ok, wait := h.cooldown.Allow(ctx, "vote:"+strconv.FormatUint(in.UserID, 10)); !ok {
		return models.Reply{Content: fmt.Sprintf(msgVoteTooFast, remainingSeconds(wait))}
	}

	res, err := h.store.CastVote(ctx, pollID, in.UserID, choice)
	if err != nil {
		slog.Error("failed to cast vote", "poll_id", pollID, "error", err)
		middleware.RecordVote("error")
		return models.Reply{Content: msgVoteError}
	}

	slog.Info("vote processed", "poll_id", pollID, "outcome", res.Outcome.String())
	middleware.RecordVote(res.Outcome.String())

	switch res.Outcome {
	case models.VoteAccepted:
		total := h.refreshPollMessage(ctx, pollID, res.TotalVotes)
		return models.Reply{Content: fmt.Sprintf(msgVoteAccepted, total)}
	case models.VoteDuplicate:
		return models.Reply{Content: msgVoteDuplicate}
	case models.VoteInvalidChoice:
		return models.Reply{Content: msgInvalidChoice}
	default:
		return models.Reply{Content: msgPollEnded}
	}
}

// refreshPollMessage edits the live message with the current vote count.
// Failures are logged and swallowed: the vote is already recorded.
// Returns the count shown, which is never below the count at commit time.
func (h *VotingHandler) refreshPollMessage(ctx context.Context, pollID int64, committed int) int {
	p, err := h.store.GetActivePollSummary(ctx, pollID)
	if err != nil {
		slog.Warn("failed to load poll for message refresh", "poll_id", pollID, "error", err)
		return committed
	}

	total := max(p.TotalVotes, committed)
	p.TotalVotes = total

	if p.MessageID == 0 {
		return total
	}

	if err := h.msgr.UpdatePoll(ctx, p.ChannelID, p.MessageID, BuildPollMessage(p, "", h.loc)); err != nil {
		slog.Warn("failed to update poll message", "poll_id", pollID, "error", err)
	}
	return total
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown time zone, using UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}
