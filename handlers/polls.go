// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/danielhkuo/tokumei-poll/cliparse"
	"github.com/danielhkuo/tokumei-poll/middleware"
	"github.com/danielhkuo/tokumei-poll/models"
)

type PollHandler struct {
	store     PollStore
	msgr      Messenger
	cooldown  Cooldown
	validate  *validator.Validate
	loc       *time.Location
	retention time.Duration
	now       func() time.Time
}

func NewPollHandler(store PollStore, msgr Messenger, cooldown Cooldown, cfg cliparse.Config) *PollHandler {
	return &PollHandler{
		store:     store,
		msgr:      msgr,
		cooldown:  cooldown,
		validate:  validator.New(),
		loc:       loadLocation(cfg.Timezone),
		retention: cfg.RetentionGrace,
		now:       time.Now,
	}
}

// SetClock replaces the clock used for end times and sweeps
func (h *PollHandler) SetClock(now func() time.Time) {
	h.now = now
}

// Command handles /poll and dispatches on the action parameter
func (h *PollHandler) Command(ctx context.Context, in models.Interaction) models.Reply {
	if ok, wait := h.cooldown.Allow(ctx, "command:"+strconv.FormatUint(in.UserID, 10)); !ok {
		return models.Reply{Content: fmt.Sprintf(msgCommandTooFast, remainingSeconds(wait))}
	}

	switch in.Action {
	case models.ActionCreate:
		return h.Create(ctx, models.CreatePollRequest{
			Title:           strings.TrimSpace(in.Title),
			Description:     strings.TrimSpace(in.Description),
			Options:         models.ParseOptions(in.Options),
			DurationMinutes: in.DurationMinutes,
			CreatorID:       in.UserID,
			ChannelID:       in.ChannelID,
		})
	case models.ActionEnd:
		return h.ListEndable(ctx, in.UserID)
	default:
		return models.Reply{Content: msgUnknownAction}
	}
}

// Create validates a request, stores the poll and posts its interactive message
func (h *PollHandler) Create(ctx context.Context, req models.CreatePollRequest) models.Reply {
	duration, err := h.validateCreate(req)
	if err != nil {
		return models.Reply{Content: createErrorMessage(err)}
	}

	endTime := h.now().Add(duration)
	pollID, err := h.store.CreatePoll(ctx, models.NewPoll{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   req.CreatorID,
		EndTime:     endTime,
		Options:     req.Options,
		ChannelID:   req.ChannelID,
	})
	if err != nil {
		slog.Error("failed to create poll", "error", err)
		return models.Reply{Content: msgCreateError}
	}

	p := models.Poll{
		ID:          pollID,
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   req.CreatorID,
		EndTime:     endTime,
		IsActive:    true,
		Options:     req.Options,
		ChannelID:   req.ChannelID,
	}

	messageID, err := h.msgr.PostPoll(ctx, req.ChannelID, BuildPollMessage(p, "", h.loc))
	if err != nil {
		slog.Error("failed to post poll message", "poll_id", pollID, "error", err)
		// Nobody can vote on a poll without a message
		if _, _, endErr := h.store.EndPoll(ctx, pollID); endErr != nil {
			slog.Error("failed to remove unposted poll", "poll_id", pollID, "error", endErr)
		}
		return models.Reply{Content: msgCreateError}
	}

	if err := h.store.AttachMessage(ctx, pollID, messageID); err != nil {
		// Votes still work; only live tally edits and cleanup of the message are lost
		slog.Error("failed to attach message", "poll_id", pollID, "message_id", messageID, "error", err)
	}

	slog.Info("poll created", "poll_id", pollID, "creator_id", req.CreatorID, "options", len(req.Options), "end_time", endTime)
	middleware.RecordPollCreated()

	return models.Reply{Content: fmt.Sprintf(msgCreated, pollID)}
}

// validateCreate runs the struct validator and maps failures to sentinel errors
func (h *PollHandler) validateCreate(req models.CreatePollRequest) (time.Duration, error) {
	if req.Title == "" || len(req.Options) == 0 {
		if req.Title == "" {
			return 0, models.ErrTitleRequired
		}
		return 0, models.ErrOptionsRequired
	}
	if len(req.Options) < models.MinOptions {
		return 0, models.ErrTooFewOptions
	}
	if len(req.Options) > models.MaxOptions {
		return 0, models.ErrTooManyOptions
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+":"+fe.Tag())
			}
			return 0, fmt.Errorf("%w: %s", errInvalidRequest, strings.Join(fields, ", "))
		}
		return 0, err
	}

	return models.DurationFromMinutes(req.DurationMinutes)
}

var errInvalidRequest = errors.New("invalid request")

func createErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrTitleRequired), errors.Is(err, models.ErrOptionsRequired):
		return msgTitleOptionsRequired
	case errors.Is(err, models.ErrTooFewOptions):
		return msgTooFewOptions
	case errors.Is(err, models.ErrTooManyOptions):
		return fmt.Sprintf(msgTooManyOptions, models.MaxOptions)
	case errors.Is(err, models.ErrInvalidDuration):
		return msgInvalidDuration
	case errors.Is(err, errInvalidRequest):
		return fmt.Sprintf(msgInvalidInput, strings.TrimPrefix(err.Error(), errInvalidRequest.Error()+": "))
	default:
		return msgCreateError
	}
}

// ListEndable returns the caller's active polls as end buttons
func (h *PollHandler) ListEndable(ctx context.Context, userID uint64) models.Reply {
	polls, err := h.store.ListActiveByCreator(ctx, userID, MaxEndChoices)
	if err != nil {
		slog.Error("failed to list polls", "creator_id", userID, "error", err)
		return models.Reply{Content: msgSystemError}
	}
	if len(polls) == 0 {
		return models.Reply{Content: msgNoEndable}
	}

	buttons := make([]models.Button, 0, len(polls))
	for _, p := range polls {
		buttons = append(buttons, models.Button{
			CustomID: models.EndButtonID(p.ID),
			Label:    truncateLabel(fmt.Sprintf("ID: %d - %s", p.ID, p.Title)),
		})
	}
	return models.Reply{Content: msgChooseEnd, Buttons: buttons}
}

// End handles a press of a poll_end_<id> button. Only the creator may end a poll.
func (h *PollHandler) End(ctx context.Context, in models.Interaction) models.Reply {
	pollID, err := models.ParseEndButtonID(in.CustomID)
	if err != nil {
		return models.Reply{Content: endErrorMessage(err)}
	}

	p, err := h.store.GetActivePollSummary(ctx, pollID)
	if err != nil {
		if isNotFound(err) {
			return models.Reply{Content: msgPollNotFound}
		}
		slog.Error("failed to load poll", "poll_id", pollID, "error", err)
		return models.Reply{Content: msgSystemError}
	}
	if err := authorizeEnd(p, in.UserID); err != nil {
		slog.Warn("end attempted by non-creator", "poll_id", pollID, "user_id", in.UserID)
		return models.Reply{Content: endErrorMessage(err)}
	}

	outcome, err := h.Finalize(ctx, pollID, models.TriggerManual)
	if err != nil {
		return models.Reply{Content: msgEndError}
	}
	if outcome == models.EndNotFound {
		return models.Reply{Content: msgPollNotFound}
	}
	return models.Reply{Content: msgEnded}
}

// authorizeEnd allows only the creator to end a poll
func authorizeEnd(p models.Poll, userID uint64) error {
	if p.CreatorID != userID {
		return models.ErrNotCreator
	}
	return nil
}

func endErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrNotCreator):
		return msgNotCreator
	case errors.Is(err, models.ErrInvalidPollID):
		return msgInvalidPollID
	default:
		return msgEndError
	}
}

// Finalize is the shared end path for manual and expired polls: read the
// tally and delete the poll in one store transaction, then announce the
// results and remove the live message. Cosmetic failures are logged only.
// A poll already finalized by someone else yields EndNotFound and no
// announcement.
func (h *PollHandler) Finalize(ctx context.Context, pollID int64, trigger models.Trigger) (models.EndOutcome, error) {
	final, outcome, err := h.store.EndPoll(ctx, pollID)
	if err != nil {
		slog.Error("failed to end poll", "poll_id", pollID, "trigger", trigger, "error", err)
		return models.EndNotFound, err
	}
	if outcome == models.EndNotFound {
		slog.Info("poll already finalized", "poll_id", pollID, "trigger", trigger)
		return outcome, nil
	}

	middleware.RecordFinalized(string(trigger))

	if final.MessageID != 0 {
		if err := h.msgr.DeleteMessage(ctx, final.ChannelID, final.MessageID); err != nil {
			slog.Warn("failed to delete poll message", "poll_id", pollID, "message_id", final.MessageID, "error", err)
		}
	}

	if err := h.msgr.PostResults(ctx, final.ChannelID, BuildResultMessage(final, trigger)); err != nil {
		slog.Warn("failed to post results", "poll_id", pollID, "error", err)
	}

	slog.Info("poll finalized", "poll_id", pollID, "trigger", trigger, "total_votes", final.Total)
	return outcome, nil
}

// FinalizeExpired runs one expiry sweep. A failure on one poll does not stop
// the others; the returned error joins every failure.
func (h *PollHandler) FinalizeExpired(ctx context.Context) (int, error) {
	polls, err := h.store.SweepExpired(ctx, h.now())
	if err != nil {
		return 0, err
	}

	finalized := 0
	var errs []error
	for _, p := range polls {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		outcome, err := h.Finalize(ctx, p.ID, models.TriggerExpired)
		if err != nil {
			errs = append(errs, fmt.Errorf("poll %d: %w", p.ID, err))
			continue
		}
		if outcome == models.EndFinalized {
			finalized++
		}
	}
	return finalized, errors.Join(errs...)
}

// PurgeRetired removes ended polls older than the retention grace period
func (h *PollHandler) PurgeRetired(ctx context.Context) (int64, error) {
	n, err := h.store.PurgeRetired(ctx, h.now().Add(-h.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("purged retired polls", "count", n)
	}
	return n, nil
}

// Recover re-posts the interactive message of every active poll, deleting
// the old one first. Polls whose channel rejects the new message are
// deactivated and left for retention cleanup.
func (h *PollHandler) Recover(ctx context.Context) (int, error) {
	polls, err := h.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	recovered := 0
	var errs []error
	for _, p := range polls {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		if p.MessageID != 0 {
			if err := h.msgr.DeleteMessage(ctx, p.ChannelID, p.MessageID); err != nil {
				slog.Warn("failed to delete stale poll message", "poll_id", p.ID, "error", err)
			}
		}

		messageID, err := h.msgr.PostPoll(ctx, p.ChannelID, BuildPollMessage(p, recoveredNote, h.loc))
		if err != nil {
			slog.Error("failed to re-post poll", "poll_id", p.ID, "error", err)
			if derr := h.store.Deactivate(ctx, p.ID); derr != nil && !isNotFound(derr) {
				errs = append(errs, fmt.Errorf("poll %d: %w", p.ID, derr))
			}
			continue
		}

		if err := h.store.AttachMessage(ctx, p.ID, messageID); err != nil {
			if !isNotFound(err) {
				errs = append(errs, fmt.Errorf("poll %d: %w", p.ID, err))
			}
			continue
		}
		recovered++
	}

	slog.Info("active polls recovered", "count", recovered, "total", len(polls))
	return recovered, errors.Join(errs...)
}

// truncateLabel keeps button labels within Discord's 80 character limit
func truncateLabel(s string) string {
	return truncateRunes(s, maxButtonLabel)
}
