// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"strings"
	"time"
)

// Option count bounds. Discord allows five buttons per action row.
const (
	MinOptions = 2
	MaxOptions = 5
)

// DefaultDuration applies when the creator does not pick a duration.
const DefaultDuration = 24 * time.Hour

// Validation errors
var (
	ErrTitleRequired   = errors.New("title is required")
	ErrOptionsRequired = errors.New("options are required")
	ErrTooFewOptions   = errors.New("at least 2 options are required")
	ErrTooManyOptions  = errors.New("at most 5 options are allowed")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidPollID   = errors.New("invalid poll id")
	ErrNotCreator      = errors.New("only the creator can end this poll")
)

// Poll actions accepted by the /poll command
const (
	ActionCreate = "create"
	ActionEnd    = "end"
)

// DurationChoice is one of the fixed poll lengths offered to the creator.
type DurationChoice struct {
	Name    string
	Minutes int
}

var DurationChoices = []DurationChoice{
	{Name: "30分", Minutes: 30},
	{Name: "1時間", Minutes: 60},
	{Name: "12時間", Minutes: 720},
	{Name: "1日", Minutes: 1440},
	{Name: "3日", Minutes: 4320},
	{Name: "1週間", Minutes: 10080},
}

// DurationFromMinutes maps a duration choice to a time.Duration.
// Zero means "not chosen" and yields DefaultDuration.
func DurationFromMinutes(minutes int) (time.Duration, error) {
	if minutes == 0 {
		return DefaultDuration, nil
	}
	for _, c := range DurationChoices {
		if c.Minutes == minutes {
			return time.Duration(minutes) * time.Minute, nil
		}
	}
	return 0, ErrInvalidDuration
}

// ParseOptions splits a comma-separated option list, trimming whitespace
// and dropping empty entries.
func ParseOptions(raw string) []string {
	var options []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			options = append(options, s)
		}
	}
	return options
}

// Request types

type CreatePollRequest struct {
	Title           string   `validate:"required,max=256"`
	Description     string   `validate:"max=1024"`
	Options         []string `validate:"min=2,max=5,dive,required,max=80"`
	DurationMinutes int      `validate:"min=0"`
	CreatorID       uint64   `validate:"required"`
	ChannelID       uint64   `validate:"required"`
}

// Domain types

type Poll struct {
	ID          int64
	Title       string
	Description string
	CreatorID   uint64
	EndTime     time.Time
	IsActive    bool
	Options     []string
	ChannelID   uint64
	MessageID   uint64 // 0 until the interactive message is attached
	TotalVotes  int
}

// NewPoll is the input to Store.CreatePoll.
type NewPoll struct {
	Title       string
	Description string
	CreatorID   uint64
	EndTime     time.Time
	Options     []string
	ChannelID   uint64
}

// VoteOutcome is the result of a ballot that reached the store.
type VoteOutcome int

const (
	VoteAccepted VoteOutcome = iota
	VoteDuplicate
	VotePollNotFound
	VotePollInactive
	VoteInvalidChoice
)

func (o VoteOutcome) String() string {
	switch o {
	case VoteAccepted:
		return "accepted"
	case VoteDuplicate:
		return "duplicate"
	case VotePollNotFound:
		return "poll_not_found"
	case VotePollInactive:
		return "poll_inactive"
	case VoteInvalidChoice:
		return "invalid_choice"
	default:
		return "unknown"
	}
}

type VoteResult struct {
	Outcome VoteOutcome
	// TotalVotes is the poll's count after the vote committed. Only set for VoteAccepted.
	TotalVotes int
}

// EndOutcome is the result of finalizing a poll.
type EndOutcome int

const (
	EndFinalized EndOutcome = iota
	EndNotFound
)

func (o EndOutcome) String() string {
	if o == EndFinalized {
		return "finalized"
	}
	return "not_found"
}

// Trigger records why a poll was finalized.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerExpired Trigger = "expired"
)

// FinalResult is everything read from a poll in the same transaction that deleted it.
type FinalResult struct {
	PollID    int64
	Title     string
	Options   []string
	Tally     map[int]int
	Total     int
	ChannelID uint64
	MessageID uint64
}

// Outbound message types

// PollMessage describes the live interactive poll message.
type PollMessage struct {
	PollID      int64
	Title       string
	Description string
	Note        string
	EndTime     time.Time
	EndTimeText string
	TotalVotes  int
	Options     []string
}

// ResultLine is one rendered option row of a result announcement.
type ResultLine struct {
	Label      string
	Bar        string
	Votes      int
	Percentage float64
	Text       string
}

// ResultMessage describes a final result announcement.
type ResultMessage struct {
	Content     string
	Title       string
	Description string
	Lines       []ResultLine
	Footer      string
}

// Reply is the private response to an interaction.
type Reply struct {
	Content string
	Buttons []Button
}

type Button struct {
	CustomID string
	Label    string
}

// Inbound interactions

// Interaction is a slash command or button press, already stripped of
// transport details by the chat adapter.
type Interaction struct {
	ID        string
	UserID    uint64
	ChannelID uint64

	// Set for /poll
	Command         string
	Action          string
	Title           string
	Description     string
	Options         string
	DurationMinutes int

	// Set for button presses
	CustomID string
}

// IsComponent reports whether the interaction came from a button.
func (i Interaction) IsComponent() bool {
	return i.CustomID != ""
}

// HTTP responses

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
