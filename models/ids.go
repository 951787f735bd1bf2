// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	votePrefix = "poll_"
	endPrefix  = "poll_end_"
)

// VoteButtonID is the component custom ID for one option of a poll.
func VoteButtonID(pollID int64, choice int) string {
	return fmt.Sprintf("%s%d_%d", votePrefix, pollID, choice)
}

// EndButtonID is the component custom ID for ending a poll from the selection list.
func EndButtonID(pollID int64) string {
	return endPrefix + strconv.FormatInt(pollID, 10)
}

// ParseVoteButtonID reverses VoteButtonID.
func ParseVoteButtonID(id string) (pollID int64, choice int, ok bool) {
	if strings.HasPrefix(id, endPrefix) || !strings.HasPrefix(id, votePrefix) {
		return 0, 0, false
	}
	parts := strings.Split(strings.TrimPrefix(id, votePrefix), "_")
	if len(parts) != 2 {
		return 0, 0, false
	}
	pollID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	choice, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return pollID, choice, true
}

// ParseEndButtonID reverses EndButtonID.
func ParseEndButtonID(id string) (int64, error) {
	if !strings.HasPrefix(id, endPrefix) {
		return 0, ErrInvalidPollID
	}
	pollID, err := strconv.ParseInt(strings.TrimPrefix(id, endPrefix), 10, 64)
	if err != nil || pollID <= 0 {
		return 0, ErrInvalidPollID
	}
	return pollID, nil
}

// IsEndButtonID reports whether id belongs to the end-poll selection list.
func IsEndButtonID(id string) bool {
	return strings.HasPrefix(id, endPrefix)
}
