// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/danielhkuo/tokumei-poll/models"
)

// ErrFakeMessenger is returned by FakeMessenger when a failure is injected
var ErrFakeMessenger = errors.New("fake messenger failure")

// PostedPoll is a poll message recorded by FakeMessenger
type PostedPoll struct {
	ChannelID uint64
	MessageID uint64
	Message   models.PollMessage
}

// PostedResults is a result announcement recorded by FakeMessenger
type PostedResults struct {
	ChannelID uint64
	Message   models.ResultMessage
}

// FakeMessenger records outbound messages in memory
type FakeMessenger struct {
	mu sync.Mutex

	nextID  uint64
	Polls   []PostedPoll
	Updates []PostedPoll
	Deleted []uint64
	Results []PostedResults

	FailPost    bool
	FailUpdate  bool
	FailDelete  bool
	FailResults bool
}

func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{nextID: 1000}
}

func (m *FakeMessenger) PostPoll(_ context.Context, channelID uint64, msg models.PollMessage) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPost {
		return 0, ErrFakeMessenger
	}
	m.nextID++
	m.Polls = append(m.Polls, PostedPoll{ChannelID: channelID, MessageID: m.nextID, Message: msg})
	return m.nextID, nil
}

func (m *FakeMessenger) UpdatePoll(_ context.Context, channelID, messageID uint64, msg models.PollMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpdate {
		return ErrFakeMessenger
	}
	m.Updates = append(m.Updates, PostedPoll{ChannelID: channelID, MessageID: messageID, Message: msg})
	return nil
}

func (m *FakeMessenger) DeleteMessage(_ context.Context, _, messageID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDelete {
		return ErrFakeMessenger
	}
	m.Deleted = append(m.Deleted, messageID)
	return nil
}

func (m *FakeMessenger) PostResults(_ context.Context, channelID uint64, msg models.ResultMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailResults {
		return ErrFakeMessenger
	}
	m.Results = append(m.Results, PostedResults{ChannelID: channelID, Message: msg})
	return nil
}

// ResultCount returns the number of announcements posted so far
func (m *FakeMessenger) ResultCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Results)
}
