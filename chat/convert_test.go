// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chat

import (
	"fmt"
	"testing"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/utils/json"

	"github.com/danielhkuo/tokumei-poll/models"
)

func stringOpt(name, value string) discord.CommandInteractionOption {
	return discord.CommandInteractionOption{
		Name:  name,
		Type:  discord.StringOptionType,
		Value: json.Raw(`"` + value + `"`),
	}
}

func TestToInteractionCommand(t *testing.T) {
	e := &discord.InteractionEvent{
		ID:        42,
		ChannelID: 100,
		Member:    &discord.Member{User: discord.User{ID: 7}},
		Data: &discord.CommandInteraction{
			Name: CommandName,
			Options: []discord.CommandInteractionOption{
				stringOpt("action", models.ActionCreate),
				stringOpt("title", "Lunch"),
				stringOpt("options", "A,B"),
				{Name: "duration", Type: discord.IntegerOptionType, Value: json.Raw(`60`)},
			},
		},
	}

	in, ok := toInteraction(e)
	if !ok {
		t.Fatal("Expected command interaction to be handled")
	}
	if in.IsComponent() {
		t.Error("Command interaction reported as component")
	}
	if in.UserID != 7 || in.ChannelID != 100 || in.ID != "42" {
		t.Errorf("Unexpected identity fields: %+v", in)
	}
	if in.Action != models.ActionCreate || in.Title != "Lunch" || in.Options != "A,B" {
		t.Errorf("Unexpected options: %+v", in)
	}
	if in.DurationMinutes != 60 {
		t.Errorf("Expected duration 60, got %d", in.DurationMinutes)
	}
	if in.Description != "" {
		t.Errorf("Expected missing description to be empty, got %q", in.Description)
	}
}

func TestToInteractionMissingDuration(t *testing.T) {
	e := &discord.InteractionEvent{
		User: &discord.User{ID: 9},
		Data: &discord.CommandInteraction{
			Name:    CommandName,
			Options: []discord.CommandInteractionOption{stringOpt("action", models.ActionEnd)},
		},
	}

	in, ok := toInteraction(e)
	if !ok {
		t.Fatal("Expected command interaction to be handled")
	}
	if in.DurationMinutes != 0 {
		t.Errorf("Expected 0 for missing duration, got %d", in.DurationMinutes)
	}
	if in.UserID != 9 {
		t.Errorf("Expected user fallback 9, got %d", in.UserID)
	}
}

func TestToInteractionButton(t *testing.T) {
	e := &discord.InteractionEvent{
		Member: &discord.Member{User: discord.User{ID: 7}},
		Data:   &discord.ButtonInteraction{CustomID: discord.ComponentID(models.VoteButtonID(3, 1))},
	}

	in, ok := toInteraction(e)
	if !ok {
		t.Fatal("Expected button interaction to be handled")
	}
	if !in.IsComponent() {
		t.Error("Expected component interaction")
	}
	if in.CustomID != "poll_3_1" {
		t.Errorf("Expected custom ID poll_3_1, got %q", in.CustomID)
	}
}

func TestToInteractionIgnoresOtherCommands(t *testing.T) {
	e := &discord.InteractionEvent{Data: &discord.CommandInteraction{Name: "ping"}}
	if _, ok := toInteraction(e); ok {
		t.Error("Expected unrelated command to be ignored")
	}

	e = &discord.InteractionEvent{Data: &discord.PingInteraction{}}
	if _, ok := toInteraction(e); ok {
		t.Error("Expected ping to be ignored")
	}
}

func TestButtonRows(t *testing.T) {
	tests := []struct {
		count    int
		wantRows int
		wantLast int
	}{
		{count: 0, wantRows: 0},
		{count: 2, wantRows: 1, wantLast: 2},
		{count: 5, wantRows: 1, wantLast: 5},
		{count: 6, wantRows: 2, wantLast: 1},
		{count: 25, wantRows: 5, wantLast: 5},
		{count: 30, wantRows: 5, wantLast: 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d buttons", tt.count), func(t *testing.T) {
			buttons := make([]models.Button, tt.count)
			for i := range buttons {
				buttons[i] = models.Button{CustomID: models.EndButtonID(int64(i + 1)), Label: "x"}
			}

			rows := buttonRows(buttons, discord.SecondaryButtonStyle())
			if len(rows) != tt.wantRows {
				t.Fatalf("Expected %d rows, got %d", tt.wantRows, len(rows))
			}
			if tt.wantRows == 0 {
				return
			}
			last, ok := rows[len(rows)-1].(*discord.ActionRowComponent)
			if !ok {
				t.Fatalf("Expected action row, got %T", rows[len(rows)-1])
			}
			if len(*last) != tt.wantLast {
				t.Errorf("Expected %d buttons in last row, got %d", tt.wantLast, len(*last))
			}
		})
	}
}

func TestPollComponents(t *testing.T) {
	msg := models.PollMessage{PollID: 12, Options: []string{"A", "B", "C"}}

	rows := pollComponents(msg)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	row := rows[0].(*discord.ActionRowComponent)
	for i, c := range *row {
		btn, ok := c.(*discord.ButtonComponent)
		if !ok {
			t.Fatalf("Expected button, got %T", c)
		}
		if want := models.VoteButtonID(12, i); string(btn.CustomID) != want {
			t.Errorf("Button %d: expected %q, got %q", i, want, btn.CustomID)
		}
		if btn.Label != msg.Options[i] {
			t.Errorf("Button %d: expected label %q, got %q", i, msg.Options[i], btn.Label)
		}
	}
}

func TestPollEmbed(t *testing.T) {
	e := pollEmbed(models.PollMessage{Title: "Lunch", EndTimeText: "soon", TotalVotes: 3})

	if e.Title != "Lunch" {
		t.Errorf("Expected title Lunch, got %q", e.Title)
	}
	if len(e.Fields) != 2 {
		t.Fatalf("Expected 2 fields, got %d", len(e.Fields))
	}
	if e.Fields[0].Value != "soon" || e.Fields[1].Value != "3" {
		t.Errorf("Unexpected fields: %+v", e.Fields)
	}
}

func TestReplyData(t *testing.T) {
	data := replyData(models.Reply{Content: "hi"})
	if data.Flags&discord.EphemeralMessage == 0 {
		t.Error("Expected reply to be ephemeral")
	}
	if data.Content == nil || data.Content.Val != "hi" {
		t.Errorf("Unexpected content: %+v", data.Content)
	}
	if data.Components != nil {
		t.Error("Expected no components for plain reply")
	}

	data = replyData(models.Reply{Content: "pick", Buttons: []models.Button{{CustomID: models.EndButtonID(1), Label: "ID: 1 - Lunch"}}})
	if data.Components == nil || len(*data.Components) != 1 {
		t.Error("Expected one row of end buttons")
	}
}
