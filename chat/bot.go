// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/state"

	"github.com/danielhkuo/tokumei-poll/models"
)

// Dispatcher routes an interaction to its handler
type Dispatcher interface {
	Dispatch(ctx context.Context, in models.Interaction) models.Reply
}

// Bot connects to the Discord gateway, turns interactions into
// models.Interaction, and implements handlers.Messenger on top of the REST API.
type Bot struct {
	state      *state.State
	dispatcher Dispatcher
	ctx        context.Context
}

func New(token string) *Bot {
	return &Bot{
		state: state.New("Bot " + token),
		ctx:   context.Background(),
	}
}

// SetDispatcher must be called before Run
func (b *Bot) SetDispatcher(d Dispatcher) {
	b.dispatcher = d
}

// Run opens the gateway, registers the /poll command and blocks until ctx is done
func (b *Bot) Run(ctx context.Context) error {
	if b.dispatcher == nil {
		return fmt.Errorf("chat: no dispatcher set")
	}
	b.ctx = ctx

	b.state.AddHandler(b.handleInteraction)
	b.state.AddIntents(gateway.IntentGuilds)
	b.state.AddIntents(gateway.IntentGuildMessages)

	app, err := b.state.CurrentApplication()
	if err != nil {
		return fmt.Errorf("failed to get application ID: %w", err)
	}

	if err := b.state.Open(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	defer b.state.Close()

	if _, err := b.state.BulkOverwriteCommands(app.ID, commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	slog.Info("discord gateway ready", "application_id", app.ID.String())

	<-ctx.Done()
	slog.Info("discord gateway closing")
	return nil
}

func (b *Bot) handleInteraction(e *gateway.InteractionCreateEvent) {
	in, ok := toInteraction(&e.InteractionEvent)
	if !ok {
		return
	}

	s := b.state.WithContext(b.ctx)

	// Acknowledge within Discord's 3 second window; the reply follows up
	ack := api.InteractionResponse{
		Type: api.DeferredMessageInteractionWithSource,
		Data: &api.InteractionResponseData{Flags: discord.EphemeralMessage},
	}
	if err := s.RespondInteraction(e.ID, e.Token, ack); err != nil {
		slog.Error("failed to acknowledge interaction", "interaction_id", in.ID, "error", err)
		return
	}

	reply := b.dispatcher.Dispatch(b.ctx, in)

	if _, err := s.FollowUpInteraction(e.AppID, e.Token, replyData(reply)); err != nil {
		slog.Error("failed to send interaction reply", "interaction_id", in.ID, "error", err)
	}
}

func (b *Bot) PostPoll(ctx context.Context, channelID uint64, msg models.PollMessage) (uint64, error) {
	m, err := b.state.WithContext(ctx).SendMessageComplex(discord.ChannelID(channelID), api.SendMessageData{
		Embeds:     []discord.Embed{pollEmbed(msg)},
		Components: pollComponents(msg),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send poll message: %w", err)
	}
	return uint64(m.ID), nil
}

func (b *Bot) UpdatePoll(ctx context.Context, channelID, messageID uint64, msg models.PollMessage) error {
	embeds := []discord.Embed{pollEmbed(msg)}
	_, err := b.state.WithContext(ctx).EditMessageComplex(discord.ChannelID(channelID), discord.MessageID(messageID), api.EditMessageData{
		Embeds: &embeds,
	})
	if err != nil {
		return fmt.Errorf("failed to edit poll message: %w", err)
	}
	return nil
}

func (b *Bot) DeleteMessage(ctx context.Context, channelID, messageID uint64) error {
	err := b.state.WithContext(ctx).DeleteMessage(discord.ChannelID(channelID), discord.MessageID(messageID), "poll ended")
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (b *Bot) PostResults(ctx context.Context, channelID uint64, msg models.ResultMessage) error {
	_, err := b.state.WithContext(ctx).SendMessageComplex(discord.ChannelID(channelID), api.SendMessageData{
		Content: msg.Content,
		Embeds:  []discord.Embed{resultEmbed(msg)},
	})
	if err != nil {
		return fmt.Errorf("failed to send results: %w", err)
	}
	return nil
}
