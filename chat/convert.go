// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package chat

import (
	"strconv"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/utils/json/option"

	"github.com/danielhkuo/tokumei-poll/models"
)

// Discord limits
const (
	buttonsPerRow = 5
	maxRows       = 5
)

const (
	pollColor   discord.Color = 0x5865F2
	resultColor discord.Color = 0x57F287
)

const (
	fieldEndTime = "⏰ 終了時刻"
	fieldVotes   = "🗳️ 投票数"
)

// CommandName is the slash command handled by the bot
const CommandName = "poll"

var commands = []api.CreateCommandData{
	{
		Name:        CommandName,
		Description: "匿名投票の作成・管理",
		Options: []discord.CommandOption{
			&discord.StringOption{
				OptionName:  "action",
				Description: "実行するアクション",
				Required:    true,
				Choices: []discord.StringChoice{
					{Name: "投票を作成", Value: models.ActionCreate},
					{Name: "投票を終了", Value: models.ActionEnd},
				},
			},
			&discord.StringOption{
				OptionName:  "title",
				Description: "投票のタイトル",
			},
			&discord.StringOption{
				OptionName:  "description",
				Description: "投票の説明",
			},
			&discord.IntegerOption{
				OptionName:  "duration",
				Description: "投票期間",
				Choices:     durationChoices(),
			},
			&discord.StringOption{
				OptionName:  "options",
				Description: "選択肢（カンマ区切り、最大5個）",
			},
		},
	},
}

func durationChoices() []discord.IntegerChoice {
	choices := make([]discord.IntegerChoice, 0, len(models.DurationChoices))
	for _, c := range models.DurationChoices {
		choices = append(choices, discord.IntegerChoice{Name: c.Name, Value: c.Minutes})
	}
	return choices
}

// toInteraction strips an interaction event down to what the handlers need.
// Returns false for interaction types the bot does not handle.
func toInteraction(e *discord.InteractionEvent) (models.Interaction, bool) {
	in := models.Interaction{
		ID:        e.ID.String(),
		UserID:    senderID(e),
		ChannelID: uint64(e.ChannelID),
	}

	switch data := e.Data.(type) {
	case *discord.CommandInteraction:
		if data.Name != CommandName {
			return models.Interaction{}, false
		}
		in.Command = data.Name
		in.Action = stringOption(data.Options, "action")
		in.Title = stringOption(data.Options, "title")
		in.Description = stringOption(data.Options, "description")
		in.Options = stringOption(data.Options, "options")
		in.DurationMinutes = intOption(data.Options, "duration")
	case discord.ComponentInteraction:
		in.CustomID = string(data.ID())
	default:
		return models.Interaction{}, false
	}

	return in, true
}

func senderID(e *discord.InteractionEvent) uint64 {
	if e.Member != nil {
		return uint64(e.Member.User.ID)
	}
	if e.User != nil {
		return uint64(e.User.ID)
	}
	return 0
}

func stringOption(opts discord.CommandInteractionOptions, name string) string {
	opt := opts.Find(name)
	if opt.Name == "" {
		return ""
	}
	return opt.String()
}

func intOption(opts discord.CommandInteractionOptions, name string) int {
	opt := opts.Find(name)
	if opt.Name == "" {
		return 0
	}
	v, err := opt.IntValue()
	if err != nil {
		return -1
	}
	return int(v)
}

func pollEmbed(msg models.PollMessage) discord.Embed {
	return discord.Embed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       pollColor,
		Fields: []discord.EmbedField{
			{Name: fieldEndTime, Value: msg.EndTimeText, Inline: false},
			{Name: fieldVotes, Value: strconv.Itoa(msg.TotalVotes), Inline: false},
		},
	}
}

func pollComponents(msg models.PollMessage) discord.ContainerComponents {
	buttons := make([]models.Button, 0, len(msg.Options))
	for i, label := range msg.Options {
		buttons = append(buttons, models.Button{CustomID: models.VoteButtonID(msg.PollID, i), Label: label})
	}
	return buttonRows(buttons, discord.PrimaryButtonStyle())
}

func resultEmbed(msg models.ResultMessage) discord.Embed {
	fields := make([]discord.EmbedField, 0, len(msg.Lines))
	for _, l := range msg.Lines {
		fields = append(fields, discord.EmbedField{Name: l.Label, Value: l.Text, Inline: false})
	}
	return discord.Embed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       resultColor,
		Fields:      fields,
		Footer:      &discord.EmbedFooter{Text: msg.Footer},
	}
}

// buttonRows lays buttons out five per row, dropping any past Discord's row limit
func buttonRows(buttons []models.Button, style discord.ButtonComponentStyle) discord.ContainerComponents {
	var rows discord.ContainerComponents
	for start := 0; start < len(buttons) && len(rows) < maxRows; start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(buttons))

		row := make(discord.ActionRowComponent, 0, end-start)
		for _, b := range buttons[start:end] {
			row = append(row, &discord.ButtonComponent{
				CustomID: discord.ComponentID(b.CustomID),
				Label:    b.Label,
				Style:    style,
			})
		}
		rows = append(rows, &row)
	}
	return rows
}

// replyData is the private follow-up for an interaction
func replyData(r models.Reply) api.InteractionResponseData {
	data := api.InteractionResponseData{
		Content: option.NewNullableString(r.Content),
		Flags:   discord.EphemeralMessage,
	}
	if len(r.Buttons) > 0 {
		rows := buttonRows(r.Buttons, discord.SecondaryButtonStyle())
		data.Components = &rows
	}
	return data
}
