// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/tokumei-poll/models"
)

// BarWidth is the length of the bar for the option with the most votes
const BarWidth = 20

const (
	barFill    = "█"
	barPadding = "▁"
)

// RenderResults turns a tally into one line per option, in option order.
// Bars are scaled so the leading option fills BarWidth; tied leaders all
// fill it, and every bar is empty when nobody voted.
func RenderResults(options []string, tally map[int]int) []models.ResultLine {
	total, maxVotes := 0, 0
	for i := range options {
		v := tally[i]
		total += v
		if v > maxVotes {
			maxVotes = v
		}
	}

	lines := make([]models.ResultLine, 0, len(options))
	for i, label := range options {
		votes := tally[i]

		percentage := 0.0
		if total > 0 {
			percentage = float64(votes) / float64(total) * 100
		}

		barLength := 0
		if maxVotes > 0 {
			barLength = votes * BarWidth / maxVotes
		}
		bar := strings.Repeat(barFill, barLength) + strings.Repeat(barPadding, BarWidth-barLength)

		lines = append(lines, models.ResultLine{
			Label:      label,
			Bar:        bar,
			Votes:      votes,
			Percentage: percentage,
			Text:       fmt.Sprintf("%s %d票 (%.1f%%)", bar, votes, percentage),
		})
	}
	return lines
}

// BuildResultMessage renders the announcement for a finalized poll
func BuildResultMessage(final models.FinalResult, trigger models.Trigger) models.ResultMessage {
	msg := models.ResultMessage{
		Description: resultDescription,
		Lines:       RenderResults(final.Options, final.Tally),
		Footer:      fmt.Sprintf(resultFooter, final.Total),
	}
	suffix := ""
	if trigger == models.TriggerExpired {
		suffix = resultExpiredSuffix
		msg.Content = resultExpiredNotice
	}
	msg.Title = embedTitle(resultTitlePrefix, final.Title, suffix)
	return msg
}

// BuildPollMessage renders the live interactive message for a poll
func BuildPollMessage(p models.Poll, note string, loc *time.Location) models.PollMessage {
	body := p.Description
	if note != "" {
		body = note
	}
	if body == "" {
		body = pollDefaultBody
	}

	return models.PollMessage{
		PollID:      p.ID,
		Title:       embedTitle(pollTitlePrefix, p.Title, ""),
		Description: pollAnonymousHeader + body,
		Note:        note,
		EndTime:     p.EndTime,
		EndTimeText: FormatEndTime(p.EndTime, loc),
		TotalVotes:  p.TotalVotes,
		Options:     p.Options,
	}
}

// embedTitle joins prefix, title and suffix, shortening the title so the
// whole fits Discord's embed title limit
func embedTitle(prefix, title, suffix string) string {
	room := MaxEmbedTitle - utf8.RuneCountInString(prefix) - utf8.RuneCountInString(suffix)
	return prefix + truncateRunes(title, room) + suffix
}

// truncateRunes cuts s to at most limit runes, marking the cut with an ellipsis
func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	return string(r[:limit-1]) + "…"
}

// FormatEndTime renders an end time in loc followed by a Discord relative timestamp
func FormatEndTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return fmt.Sprintf("%s (%s)\n<t:%d:R>", local.Format("2006/01/02 15:04"), local.Format("MST"), t.Unix())
}
