// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/tokumei-poll/cliparse"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestSetup_WritesRotatedFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "poll.log")
	closer, err := Setup(cliparse.Config{LogFile: path, LogLevel: "info"})
	require.NoError(t, err)

	slog.Info("poll created", "poll_id", 42)
	slog.Debug("hidden at info level")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `"msg":"poll created"`), out)
	assert.True(t, strings.Contains(out, `"poll_id":42`), out)
	assert.False(t, strings.Contains(out, "hidden at info level"), out)
}

func TestSetup_BadLevel(t *testing.T) {
	_, err := Setup(cliparse.Config{LogLevel: "loud"})
	assert.Error(t, err)
}
