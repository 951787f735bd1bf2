// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCooldown(2 * time.Second)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := c.Allow(ctx, "vote:1"); !ok {
		t.Fatal("First use should be allowed")
	}

	now = now.Add(500 * time.Millisecond)
	ok, wait := c.Allow(ctx, "vote:1")
	if ok {
		t.Fatal("Repeat within window should be rejected")
	}
	if wait != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s remaining, got %v", wait)
	}
	if remainingSeconds(wait) != 2 {
		t.Errorf("Expected wait rounded up to 2s, got %d", remainingSeconds(wait))
	}

	// Other keys are independent
	if ok, _ := c.Allow(ctx, "vote:2"); !ok {
		t.Error("Different user should be allowed")
	}

	now = now.Add(1500 * time.Millisecond)
	if ok, _ := c.Allow(ctx, "vote:1"); !ok {
		t.Error("Use after the window should be allowed")
	}
}

func TestMemoryCooldown_ZeroWindow(t *testing.T) {
	c := NewMemoryCooldown(0)
	for i := 0; i < 3; i++ {
		if ok, _ := c.Allow(context.Background(), "k"); !ok {
			t.Fatal("Zero window should always allow")
		}
	}
}

func TestRedisCooldown_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewRedisCooldown(client, "poll:cooldown:", 2*time.Second)
	for i := 0; i < 2; i++ {
		if ok, _ := c.Allow(context.Background(), "vote:1"); !ok {
			t.Fatal("Unreachable redis should not block actions")
		}
	}
}

func TestRemainingSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{100 * time.Millisecond, 1},
		{time.Second, 1},
		{1001 * time.Millisecond, 2},
		{5 * time.Second, 5},
	}
	for _, tt := range tests {
		if got := remainingSeconds(tt.in); got != tt.want {
			t.Errorf("remainingSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
