// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown rejects repeats of the same key within a window. It is advisory:
// errors let the action through.
type Cooldown interface {
	// Allow reports whether key may act now. When it may not, the second
	// value is the time left in the window.
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

// MemoryCooldown is a per-process cooldown
type MemoryCooldown struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	lastUses map[string]time.Time
}

func NewMemoryCooldown(window time.Duration) *MemoryCooldown {
	return &MemoryCooldown{
		window:   window,
		now:      time.Now,
		lastUses: make(map[string]time.Time),
	}
}

func (c *MemoryCooldown) Allow(_ context.Context, key string) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.lastUses[key]; ok {
		if elapsed := now.Sub(last); elapsed < c.window {
			return false, c.window - elapsed
		}
	}
	c.lastUses[key] = now

	// Drop expired entries so the map does not grow without bound
	if len(c.lastUses) > 1024 {
		for k, t := range c.lastUses {
			if now.Sub(t) >= c.window {
				delete(c.lastUses, k)
			}
		}
	}
	return true, 0
}

// RedisCooldown shares the cooldown window between bot processes
type RedisCooldown struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewRedisCooldown(client *redis.Client, prefix string, window time.Duration) *RedisCooldown {
	return &RedisCooldown{client: client, prefix: prefix, window: window}
}

func (c *RedisCooldown) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if c.window <= 0 {
		return true, 0
	}
	k := c.prefix + key

	ok, err := c.client.SetNX(ctx, k, 1, c.window).Result()
	if err != nil {
		slog.Warn("cooldown check failed, allowing", "error", err)
		return true, 0
	}
	if ok {
		return true, 0
	}

	ttl, err := c.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		return false, c.window
	}
	return false, ttl
}

// remainingSeconds rounds a wait up to whole seconds, at least 1
func remainingSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}
