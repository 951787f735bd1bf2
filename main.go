// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/tokumei-poll/chat"
	"github.com/danielhkuo/tokumei-poll/cliparse"
	"github.com/danielhkuo/tokumei-poll/db"
	"github.com/danielhkuo/tokumei-poll/handlers"
	"github.com/danielhkuo/tokumei-poll/identity"
	"github.com/danielhkuo/tokumei-poll/logging"
	"github.com/danielhkuo/tokumei-poll/router"
	"github.com/danielhkuo/tokumei-poll/scheduler"
	"github.com/danielhkuo/tokumei-poll/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	logCloser, err := logging.Setup(cfg)
	if err != nil {
		slog.Error("Error configuring logging", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(cfg); err != nil {
		slog.Error("shutting down", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func run(cfg cliparse.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := db.CreateSchema(ctx, dbConn, cfg.DatabaseType); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	cipher, err := loadCipher(ctx, dbConn)
	if err != nil {
		return err
	}
	st := store.New(dbConn, cipher)

	voteCooldown, commandCooldown, closeRedis, err := newCooldowns(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRedis()

	bot := chat.New(cfg.DiscordToken)
	pollHandler := handlers.NewPollHandler(st, bot, commandCooldown, cfg)
	votingHandler := handlers.NewVotingHandler(st, bot, voteCooldown, cfg)
	bot.SetDispatcher(router.NewInteractionRouter(pollHandler, votingHandler))

	sched := scheduler.New(pollHandler, cfg)

	server := &http.Server{
		Handler:           router.NewRouter(dbConn),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Run(gctx)
	})

	g.Go(func() error {
		return sched.Run(gctx)
	})

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// loadCipher reads the identity key from the database, generating it on first start
func loadCipher(ctx context.Context, dbConn *sql.DB) (*identity.Cipher, error) {
	encoded, err := store.LoadOrCreateKey(ctx, dbConn, func() (string, error) {
		key, err := identity.GenerateKey()
		if err != nil {
			return "", err
		}
		slog.Info("generated new identity key")
		return identity.EncodeKey(key), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load identity key: %w", err)
	}

	key, err := identity.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("stored identity key is invalid: %w", err)
	}
	return identity.NewCipher(key)
}

// newCooldowns uses Redis when configured so limits hold across instances,
// otherwise per-process memory.
func newCooldowns(ctx context.Context, cfg cliparse.Config) (vote, command handlers.Cooldown, closeFn func(), err error) {
	if cfg.RedisURL == "" {
		return handlers.NewMemoryCooldown(cfg.VoteCooldown), handlers.NewMemoryCooldown(cfg.CommandCooldown), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		// Cooldowns fail open, so an unreachable Redis is not fatal
		slog.Warn("redis unreachable, cooldowns will not be enforced until it recovers", "error", err)
	} else {
		slog.Info("using redis cooldowns", "addr", opts.Addr)
	}

	vote = handlers.NewRedisCooldown(client, "tokumei:cooldown:", cfg.VoteCooldown)
	command = handlers.NewRedisCooldown(client, "tokumei:cooldown:", cfg.CommandCooldown)
	return vote, command, func() { client.Close() }, nil
}
