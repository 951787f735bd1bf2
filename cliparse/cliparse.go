// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken string
	DatabaseURL  string
	DatabaseType string
	Port         int
	RedisURL     string
	LogFile      string
	LogLevel     string
	Recover      bool
	Timezone     string

	SweepInterval   time.Duration
	CleanupInterval time.Duration
	RetentionGrace  time.Duration
	VoteCooldown    time.Duration
	CommandCooldown time.Duration
}

// LoadDotEnv loads variables from a .env file if one exists.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ParseFlags reads flags, falling back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("tokumei-poll", flag.ContinueOnError)

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.DiscordToken, "token", "", "Discord bot token (prefer env)")

	// Storage
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (postgres or sqlite)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for shared cooldowns")

	// Operations
	fs.IntVar(&cfg.Port, "p", 0, "Health and metrics port")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Rotated log file path")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Recover, "recover", false, "Re-post active polls on startup")
	fs.StringVar(&cfg.Timezone, "tz", "", "Time zone for displayed end times")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	if cfg.DiscordToken == "" {
		cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	}
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("discord token required (use -token or DISCORD_TOKEN env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "postgres"
		}
	}
	if cfg.DatabaseType != "postgres" && cfg.DatabaseType != "sqlite" {
		return Config{}, fmt.Errorf("invalid database type %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" && cfg.DatabaseType == "postgres" {
		cfg.DatabaseURL = postgresURLFromEnv()
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d, DATABASE_URL or DB_HOST env)")
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = os.Getenv("LOG_FILE")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = envOr("LOG_LEVEL", "info")
	}
	if cfg.Timezone == "" {
		cfg.Timezone = envOr("POLL_TIMEZONE", "Asia/Tokyo")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("invalid time zone %q: %w", cfg.Timezone, err)
	}

	if !setFlags["recover"] {
		if v := os.Getenv("POLL_RECOVER"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return Config{}, errors.New("invalid POLL_RECOVER env variable")
			}
			cfg.Recover = b
		}
	}

	durations := []struct {
		dst *time.Duration
		env string
		def time.Duration
	}{
		{&cfg.SweepInterval, "POLL_SWEEP_INTERVAL", 10 * time.Second},
		{&cfg.CleanupInterval, "POLL_CLEANUP_INTERVAL", 24 * time.Hour},
		{&cfg.RetentionGrace, "POLL_RETENTION", 24 * time.Hour},
		{&cfg.VoteCooldown, "POLL_VOTE_COOLDOWN", 2 * time.Second},
		{&cfg.CommandCooldown, "POLL_COMMAND_COOLDOWN", 5 * time.Second},
	}
	for _, d := range durations {
		v, err := envDuration(d.env, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	return cfg, nil
}

// postgresURLFromEnv builds a connection string from DB_HOST, DB_USER,
// DB_PASSWORD and DB_NAME. Returns "" when DB_HOST is unset.
func postgresURLFromEnv() string {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + envOr("DB_NAME", "poll"),
		RawQuery: "sslmode=" + envOr("DB_SSLMODE", "disable"),
	}
	if user := os.Getenv("DB_USER"); user != "" {
		if pw := os.Getenv("DB_PASSWORD"); pw != "" {
			u.User = url.UserPassword(user, pw)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}
