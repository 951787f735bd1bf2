// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/danielhkuo/tokumei-poll/models"
)

// InteractionFunc handles one interaction and returns the private reply
type InteractionFunc func(ctx context.Context, in models.Interaction) models.Reply

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		// Log request
		slog.Info("request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		// Call the next handler
		next(w, r)

		// Log completion
		duration := time.Since(start)
		slog.Info("request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

type outcomeKey struct{}

// interactionOutcome lets WithRecover report a failure to the enclosing
// WithInteractionLogging, so each interaction is counted exactly once
type interactionOutcome struct {
	failed bool
}

func markFailed(ctx context.Context) bool {
	o, ok := ctx.Value(outcomeKey{}).(*interactionOutcome)
	if ok {
		o.failed = true
	}
	return ok
}

// WithInteractionLogging wraps an interaction handler with logging and
// metrics. A correlation ID is assigned when the adapter did not set one.
// User IDs are logged for commands only; ballots are logged by poll.
func WithInteractionLogging(kind string, next InteractionFunc) InteractionFunc {
	return func(ctx context.Context, in models.Interaction) models.Reply {
		start := time.Now()
		if in.ID == "" {
			in.ID = uuid.NewString()
		}

		attrs := []any{"interaction_id", in.ID, "kind", kind}
		if !in.IsComponent() {
			attrs = append(attrs, "user_id", in.UserID, "action", in.Action)
		}
		slog.Debug("interaction started", attrs...)

		outcome := &interactionOutcome{}
		reply := next(context.WithValue(ctx, outcomeKey{}, outcome), in)

		duration := time.Since(start)
		status := "ok"
		if outcome.failed {
			status = "error"
		}
		slog.Info("interaction completed", append(attrs, "status", status, "duration_ms", duration.Milliseconds())...)
		recordInteraction(kind, status, duration)

		return reply
	}
}

// WithRecover turns a panic inside an interaction handler into a generic
// reply. Under WithInteractionLogging the failure is counted there;
// otherwise it is counted here.
func WithRecover(kind, fallback string, next InteractionFunc) InteractionFunc {
	return func(ctx context.Context, in models.Interaction) (reply models.Reply) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("interaction handler panicked", "interaction_id", in.ID, "kind", kind, "panic", r)
				if !markFailed(ctx) {
					recordInteraction(kind, "error", time.Since(start))
				}
				reply = models.Reply{Content: fallback}
			}
		}()
		return next(ctx, in)
	}
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
