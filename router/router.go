// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/tokumei-poll/handlers"
	"github.com/danielhkuo/tokumei-poll/middleware"
	"github.com/danielhkuo/tokumei-poll/models"
)

// Interaction kinds, used as log and metric labels
const (
	KindCommand = "command"
	KindVote    = "vote"
	KindEnd     = "end"
)

const healthTimeout = 2 * time.Second

// InteractionRouter sends each interaction to the handler that owns it
type InteractionRouter struct {
	command middleware.InteractionFunc
	vote    middleware.InteractionFunc
	end     middleware.InteractionFunc
}

func NewInteractionRouter(pollHandler *handlers.PollHandler, votingHandler *handlers.VotingHandler) *InteractionRouter {
	return &InteractionRouter{
		command: wrap(KindCommand, pollHandler.Command),
		vote:    wrap(KindVote, votingHandler.Vote),
		end:     wrap(KindEnd, pollHandler.End),
	}
}

func wrap(kind string, fn middleware.InteractionFunc) middleware.InteractionFunc {
	return middleware.WithInteractionLogging(kind, middleware.WithRecover(kind, handlers.SystemErrorMessage, fn))
}

// Dispatch routes end-selection buttons, vote buttons and slash commands
func (r *InteractionRouter) Dispatch(ctx context.Context, in models.Interaction) models.Reply {
	switch {
	case in.IsComponent() && models.IsEndButtonID(in.CustomID):
		return r.end(ctx, in)
	case in.IsComponent():
		return r.vote(ctx, in)
	default:
		return r.command(ctx, in)
	}
}

// NewRouter serves the operational HTTP surface: health, metrics and root
func NewRouter(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", middleware.Metrics("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			middleware.JSONResponse(w, http.StatusServiceUnavailable, models.HealthResponse{
				Status:   "degraded",
				Database: "unreachable",
			})
			return
		}
		middleware.JSONResponse(w, http.StatusOK, models.HealthResponse{Status: "ok", Database: "ok"})
	}))

	mux.Handle("GET /metrics", promhttp.Handler())

	// Root endpoint
	mux.HandleFunc("GET /", middleware.WithLogging(middleware.Metrics("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.ErrorResponse(w, http.StatusNotFound, "no such endpoint")
			return
		}
		w.Write([]byte("tokumei-poll v1"))
	})))

	return mux
}
