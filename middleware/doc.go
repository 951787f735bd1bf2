// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides logging, recovery, and Prometheus metrics for
interaction handlers and the operational HTTP endpoints.

# Interaction Logging

Wrap interaction handlers with logging and metrics:

	vote := middleware.WithInteractionLogging("vote", votingHandler.Vote)

Each interaction gets a correlation ID (uuid) that is logged on
completion with the duration. Button presses are never logged with the
user ID so a ballot cannot be tied back to a voter through the logs.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

# Metrics

Counters are registered with promauto on the default registry:

	poll_interactions_total{kind,status}
	poll_interaction_duration_seconds{kind}
	poll_votes_total{outcome}
	poll_created_total
	poll_finalized_total{trigger}
	poll_loop_runs_total{loop,result}
	http_requests_total{method,route,status}

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusServiceUnavailable, "message")
*/
package middleware
