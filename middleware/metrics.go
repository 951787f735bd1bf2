// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Interactions partitioned by kind (command, vote, end) and status
	interactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_interactions_total",
			Help: "Total number of Discord interactions handled",
		},
		[]string{"kind", "status"},
	)

	interactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poll_interaction_duration_seconds",
			Help:    "Interaction handling latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Ballots partitioned by store outcome
	votesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_votes_total",
			Help: "Total number of ballots by outcome",
		},
		[]string{"outcome"},
	)

	pollsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poll_created_total",
			Help: "Total number of polls created",
		},
	)

	// Finalized polls partitioned by trigger (manual, expired)
	pollsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_finalized_total",
			Help: "Total number of polls finalized",
		},
		[]string{"trigger"},
	)

	// Background loop iterations partitioned by loop and result
	loopRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_loop_runs_total",
			Help: "Total number of lifecycle loop iterations",
		},
		[]string{"loop", "result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordVote counts a ballot outcome
func RecordVote(outcome string) {
	votesTotal.WithLabelValues(outcome).Inc()
}

// RecordPollCreated counts a created poll
func RecordPollCreated() {
	pollsCreated.Inc()
}

// RecordFinalized counts a finalized poll
func RecordFinalized(trigger string) {
	pollsFinalized.WithLabelValues(trigger).Inc()
}

// RecordLoopRun counts one lifecycle loop iteration
func RecordLoopRun(loop string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	loopRuns.WithLabelValues(loop, result).Inc()
}

func recordInteraction(kind, status string, d time.Duration) {
	interactionsTotal.WithLabelValues(kind, status).Inc()
	interactionDuration.WithLabelValues(kind).Observe(d.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Metrics records request counts for the operational HTTP surface.
// route is the registered pattern, not the raw path.
func Metrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	}
}
