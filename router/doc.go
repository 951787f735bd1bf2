// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router wires inbound traffic to handlers.

# Interactions

InteractionRouter implements chat.Dispatcher. Every handler is wrapped with
panic recovery and interaction logging:

	end-selection button (poll_end_<id>)  -> PollHandler.End
	vote button (poll_<id>_<choice>)      -> VotingHandler.Vote
	/poll command                         -> PollHandler.Command

# HTTP

NewRouter serves the operational endpoints:

	GET /health  - Database ping, JSON status
	GET /metrics - Prometheus metrics
	GET /        - Version banner
*/
package router
