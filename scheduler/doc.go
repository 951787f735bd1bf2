// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package scheduler runs the poll lifecycle loops.

# Loops

  - expiry_sweep: every SweepInterval, finalize active polls past their end time
  - retention_cleanup: every CleanupInterval, purge ended polls older than the retention grace
  - restart_recovery: once at startup when Recover is set, re-post active poll messages

Each loop owns its failure containment. An error or panic inside one
iteration is logged with a run ID and counted in poll_loop_runs_total;
the next tick runs normally.

# Usage

	sched := scheduler.New(pollHandler, cfg)
	g.Go(func() error { return sched.Run(ctx) })
*/
package scheduler
