// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package governance implements the meeting governance engine: ballot
tallying, scrutator quorum, organizer presence and failover, retention and
one-time recovery credentials.

# Wiring

The engine is built once in main over a Store and a notify.Notifier:

	engine := governance.NewEngine(store, hub, cfg.Governance, governance.SystemClock)
	go engine.Run(ctx) // presence monitor

Handlers call the components directly:

	engine.Tally.SubmitVote(ctx, pollID, optionID)
	engine.Quorum.RequestCycle(ctx, meetingID, requestedBy)
	engine.Quorum.CastVote(ctx, meetingID, name, approve)
	engine.Monitor.Heartbeat(ctx, meetingID, identity)
	engine.Recovery.Issue(ctx, meetingID)
	engine.Recovery.Redeem(ctx, code, password)
	engine.GenerateReport(ctx, meetingID)
	engine.PartialReport(ctx, meetingID)
	engine.ClosureStatus(ctx, meetingID)

# Ballot Tally

Votes reference a poll and an option only. Each submission takes the poll's
mutex from the LockManager, appends the vote and rebuilds the option counts
from every stored vote of the poll. Different polls never contend. Locks of
deleted polls are released by the retention cascade.

# Report State

A meeting carries one models.ReportState:

	idle             no cycle opened
	pending_approval collecting scrutator votes
	approved         majority voted yes
	rejected         majority voted no
	downloaded       final report produced, meeting being deleted

Requesting a report opens a new pending cycle from any state but
downloaded, clearing earlier votes. Generation moves approved (or any
state, when there are no approved scrutators) to downloaded exactly once.

With no approved scrutators a request allows direct generation. Otherwise a
cycle needs Majority(n) = n/2+1 yes votes among the currently approved
scrutators. Votes may be replaced while the cycle is pending. Generation
rechecks a stored approval against the current scrutator set.

# Presence

Monitor.Sweep runs every MonitorInterval. An organizer silent for longer
than AbsenceThreshold is marked absent. Leadership then passes to the
earliest-approved scrutator, or, with none, a deletion deadline is armed
DeletionDelay ahead. At the deadline the meeting is deleted unless someone
is still connected, in which case the deadline moves DeletionExtension
ahead. Heartbeats from the organizer or the leadership holder restore
presence and clear the deadline.

A failure on one meeting is logged and the sweep moves on.

# Retention

Retention.CascadeDelete broadcasts meeting_deleted, waits DeletionGrace and
then deletes votes, polls, participants, scrutators, recovery sessions and
finally the meeting. Every step runs even if an earlier one failed.

# Recovery

Recovery.Issue stores a bcrypt hash of a random password under a random
code, valid until the end of the UTC day. Redeem accepts the bare code or a
/recover/<code> URL. Each session can be redeemed once.

# Errors

Operations return errors wrapping the models sentinels (ErrNotFound,
ErrUnauthorized, ErrInvalidState, ErrForbidden, ErrInvalidOption). Use
errors.Is to classify them.
*/
package governance
