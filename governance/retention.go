// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/assembly-vote/notify"
)

// Deletion reasons
const (
	ReasonReportDownloaded = "report_downloaded"
	ReasonRetentionLimit   = "auto_deletion_time_limit"
)

// DeletionReport counts the records removed by a cascade.
type DeletionReport struct {
	Votes            int64
	Polls            int64
	Participants     int64
	Scrutators       int64
	RecoverySessions int64
	Meetings         int64
}

// Retention removes a meeting and everything that belongs to it.
type Retention struct {
	store    Store
	notifier notify.Notifier
	locks    *LockManager
	grace    time.Duration
}

func NewRetention(store Store, notifier notify.Notifier, locks *LockManager, grace time.Duration) *Retention {
	return &Retention{store: store, notifier: notifier, locks: locks, grace: grace}
}

// CascadeDelete notifies subscribers, waits the grace period, then deletes
// children before parents. A failing step is logged and the rest still run;
// all failures are returned joined.
func (r *Retention) CascadeDelete(ctx context.Context, meetingID, reason string) (DeletionReport, error) {
	r.notifier.Broadcast(meetingID, notify.Event{
		Type:    notify.EventMeetingDeleted,
		Payload: map[string]any{"meeting_id": meetingID, "reason": reason},
	})

	if r.grace > 0 {
		t := time.NewTimer(r.grace)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	// Once started, the cascade runs to the end even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	var rep DeletionReport
	var errs []error
	step := func(collection string, n *int64, fn func() (int64, error)) {
		count, err := fn()
		if err != nil {
			slog.Error("failed to delete meeting records", "meeting_id", meetingID, "collection", collection, "error", err)
			errs = append(errs, fmt.Errorf("delete %s: %w", collection, err))
			return
		}
		*n = count
		slog.Info("deleted meeting records", "meeting_id", meetingID, "collection", collection, "count", count)
	}

	pollIDs, err := r.store.ListPollIDs(ctx, meetingID)
	if err != nil {
		slog.Error("failed to list polls for deletion", "meeting_id", meetingID, "error", err)
		errs = append(errs, fmt.Errorf("list polls: %w", err))
	}

	step("votes", &rep.Votes, func() (int64, error) { return r.store.DeleteVotes(ctx, pollIDs) })
	step("polls", &rep.Polls, func() (int64, error) { return r.store.DeletePolls(ctx, meetingID) })
	step("participants", &rep.Participants, func() (int64, error) { return r.store.DeleteParticipants(ctx, meetingID) })
	step("scrutators", &rep.Scrutators, func() (int64, error) { return r.store.DeleteScrutators(ctx, meetingID) })
	step("recovery_sessions", &rep.RecoverySessions, func() (int64, error) { return r.store.DeleteRecoverySessions(ctx, meetingID) })
	step("meeting", &rep.Meetings, func() (int64, error) { return r.store.DeleteMeeting(ctx, meetingID) })

	r.locks.Release(pollIDs...)

	slog.Info("meeting deleted", "meeting_id", meetingID, "reason", reason)
	return rep, errors.Join(errs...)
}
