// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/notify"
)

// errUnchanged aborts a meeting update whose precondition no longer holds.
var errUnchanged = errors.New("meeting unchanged")

// Monitor detects organizer absence, hands leadership to a scrutator and
// enforces deletion deadlines.
type Monitor struct {
	store     Store
	notifier  notify.Notifier
	clock     Clock
	retention *Retention
	cfg       cliparse.GovernanceConfig
}

func NewMonitor(store Store, notifier notify.Notifier, clock Clock, retention *Retention, cfg cliparse.GovernanceConfig) *Monitor {
	return &Monitor{store: store, notifier: notifier, clock: clock, retention: retention, cfg: cfg}
}

// Run sweeps on every tick until ctx is cancelled.
func (mon *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(mon.cfg.MonitorInterval)
	defer ticker.Stop()

	slog.Info("presence monitor started", "interval", mon.cfg.MonitorInterval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("presence monitor stopped")
			return nil
		case <-ticker.C:
			if err := mon.Sweep(ctx); err != nil {
				slog.Error("presence sweep failed", "error", err)
			}
		}
	}
}

// Sweep checks every meeting once. A failing meeting is logged and skipped.
func (mon *Monitor) Sweep(ctx context.Context) error {
	ids, err := mon.store.ListMeetingIDs(ctx)
	if err != nil {
		return fmt.Errorf("list meetings: %w", err)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return nil
		}
		if err := mon.checkMeeting(ctx, id); err != nil {
			slog.Error("failed to check meeting presence", "meeting_id", id, "error", err)
		}
	}
	return nil
}

func (mon *Monitor) checkMeeting(ctx context.Context, meetingID string) error {
	now := mon.clock.Now().UTC()

	m, err := mon.store.GetMeeting(ctx, meetingID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if m.ReportDownloaded() {
		return nil
	}

	if m.OrganizerPresent && now.Sub(m.OrganizerLastSeen) > mon.cfg.AbsenceThreshold {
		m, err = mon.markAbsent(ctx, m, now)
		if err != nil {
			return err
		}
	}

	if m.DeletionDeadline != nil && !now.Before(*m.DeletionDeadline) {
		return mon.enforceDeadline(ctx, m, now)
	}
	return nil
}

func (mon *Monitor) markAbsent(ctx context.Context, m models.Meeting, now time.Time) (models.Meeting, error) {
	approved, err := mon.store.ListScrutators(ctx, m.ID, models.StatusApproved)
	if err != nil {
		return m, err
	}
	leader, hasLeader := earliestApproved(approved)

	updated, err := mon.store.UpdateMeeting(ctx, m.ID, func(cur *models.Meeting) error {
		// a heartbeat may have landed since the read
		if !cur.OrganizerPresent || now.Sub(cur.OrganizerLastSeen) <= mon.cfg.AbsenceThreshold {
			return errUnchanged
		}
		cur.OrganizerPresent = false
		if hasLeader {
			name := leader.Name
			cur.LeadershipHolder = &name
		} else {
			deadline := now.Add(mon.cfg.DeletionDelay)
			cur.DeletionDeadline = &deadline
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return m, nil
	}
	if err != nil {
		return m, err
	}

	if hasLeader {
		slog.Info("leadership transferred", "meeting_id", m.ID, "new_leader", leader.Name)
		mon.notifier.Broadcast(m.ID, notify.Event{
			Type:    notify.EventLeadershipTransferred,
			Payload: map[string]any{"new_leader": leader.Name, "reason": "organizer_absence"},
		})
	} else {
		slog.Info("organizer absent, deletion scheduled", "meeting_id", m.ID, "deadline", updated.DeletionDeadline)
		mon.notifier.Broadcast(m.ID, notify.Event{
			Type:    notify.EventOrganizerAbsent,
			Payload: map[string]any{"reason": "no_scrutators", "deletion_deadline": updated.DeletionDeadline},
		})
	}
	return updated, nil
}

func (mon *Monitor) enforceDeadline(ctx context.Context, m models.Meeting, now time.Time) error {
	if live := mon.notifier.Subscribers(m.ID); live > 0 {
		_, err := mon.store.UpdateMeeting(ctx, m.ID, func(cur *models.Meeting) error {
			if cur.DeletionDeadline == nil {
				return errUnchanged
			}
			next := now.Add(mon.cfg.DeletionExtension)
			cur.DeletionDeadline = &next
			return nil
		})
		if errors.Is(err, errUnchanged) {
			return nil
		}
		if err == nil {
			slog.Info("deletion postponed, meeting still watched", "meeting_id", m.ID, "connections", live)
		}
		return err
	}

	_, err := mon.retention.CascadeDelete(ctx, m.ID, ReasonRetentionLimit)
	return err
}

// earliestApproved picks the scrutator approved first.
func earliestApproved(approved []models.Scrutator) (models.Scrutator, bool) {
	if len(approved) == 0 {
		return models.Scrutator{}, false
	}
	sorted := append([]models.Scrutator(nil), approved...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].ApprovedAt, sorted[j].ApprovedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return sorted[0], true
}

// Heartbeat refreshes organizer presence for the organizer or the current
// leadership holder and cancels any pending deletion.
func (mon *Monitor) Heartbeat(ctx context.Context, meetingID, identity string) (models.Meeting, error) {
	now := mon.clock.Now().UTC()
	return mon.store.UpdateMeeting(ctx, meetingID, func(m *models.Meeting) error {
		if m.ReportDownloaded() {
			return fmt.Errorf("%w: meeting closed", models.ErrNotFound)
		}
		isLeader := m.LeadershipHolder != nil && identity == *m.LeadershipHolder
		if identity == "" || (identity != m.OrganizerName && !isLeader) {
			return fmt.Errorf("%w: %q may not send heartbeats", models.ErrUnauthorized, identity)
		}
		m.OrganizerPresent = true
		m.OrganizerLastSeen = now
		m.DeletionDeadline = nil
		return nil
	})
}
