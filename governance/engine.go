// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/notify"
	"github.com/danielhkuo/assembly-vote/report"
)

// Engine wires the governance components over one store and notifier.
type Engine struct {
	Tally     *Tally
	Quorum    *Quorum
	Monitor   *Monitor
	Retention *Retention
	Recovery  *Recovery
	Locks     *LockManager

	store Store
	clock Clock
}

func NewEngine(store Store, notifier notify.Notifier, cfg cliparse.GovernanceConfig, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	locks := NewLockManager()
	retention := NewRetention(store, notifier, locks, cfg.DeletionGrace)

	return &Engine{
		Tally:     NewTally(store, notifier, clock, locks),
		Quorum:    NewQuorum(store, notifier),
		Monitor:   NewMonitor(store, notifier, clock, retention, cfg),
		Retention: retention,
		Recovery:  NewRecovery(store, clock, cfg.RecoveryPasswordLength),
		Locks:     locks,
		store:     store,
		clock:     clock,
	}
}

// Run drives the presence monitor until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	return e.Monitor.Run(ctx)
}

// Now reads the engine's clock.
func (e *Engine) Now() time.Time {
	return e.clock.Now().UTC()
}

// ClosureStatus reports whether the organizer may close the meeting.
func (e *Engine) ClosureStatus(ctx context.Context, meetingID string) (models.ClosureStatusResponse, error) {
	m, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return models.ClosureStatusResponse{}, err
	}
	if m.ReportDownloaded() {
		return models.ClosureStatusResponse{CanClose: true, Reason: "report downloaded"}, nil
	}
	return models.ClosureStatusResponse{CanClose: false, Reason: "the final report must be downloaded before closing"}, nil
}

// GenerateReport renders the final report, marks it downloaded exactly once
// and deletes the meeting.
func (e *Engine) GenerateReport(ctx context.Context, meetingID string) (report.Artifact, error) {
	m, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return report.Artifact{}, err
	}
	if m.ReportDownloaded() {
		return report.Artifact{}, fmt.Errorf("%w: report already downloaded", models.ErrNotFound)
	}

	approved, err := e.store.ListScrutators(ctx, meetingID, models.StatusApproved)
	if err != nil {
		return report.Artifact{}, err
	}
	if err := authorize(m, approved); err != nil {
		return report.Artifact{}, err
	}

	in, err := e.reportInput(ctx, m, true)
	if err != nil {
		return report.Artifact{}, err
	}
	artifact := report.Render(in)

	_, err = e.store.UpdateMeeting(ctx, meetingID, func(cur *models.Meeting) error {
		return markDownloaded(cur, approved)
	})
	if err != nil {
		return report.Artifact{}, err
	}
	slog.Info("final report generated", "meeting_id", meetingID, "filename", artifact.Filename)

	if _, err := e.Retention.CascadeDelete(ctx, meetingID, ReasonReportDownloaded); err != nil {
		slog.Error("failed to fully delete meeting after report", "meeting_id", meetingID, "error", err)
	}
	return artifact, nil
}

// PartialReport renders a report while the organizer is absent. It never deletes data.
func (e *Engine) PartialReport(ctx context.Context, meetingID string) (report.Artifact, error) {
	m, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return report.Artifact{}, err
	}
	if m.ReportDownloaded() {
		return report.Artifact{}, fmt.Errorf("%w: meeting closed", models.ErrNotFound)
	}
	if m.OrganizerPresent {
		return report.Artifact{}, fmt.Errorf("%w: partial report is only available while the organizer is absent", models.ErrInvalidState)
	}

	in, err := e.reportInput(ctx, m, false)
	if err != nil {
		return report.Artifact{}, err
	}
	in.Partial = true
	return report.Render(in), nil
}

// reportInput gathers the records shown in a report. With recount set, every
// poll's counts are rebuilt from its votes first.
func (e *Engine) reportInput(ctx context.Context, m models.Meeting, recount bool) (report.Input, error) {
	if recount {
		ids, err := e.store.ListPollIDs(ctx, m.ID)
		if err != nil {
			return report.Input{}, err
		}
		for _, id := range ids {
			if _, err := e.Tally.Recount(ctx, id); err != nil {
				return report.Input{}, fmt.Errorf("recount poll %s: %w", id, err)
			}
		}
	}

	scrutators, err := e.store.ListScrutators(ctx, m.ID, "")
	if err != nil {
		return report.Input{}, err
	}
	participants, err := e.store.ListParticipants(ctx, m.ID)
	if err != nil {
		return report.Input{}, err
	}
	polls, err := e.store.ListPolls(ctx, m.ID)
	if err != nil {
		return report.Input{}, err
	}

	return report.Input{
		Meeting:      m,
		Scrutators:   scrutators,
		Participants: participants,
		Polls:        polls,
		GeneratedAt:  e.clock.Now().UTC(),
	}, nil
}
