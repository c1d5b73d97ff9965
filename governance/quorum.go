// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/notify"
)

// Decision is the outcome of a scrutator vote.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Majority is floor(n/2)+1.
func Majority(n int) int {
	return n/2 + 1
}

// CycleResult describes a report request.
type CycleResult struct {
	DirectGeneration bool
	ScrutatorCount   int
	MajorityNeeded   int
}

// VoteProgress is the state of a cycle after one scrutator vote.
type VoteProgress struct {
	Decision        Decision
	VotesCast       int
	TotalScrutators int
	YesVotes        int
	NoVotes         int
	MajorityNeeded  int
}

// Transitions of the report state. Each mutates m in place.

func openCycle(m *models.Meeting) error {
	if m.ReportDownloaded() {
		return fmt.Errorf("%w: report already downloaded", models.ErrNotFound)
	}
	m.ReportState = models.ReportPending
	m.ReportVotes = map[string]bool{}
	return nil
}

func recordVote(m *models.Meeting, name string, approve bool, approved []models.Scrutator) (VoteProgress, error) {
	if !m.ReportPending() {
		return VoteProgress{}, fmt.Errorf("%w: no report request pending", models.ErrInvalidState)
	}
	if m.ReportVotes == nil {
		m.ReportVotes = map[string]bool{}
	}
	m.ReportVotes[name] = approve

	yes, no := countVotes(m.ReportVotes, approved)
	p := VoteProgress{
		Decision:        DecisionPending,
		VotesCast:       yes + no,
		TotalScrutators: len(approved),
		YesVotes:        yes,
		NoVotes:         no,
		MajorityNeeded:  Majority(len(approved)),
	}
	switch {
	case yes >= p.MajorityNeeded:
		m.ReportState = models.ReportApproved
		p.Decision = DecisionApproved
	case no >= p.MajorityNeeded:
		m.ReportState = models.ReportRejected
		p.Decision = DecisionRejected
	}
	return p, nil
}

func markDownloaded(m *models.Meeting, approved []models.Scrutator) error {
	if m.ReportDownloaded() {
		return fmt.Errorf("%w: report already downloaded", models.ErrNotFound)
	}
	if err := authorize(*m, approved); err != nil {
		return err
	}
	m.ReportState = models.ReportDownloaded
	return nil
}

// countVotes only counts scrutators that are currently approved.
func countVotes(votes map[string]bool, approved []models.Scrutator) (yes, no int) {
	for _, s := range approved {
		v, ok := votes[s.Name]
		if !ok {
			continue
		}
		if v {
			yes++
		} else {
			no++
		}
	}
	return yes, no
}

func authorize(m models.Meeting, approved []models.Scrutator) error {
	if len(approved) == 0 {
		return nil
	}
	if !m.ReportApproved() {
		return fmt.Errorf("%w: scrutator approval required", models.ErrForbidden)
	}
	yes, _ := countVotes(m.ReportVotes, approved)
	if yes < Majority(len(approved)) {
		return fmt.Errorf("%w: approval no longer holds a majority of %d scrutators", models.ErrForbidden, len(approved))
	}
	return nil
}

// Quorum runs the scrutator approval cycle for report generation.
type Quorum struct {
	store    Store
	notifier notify.Notifier
}

func NewQuorum(store Store, notifier notify.Notifier) *Quorum {
	return &Quorum{store: store, notifier: notifier}
}

// RequestCycle opens an approval cycle, or allows direct generation when the
// meeting has no approved scrutators.
func (q *Quorum) RequestCycle(ctx context.Context, meetingID, requestedBy string) (CycleResult, error) {
	m, err := q.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return CycleResult{}, err
	}
	if m.ReportDownloaded() {
		return CycleResult{}, fmt.Errorf("%w: report already downloaded", models.ErrNotFound)
	}

	approved, err := q.store.ListScrutators(ctx, meetingID, models.StatusApproved)
	if err != nil {
		return CycleResult{}, err
	}
	if len(approved) == 0 {
		return CycleResult{DirectGeneration: true}, nil
	}

	if _, err := q.store.UpdateMeeting(ctx, meetingID, openCycle); err != nil {
		return CycleResult{}, err
	}

	res := CycleResult{ScrutatorCount: len(approved), MajorityNeeded: Majority(len(approved))}
	q.notifier.Broadcast(meetingID, notify.Event{
		Type: notify.EventReportRequested,
		Payload: map[string]any{
			"requested_by":    requestedBy,
			"scrutator_count": res.ScrutatorCount,
			"majority_needed": res.MajorityNeeded,
		},
	})
	return res, nil
}

// CastVote records or replaces a scrutator's vote in the pending cycle.
func (q *Quorum) CastVote(ctx context.Context, meetingID, name string, approve bool) (VoteProgress, error) {
	s, err := q.store.GetScrutatorByName(ctx, meetingID, name)
	if errors.Is(err, models.ErrNotFound) || (err == nil && s.ApprovalStatus != models.StatusApproved) {
		return VoteProgress{}, fmt.Errorf("%w: %s is not an approved scrutator", models.ErrUnauthorized, name)
	}
	if err != nil {
		return VoteProgress{}, err
	}

	approved, err := q.store.ListScrutators(ctx, meetingID, models.StatusApproved)
	if err != nil {
		return VoteProgress{}, err
	}

	var progress VoteProgress
	_, err = q.store.UpdateMeeting(ctx, meetingID, func(m *models.Meeting) error {
		var err error
		progress, err = recordVote(m, name, approve, approved)
		return err
	})
	if err != nil {
		return VoteProgress{}, err
	}

	q.notifier.Broadcast(meetingID, notify.Event{
		Type: notify.EventScrutatorVoteSubmitted,
		Payload: map[string]any{
			"scrutator_name":   name,
			"vote":             approve,
			"votes_cast":       progress.VotesCast,
			"total_scrutators": progress.TotalScrutators,
			"yes_votes":        progress.YesVotes,
			"no_votes":         progress.NoVotes,
			"majority_needed":  progress.MajorityNeeded,
		},
	})

	switch progress.Decision {
	case DecisionApproved:
		q.notifier.Broadcast(meetingID, notify.Event{
			Type:    notify.EventReportApproved,
			Payload: map[string]any{"yes_votes": progress.YesVotes, "majority_needed": progress.MajorityNeeded},
		})
	case DecisionRejected:
		q.notifier.Broadcast(meetingID, notify.Event{
			Type:    notify.EventReportRejected,
			Payload: map[string]any{"no_votes": progress.NoVotes, "majority_needed": progress.MajorityNeeded},
		})
	}

	return progress, nil
}

// Authorize reports whether the final report may be generated now, rechecking
// a stored approval against the current scrutator set.
func (q *Quorum) Authorize(ctx context.Context, meetingID string) error {
	m, err := q.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return err
	}
	approved, err := q.store.ListScrutators(ctx, meetingID, models.StatusApproved)
	if err != nil {
		return err
	}
	return authorize(m, approved)
}
