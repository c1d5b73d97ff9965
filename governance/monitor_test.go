// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/assembly-vote/db"
	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/notify"
	"github.com/danielhkuo/assembly-vote/testutil"
)

func TestHeartbeatIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())

	// organizer goes silent, deadline armed
	f.clock.Advance(6 * time.Minute)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	absent, _ := f.store.GetMeeting(ctx, m.ID)
	if absent.OrganizerPresent || absent.DeletionDeadline == nil {
		t.Fatalf("Expected absence with a deadline, got present=%v deadline=%v", absent.OrganizerPresent, absent.DeletionDeadline)
	}

	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Second)
		got, err := f.engine.Monitor.Heartbeat(ctx, m.ID, "Organizer")
		if err != nil {
			t.Fatalf("Heartbeat %d failed: %v", i, err)
		}
		if !got.OrganizerPresent || got.DeletionDeadline != nil {
			t.Errorf("Heartbeat %d: expected present with no deadline, got %+v", i, got)
		}
		if !got.OrganizerLastSeen.Equal(f.clock.Now()) {
			t.Errorf("Heartbeat %d: last seen %v, want %v", i, got.OrganizerLastSeen, f.clock.Now())
		}
	}
}

func TestHeartbeatIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())
	addScrutators(t, f, m.ID, "Senior")

	if _, err := f.engine.Monitor.Heartbeat(ctx, m.ID, "Senior"); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("Scrutator without leadership should be refused, got %v", err)
	}
	if _, err := f.engine.Monitor.Heartbeat(ctx, m.ID, ""); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("Empty identity should be refused, got %v", err)
	}
	if _, err := f.engine.Monitor.Heartbeat(ctx, "nope", "Organizer"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing meeting, got %v", err)
	}

	f.clock.Advance(6 * time.Minute)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := f.engine.Monitor.Heartbeat(ctx, m.ID, "Senior"); err != nil {
		t.Errorf("Leadership holder heartbeat should be accepted, got %v", err)
	}
}

func TestSweepTransfersLeadershipToEarliestApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())

	base := f.clock.Now()
	testutil.AddTestScrutator(t, f.store, m.ID, "Late", models.StatusApproved, base.Add(2*time.Minute))
	testutil.AddTestScrutator(t, f.store, m.ID, "Early", models.StatusApproved, base.Add(time.Minute))
	testutil.AddTestScrutator(t, f.store, m.ID, "Pending", models.StatusPending, base)

	// not yet past the threshold
	f.clock.Advance(5 * time.Minute)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := f.store.GetMeeting(ctx, m.ID); !got.OrganizerPresent {
		t.Fatal("Organizer marked absent at exactly the threshold")
	}

	f.clock.Advance(time.Second)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	got, _ := f.store.GetMeeting(ctx, m.ID)
	if got.OrganizerPresent {
		t.Error("Expected organizer absent")
	}
	if got.Leader() != "Early" {
		t.Errorf("Expected leadership with Early, got %s", got.Leader())
	}
	if got.DeletionDeadline != nil {
		t.Error("No deadline should be armed when a scrutator can lead")
	}

	events := f.notifier.Events(m.ID)
	if len(events) != 1 || events[0].Type != notify.EventLeadershipTransferred {
		t.Fatalf("Expected one leadership_transferred event, got %v", f.notifier.Types(m.ID))
	}
	payload := events[0].Payload.(map[string]any)
	if payload["new_leader"] != "Early" {
		t.Errorf("Expected new_leader Early, got %v", payload["new_leader"])
	}

	// further sweeps do not repeat the transfer
	f.clock.Advance(time.Minute)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(f.notifier.Events(m.ID)); n != 1 {
		t.Errorf("Expected no new events, got %d total", n)
	}
}

func TestSweepDeadlineExtendsWhileWatched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())
	testutil.CreateTestPoll(t, f.store, m.ID, models.PollActive)

	f.clock.Advance(6 * time.Minute)
	detected := f.clock.Now()
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	got, _ := f.store.GetMeeting(ctx, m.ID)
	if got.DeletionDeadline == nil || !got.DeletionDeadline.Equal(detected.Add(12*time.Hour)) {
		t.Fatalf("Expected deadline at detection + 12h, got %v", got.DeletionDeadline)
	}
	if n := f.notifier.Count(m.ID, notify.EventOrganizerAbsent); n != 1 {
		t.Errorf("Expected 1 organizer_absent event, got %d", n)
	}

	// someone is still connected at the deadline: push out by one hour, twice
	f.notifier.SetSubscribers(m.ID, 2)
	for i := 0; i < 2; i++ {
		f.clock.Advance(12 * time.Hour)
		now := f.clock.Now()
		if err := f.engine.Monitor.Sweep(ctx); err != nil {
			t.Fatal(err)
		}
		got, err := f.store.GetMeeting(ctx, m.ID)
		if err != nil {
			t.Fatalf("Meeting deleted while watched: %v", err)
		}
		if got.DeletionDeadline == nil || !got.DeletionDeadline.Equal(now.Add(time.Hour)) {
			t.Errorf("Extension %d: expected deadline %v, got %v", i, now.Add(time.Hour), got.DeletionDeadline)
		}
	}

	// everyone left
	f.notifier.SetSubscribers(m.ID, 0)
	f.clock.Advance(time.Hour)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := f.store.GetMeeting(ctx, m.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected meeting deleted, got %v", err)
	}
	if ids, _ := f.store.ListPollIDs(ctx, m.ID); len(ids) != 0 {
		t.Errorf("Expected polls deleted, got %v", ids)
	}
	events := f.notifier.Events(m.ID)
	last := events[len(events)-1]
	if last.Type != notify.EventMeetingDeleted || last.Payload.(map[string]any)["reason"] != ReasonRetentionLimit {
		t.Errorf("Expected final meeting_deleted event, got %+v", last)
	}
}

func TestSweepSkipsDeadlineBeforeDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())

	f.clock.Advance(6 * time.Minute)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(11 * time.Hour)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := f.store.GetMeeting(ctx, m.ID); err != nil {
		t.Errorf("Meeting deleted before its deadline: %v", err)
	}
}

// flakyStore fails scrutator listing for one meeting.
type flakyStore struct {
	*db.Store
	failFor string
}

func (s flakyStore) ListScrutators(ctx context.Context, meetingID, status string) ([]models.Scrutator, error) {
	if meetingID == s.failFor {
		return nil, errors.New("storage unavailable")
	}
	return s.Store.ListScrutators(ctx, meetingID, status)
}

func TestSweepContinuesPastFailingMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bad, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())
	good, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())

	engine := NewEngine(flakyStore{Store: f.store, failFor: bad.ID}, f.notifier, f.cfg.Governance, f.clock)

	f.clock.Advance(6 * time.Minute)
	if err := engine.Monitor.Sweep(ctx); err != nil {
		t.Fatalf("Sweep should not fail on a per-meeting error: %v", err)
	}

	if got, _ := f.store.GetMeeting(ctx, bad.ID); !got.OrganizerPresent {
		t.Error("Failing meeting should be left untouched")
	}
	if got, _ := f.store.GetMeeting(ctx, good.ID); got.OrganizerPresent || got.DeletionDeadline == nil {
		t.Error("Healthy meeting should still be processed")
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.cfg.Governance.MonitorInterval = 10 * time.Millisecond
	engine := NewEngine(f.store, f.notifier, f.cfg.Governance, f.clock)
	m, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())
	f.clock.Advance(6 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && f.notifier.Count(m.ID, notify.EventOrganizerAbsent) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop after cancel")
	}
	if f.notifier.Count(m.ID, notify.EventOrganizerAbsent) != 1 {
		t.Error("Expected the running monitor to detect absence")
	}
}
