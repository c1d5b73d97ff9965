// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/db"
	"github.com/danielhkuo/assembly-vote/governance"
	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/testutil"
)

// testEnv holds every handler over one in-memory store
type testEnv struct {
	store    *db.Store
	engine   *governance.Engine
	notifier *testutil.RecordingNotifier
	clock    *testutil.Clock
	cfg      cliparse.Config

	meetings     *MeetingHandler
	scrutators   *ScrutatorHandler
	participants *ParticipantHandler
	polls        *PollHandler
	voting       *VotingHandler
	reports      *ReportHandler
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, testutil.GetTestConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg cliparse.Config) *testEnv {
	t.Helper()

	store := testutil.SetupTestDB(t)
	notifier := testutil.NewRecordingNotifier()
	clock := testutil.NewClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	engine := governance.NewEngine(store, notifier, cfg.Governance, clock)

	return &testEnv{
		store:    store,
		engine:   engine,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,

		meetings:     NewMeetingHandler(store, engine, cfg),
		scrutators:   NewScrutatorHandler(store, engine, notifier, cfg),
		participants: NewParticipantHandler(store, engine, notifier, cfg),
		polls:        NewPollHandler(store, engine, notifier, cfg),
		voting:       NewVotingHandler(engine),
		reports:      NewReportHandler(store, engine, cfg),
	}
}

// meeting creates a meeting whose organizer was last seen now
func (e *testEnv) meeting(t *testing.T) (models.Meeting, string) {
	t.Helper()
	return testutil.CreateTestMeeting(t, e.store, e.cfg, e.clock.Now())
}

// organizerLeaves lets the organizer go silent long enough for the next
// sweep to mark them absent
func (e *testEnv) organizerLeaves(t *testing.T) {
	t.Helper()
	e.clock.Advance(e.cfg.Governance.AbsenceThreshold + time.Second)
	if err := e.engine.Monitor.Sweep(t.Context()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
}

// call runs handler against a request with the given path value
func call(handler http.HandlerFunc, method, path string, pathValues map[string]string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest(method, path, body, headers)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func id(v string) map[string]string {
	return map[string]string{"id": v}
}

func adminKey(key string) map[string]string {
	return map[string]string{"X-Admin-Key": key}
}
