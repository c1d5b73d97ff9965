// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/assembly-vote/auth"
	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/db"
	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/notify"
)

// TestDBURL opens a private in-memory sqlite database
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh in-memory database with the full schema
func SetupTestDB(t *testing.T) *db.Store {
	t.Helper()

	conn, err := sql.Open("sqlite", TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is a separate database, so keep exactly one.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return db.NewStore(conn, db.DialectSQLite)
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	gc := cliparse.DefaultGovernanceConfig()
	gc.DeletionGrace = 0

	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  TestDBURL,
		DatabaseType: db.DialectSQLite,
		AdminKeySalt: "test-admin-salt",
		CORSOrigins:  []string{"*"},
		Governance:   gc,
	}
}

// Clock is a manually advanced clock
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at now, truncated to the second so stored
// timestamps compare equal after a database round trip
func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC().Truncate(time.Second)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// RecordingNotifier captures broadcasts and reports a settable number of
// live subscribers per meeting
type RecordingNotifier struct {
	mu     sync.Mutex
	events map[string][]notify.Event
	live   map[string]int
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{
		events: make(map[string][]notify.Event),
		live:   make(map[string]int),
	}
}

func (n *RecordingNotifier) Broadcast(meetingID string, ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[meetingID] = append(n.events[meetingID], ev)
}

func (n *RecordingNotifier) Subscribers(meetingID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.live[meetingID]
}

// SetSubscribers fixes the live connection count reported for a meeting
func (n *RecordingNotifier) SetSubscribers(meetingID string, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.live[meetingID] = count
}

// Events returns the events broadcast to a meeting in send order
func (n *RecordingNotifier) Events(meetingID string) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events[meetingID]...)
}

// Types returns the event types broadcast to a meeting in send order
func (n *RecordingNotifier) Types(meetingID string) []string {
	var types []string
	for _, ev := range n.Events(meetingID) {
		types = append(types, ev.Type)
	}
	return types
}

// Count returns how many events of the given type were broadcast to a meeting
func (n *RecordingNotifier) Count(meetingID, eventType string) int {
	count := 0
	for _, ev := range n.Events(meetingID) {
		if ev.Type == eventType {
			count++
		}
	}
	return count
}

// CreateTestMeeting creates a meeting whose organizer was last seen at now
// and returns it with its admin key
func CreateTestMeeting(t *testing.T, store *db.Store, cfg cliparse.Config, now time.Time) (models.Meeting, string) {
	t.Helper()

	code, err := auth.GenerateMeetingCode()
	if err != nil {
		t.Fatalf("Failed to generate meeting code: %v", err)
	}

	m := models.Meeting{
		ID:                uuid.NewString(),
		Title:             "Test Meeting",
		OrganizerName:     "Organizer",
		MeetingCode:       code,
		ReportState:       models.ReportIdle,
		ReportVotes:       map[string]bool{},
		OrganizerPresent:  true,
		OrganizerLastSeen: now.UTC(),
		CreatedAt:         now.UTC(),
	}
	if err := store.CreateMeeting(context.Background(), m); err != nil {
		t.Fatalf("Failed to create test meeting: %v", err)
	}

	return m, auth.GenerateAdminKey(m.ID, cfg.AdminKeySalt)
}

// AddTestScrutator adds a scrutator with the given status. Approved
// scrutators get approvedAt as their approval time.
func AddTestScrutator(t *testing.T, store *db.Store, meetingID, name, status string, approvedAt time.Time) models.Scrutator {
	t.Helper()

	s := models.Scrutator{
		ID:             uuid.NewString(),
		MeetingID:      meetingID,
		Name:           name,
		ApprovalStatus: status,
		AddedAt:        approvedAt.UTC(),
	}
	if status == models.StatusApproved {
		at := approvedAt.UTC()
		s.ApprovedAt = &at
	}
	if err := store.InsertScrutators(context.Background(), []models.Scrutator{s}); err != nil {
		t.Fatalf("Failed to create test scrutator: %v", err)
	}

	return s
}

// AddTestParticipant adds a participant with the given status
func AddTestParticipant(t *testing.T, store *db.Store, meetingID, name, status string) models.Participant {
	t.Helper()

	p := models.Participant{
		ID:             uuid.NewString(),
		MeetingID:      meetingID,
		Name:           name,
		ApprovalStatus: status,
		JoinedAt:       time.Now().UTC().Truncate(time.Second),
	}
	if err := store.InsertParticipant(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test participant: %v", err)
	}

	return p
}

// CreateTestPoll creates a poll with the given status and options
// status should be "draft", "active", or "closed"
func CreateTestPoll(t *testing.T, store *db.Store, meetingID, status string, options ...string) models.Poll {
	t.Helper()

	if len(options) == 0 {
		options = []string{"Yes", "No"}
	}

	p := models.Poll{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		Question:  "Test question?",
		Status:    status,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	for i, text := range options {
		p.Options = append(p.Options, models.Option{
			ID:       uuid.NewString(),
			PollID:   p.ID,
			Text:     text,
			Position: i,
		})
	}
	if err := store.InsertPoll(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return p
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
