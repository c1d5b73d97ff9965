// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/testutil"
)

func TestRecoveryRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())
	addScrutators(t, f, m.ID, "Senior")

	// organizer disappears, Senior takes over
	f.clock.Advance(6 * time.Minute)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	cred, err := f.engine.Recovery.Issue(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cred.Password) < 12 {
		t.Errorf("Password too short: %q", cred.Password)
	}
	if cred.URL != RecoveryPathPrefix+cred.Code {
		t.Errorf("Unexpected recovery URL %q", cred.URL)
	}
	if want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC); !cred.ExpiresAt.Equal(want) {
		t.Errorf("Expected expiry at end of day %v, got %v", want, cred.ExpiresAt)
	}

	stored, _ := f.store.GetRecoverySession(ctx, cred.Code)
	if stored.PasswordHash == cred.Password || stored.PasswordHash == "" {
		t.Error("Password must be stored hashed")
	}

	f.clock.Advance(time.Minute)
	got, err := f.engine.Recovery.Redeem(ctx, "https://vote.example"+cred.URL, cred.Password)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if !got.OrganizerPresent || got.LeadershipHolder != nil || got.Leader() != "Organizer" {
		t.Errorf("Expected organizer restored, got present=%v leader=%s", got.OrganizerPresent, got.Leader())
	}
	if !got.OrganizerLastSeen.Equal(f.clock.Now()) {
		t.Errorf("Expected last seen refreshed to %v, got %v", f.clock.Now(), got.OrganizerLastSeen)
	}

	// one-time use
	if _, err := f.engine.Recovery.Redeem(ctx, cred.Code, cred.Password); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected reuse to be rejected with ErrNotFound, got %v", err)
	}
}

func TestRecoveryWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())

	f.clock.Advance(6 * time.Minute)
	if err := f.engine.Monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	cred, err := f.engine.Recovery.Issue(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.engine.Recovery.Redeem(ctx, cred.Code, cred.Password+"x"); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}

	got, _ := f.store.GetMeeting(ctx, m.ID)
	if got.OrganizerPresent {
		t.Error("Failed redemption must not change presence")
	}

	// a failed attempt does not burn the session
	if _, err := f.engine.Recovery.Redeem(ctx, cred.Code, cred.Password); err != nil {
		t.Errorf("Correct password after a failed attempt should succeed, got %v", err)
	}
}

func TestRecoveryRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := testutil.CreateTestMeeting(t, f.store, f.cfg, f.clock.Now())

	if _, err := f.engine.Recovery.Issue(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Issue for missing meeting: expected ErrNotFound, got %v", err)
	}
	if _, err := f.engine.Recovery.Redeem(ctx, "unknown-code", "whatever"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Unknown code: expected ErrNotFound, got %v", err)
	}

	expired, err := f.engine.Recovery.Issue(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(14 * time.Hour) // past midnight
	if _, err := f.engine.Recovery.Redeem(ctx, expired.Code, expired.Password); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expired session: expected ErrNotFound, got %v", err)
	}

	gone, err := f.engine.Recovery.Issue(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.store.DeleteMeeting(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Recovery.Redeem(ctx, gone.Code, gone.Password); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Deleted meeting: expected ErrNotFound, got %v", err)
	}
}

func TestParseRecoveryCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc-123", "abc-123"},
		{"  abc-123  ", "abc-123"},
		{"/recover/abc-123", "abc-123"},
		{"https://vote.example/recover/abc-123/", "abc-123"},
		{"https://vote.example/recover/abc-123?utm=x", "abc-123"},
	}

	for _, tt := range tests {
		if got := ParseRecoveryCode(tt.in); got != tt.want {
			t.Errorf("ParseRecoveryCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEndOfDay(t *testing.T) {
	at := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	if got := endOfDay(at); !got.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected end of day %v", got)
	}
}
