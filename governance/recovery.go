// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/assembly-vote/auth"
	"github.com/danielhkuo/assembly-vote/models"
)

// RecoveryPathPrefix starts the shareable recovery URL path.
const RecoveryPathPrefix = "/recover/"

// Credential is a freshly issued recovery code and its plaintext password.
// The password is never stored.
type Credential struct {
	Code      string
	URL       string
	Password  string
	ExpiresAt time.Time
}

// Recovery issues and redeems one-time organizer recovery credentials.
type Recovery struct {
	store          Store
	clock          Clock
	passwordLength int
}

func NewRecovery(store Store, clock Clock, passwordLength int) *Recovery {
	return &Recovery{store: store, clock: clock, passwordLength: passwordLength}
}

// Issue creates a session that expires at the end of the current UTC day.
func (r *Recovery) Issue(ctx context.Context, meetingID string) (Credential, error) {
	m, err := r.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return Credential{}, err
	}
	if m.ReportDownloaded() {
		return Credential{}, fmt.Errorf("%w: meeting closed", models.ErrNotFound)
	}

	password, err := auth.GeneratePassword(r.passwordLength)
	if err != nil {
		return Credential{}, err
	}
	hash, err := auth.HashSecret(password)
	if err != nil {
		return Credential{}, err
	}

	now := r.clock.Now().UTC()
	session := models.RecoverySession{
		Code:         uuid.NewString(),
		MeetingID:    meetingID,
		PasswordHash: hash,
		CreatedAt:    now,
		ExpiresAt:    endOfDay(now),
	}
	if err := r.store.InsertRecoverySession(ctx, session); err != nil {
		return Credential{}, err
	}

	_, err = r.store.UpdateMeeting(ctx, meetingID, func(m *models.Meeting) error {
		m.RecoverySecretRef = &session.Code
		return nil
	})
	if err != nil {
		return Credential{}, err
	}

	return Credential{
		Code:      session.Code,
		URL:       RecoveryPathPrefix + session.Code,
		Password:  password,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Redeem restores organizer control. The code may be bare or the recovery URL.
func (r *Recovery) Redeem(ctx context.Context, code, password string) (models.Meeting, error) {
	code = ParseRecoveryCode(code)
	now := r.clock.Now().UTC()

	session, err := r.store.GetRecoverySession(ctx, code)
	if err != nil {
		return models.Meeting{}, err
	}
	if !now.Before(session.ExpiresAt) {
		return models.Meeting{}, fmt.Errorf("%w: recovery session expired", models.ErrNotFound)
	}
	if session.ConsumedAt != nil {
		return models.Meeting{}, fmt.Errorf("%w: recovery session already used", models.ErrNotFound)
	}

	if err := auth.CheckSecret(session.PasswordHash, password); err != nil {
		return models.Meeting{}, fmt.Errorf("%w: wrong recovery password", models.ErrUnauthorized)
	}

	m, err := r.store.GetMeeting(ctx, session.MeetingID)
	if err != nil {
		return models.Meeting{}, err
	}
	if m.ReportDownloaded() {
		return models.Meeting{}, fmt.Errorf("%w: meeting closed", models.ErrNotFound)
	}

	won, err := r.store.ConsumeRecoverySession(ctx, code, now)
	if err != nil {
		return models.Meeting{}, err
	}
	if !won {
		return models.Meeting{}, fmt.Errorf("%w: recovery session already used", models.ErrNotFound)
	}

	m, err = r.store.UpdateMeeting(ctx, session.MeetingID, func(m *models.Meeting) error {
		m.OrganizerPresent = true
		m.OrganizerLastSeen = now
		m.LeadershipHolder = nil
		m.DeletionDeadline = nil
		m.RecoverySecretRef = nil
		return nil
	})
	if errors.Is(err, models.ErrNotFound) {
		return models.Meeting{}, fmt.Errorf("%w: meeting deleted", models.ErrNotFound)
	}
	return m, err
}

// ParseRecoveryCode extracts the code from a bare code or a recovery URL.
func ParseRecoveryCode(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, RecoveryPathPrefix); i >= 0 {
		s = s[i+len(RecoveryPathPrefix):]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(s, "/")
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
