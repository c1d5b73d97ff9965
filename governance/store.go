// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"time"

	"github.com/danielhkuo/assembly-vote/models"
)

// Store is the persistence port consumed by the engine. *db.Store satisfies it.
// UpdateMeeting must apply fn atomically against the stored meeting; fn must
// not call back into the Store.
type Store interface {
	GetMeeting(ctx context.Context, id string) (models.Meeting, error)
	ListMeetingIDs(ctx context.Context) ([]string, error)
	UpdateMeeting(ctx context.Context, id string, fn func(*models.Meeting) error) (models.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) (int64, error)

	GetScrutatorByName(ctx context.Context, meetingID, name string) (models.Scrutator, error)
	ListScrutators(ctx context.Context, meetingID, status string) ([]models.Scrutator, error)
	DeleteScrutators(ctx context.Context, meetingID string) (int64, error)

	ListParticipants(ctx context.Context, meetingID string) ([]models.Participant, error)
	DeleteParticipants(ctx context.Context, meetingID string) (int64, error)

	GetPoll(ctx context.Context, id string) (models.Poll, error)
	ListPolls(ctx context.Context, meetingID string) ([]models.Poll, error)
	ListPollIDs(ctx context.Context, meetingID string) ([]string, error)
	SetPollStatus(ctx context.Context, id, status string, timerStartedAt *time.Time) error
	DeletePolls(ctx context.Context, meetingID string) (int64, error)

	InsertVote(ctx context.Context, v models.Vote) error
	ListVoteOptionIDs(ctx context.Context, pollID string) ([]string, error)
	SetOptionCounts(ctx context.Context, pollID string, counts map[string]int) error
	DeleteVotes(ctx context.Context, pollIDs []string) (int64, error)

	InsertRecoverySession(ctx context.Context, rs models.RecoverySession) error
	GetRecoverySession(ctx context.Context, code string) (models.RecoverySession, error)
	ConsumeRecoverySession(ctx context.Context, code string, at time.Time) (bool, error)
	DeleteRecoverySessions(ctx context.Context, meetingID string) (int64, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}
