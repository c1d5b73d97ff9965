// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package governance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/notify"
)

// LockManager hands out one mutex per poll, created on first use.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the poll's mutex and returns its unlock function.
func (l *LockManager) Lock(pollID string) func() {
	l.mu.Lock()
	m, ok := l.locks[pollID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[pollID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Release forgets the mutexes of deleted polls.
func (l *LockManager) Release(pollIDs ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range pollIDs {
		delete(l.locks, id)
	}
}

// Len returns the number of tracked polls.
func (l *LockManager) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Tally records anonymous votes. Writes to one poll are serialized;
// different polls proceed independently.
type Tally struct {
	store    Store
	notifier notify.Notifier
	clock    Clock
	locks    *LockManager
}

func NewTally(store Store, notifier notify.Notifier, clock Clock, locks *LockManager) *Tally {
	return &Tally{store: store, notifier: notifier, clock: clock, locks: locks}
}

// SubmitVote appends a vote and recounts the poll from its stored votes.
func (t *Tally) SubmitVote(ctx context.Context, pollID, optionID string) (models.Poll, error) {
	unlock := t.locks.Lock(pollID)
	poll, err := t.submitLocked(ctx, pollID, optionID)
	unlock()
	if err != nil {
		return models.Poll{}, err
	}

	t.notifier.Broadcast(poll.MeetingID, notify.Event{
		Type:    notify.EventVoteSubmitted,
		Payload: map[string]any{"poll": poll},
	})
	return poll, nil
}

func (t *Tally) submitLocked(ctx context.Context, pollID, optionID string) (models.Poll, error) {
	poll, err := t.store.GetPoll(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	if poll.Status != models.PollActive {
		return models.Poll{}, fmt.Errorf("%w: poll is %s", models.ErrInvalidState, poll.Status)
	}
	if !poll.HasOption(optionID) {
		return models.Poll{}, fmt.Errorf("%w: %s is not an option of this poll", models.ErrInvalidOption, optionID)
	}

	err = t.store.InsertVote(ctx, models.Vote{
		ID:       uuid.NewString(),
		PollID:   pollID,
		OptionID: optionID,
		VotedAt:  t.clock.Now().UTC(),
	})
	if err != nil {
		return models.Poll{}, err
	}

	return t.recountLocked(ctx, pollID)
}

// SetStatus moves a poll from one lifecycle state to the next. It holds the
// poll's lock so no vote is accepted after a close.
func (t *Tally) SetStatus(ctx context.Context, pollID, from, to string) (models.Poll, error) {
	unlock := t.locks.Lock(pollID)
	defer unlock()

	poll, err := t.store.GetPoll(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	if poll.Status != from {
		return models.Poll{}, fmt.Errorf("%w: poll is %s, not %s", models.ErrInvalidState, poll.Status, from)
	}
	// a timed poll's countdown starts when it opens
	var startedAt *time.Time
	if to == models.PollActive && poll.TimerDuration != nil {
		now := t.clock.Now().UTC()
		startedAt = &now
	}

	if err := t.store.SetPollStatus(ctx, pollID, to, startedAt); err != nil {
		return models.Poll{}, err
	}
	poll.Status = to
	if startedAt != nil {
		poll.TimerStartedAt = startedAt
	}
	return poll, nil
}

// Recount rebuilds a poll's option counts from its votes.
func (t *Tally) Recount(ctx context.Context, pollID string) (models.Poll, error) {
	unlock := t.locks.Lock(pollID)
	defer unlock()
	return t.recountLocked(ctx, pollID)
}

func (t *Tally) recountLocked(ctx context.Context, pollID string) (models.Poll, error) {
	optionIDs, err := t.store.ListVoteOptionIDs(ctx, pollID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("list votes: %w", err)
	}

	counts := make(map[string]int)
	for _, id := range optionIDs {
		counts[id]++
	}
	if err := t.store.SetOptionCounts(ctx, pollID, counts); err != nil {
		return models.Poll{}, err
	}

	return t.store.GetPoll(ctx, pollID)
}
