// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/notify"
	"github.com/danielhkuo/assembly-vote/testutil"
)

func TestSubmitVote(t *testing.T) {
	env := newTestEnv(t)
	m, _ := env.meeting(t)
	active := testutil.CreateTestPoll(t, env.store, m.ID, models.PollActive)
	draft := testutil.CreateTestPoll(t, env.store, m.ID, models.PollDraft)
	closed := testutil.CreateTestPoll(t, env.store, m.ID, models.PollClosed)

	tests := []struct {
		name           string
		request        interface{}
		expectedStatus int
	}{
		{"valid vote", models.SubmitVoteRequest{PollID: active.ID, OptionID: active.Options[0].ID}, http.StatusCreated},
		{"draft poll", models.SubmitVoteRequest{PollID: draft.ID, OptionID: draft.Options[0].ID}, http.StatusConflict},
		{"closed poll", models.SubmitVoteRequest{PollID: closed.ID, OptionID: closed.Options[0].ID}, http.StatusConflict},
		{"option from another poll", models.SubmitVoteRequest{PollID: active.ID, OptionID: draft.Options[0].ID}, http.StatusBadRequest},
		{"missing poll", models.SubmitVoteRequest{PollID: "nope", OptionID: active.Options[0].ID}, http.StatusNotFound},
		{"missing option id", models.SubmitVoteRequest{PollID: active.ID}, http.StatusBadRequest},
		{"invalid JSON", "invalid json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(env.voting.SubmitVote, "POST", "/votes", nil, tt.request, nil)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	got, _ := env.store.GetPoll(t.Context(), active.ID)
	if got.TotalVotes() != 1 {
		t.Errorf("Expected exactly 1 accepted vote, got %d", got.TotalVotes())
	}
	if n := env.notifier.Count(m.ID, notify.EventVoteSubmitted); n != 1 {
		t.Errorf("Expected 1 vote_submitted event, got %d", n)
	}
}

func TestSubmitVoteMasksCounts(t *testing.T) {
	env := newTestEnv(t)
	m, _ := env.meeting(t)
	poll := testutil.CreateTestPoll(t, env.store, m.ID, models.PollActive)

	w := call(env.voting.SubmitVote, "POST", "/votes", nil,
		models.SubmitVoteRequest{PollID: poll.ID, OptionID: poll.Options[1].ID}, nil)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.ParticipantPoll
	testutil.AssertJSON(t, w, &resp)
	if resp.VoteTotal != 1 {
		t.Errorf("Expected total 1, got %d", resp.VoteTotal)
	}
	for _, o := range resp.Options {
		if o.Votes != 0 {
			t.Errorf("Per-option count leaked while poll is active: %+v", o)
		}
	}
}

// TestConcurrentVoteSubmissions verifies that simultaneous votes on one poll
// are all counted
func TestConcurrentVoteSubmissions(t *testing.T) {
	env := newTestEnv(t)
	m, _ := env.meeting(t)
	poll := testutil.CreateTestPoll(t, env.store, m.ID, models.PollActive, "A", "B", "C")

	numVoters := 60
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(voterIdx int) {
			defer wg.Done()

			opt := poll.Options[voterIdx%len(poll.Options)]
			w := call(env.voting.SubmitVote, "POST", "/votes", nil,
				models.SubmitVoteRequest{PollID: poll.ID, OptionID: opt.ID}, nil)
			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful submissions, got %d", numVoters, successCount.Load())
	}

	got, err := env.store.GetPoll(t.Context(), poll.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range got.Options {
		if o.Votes != numVoters/3 {
			t.Errorf("Option %s: expected %d votes, got %d", o.Text, numVoters/3, o.Votes)
		}
	}
}
