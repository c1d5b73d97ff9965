// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/db"
	"github.com/danielhkuo/assembly-vote/governance"
	"github.com/danielhkuo/assembly-vote/middleware"
	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/notify"
	"github.com/danielhkuo/assembly-vote/report"
)

// Option count bounds for a poll
const (
	minOptions = 2
	maxOptions = 20

	// one day
	maxTimerSeconds = 86400
)

type PollHandler struct {
	store    *db.Store
	engine   *governance.Engine
	notifier notify.Notifier
	cfg      cliparse.Config
}

func NewPollHandler(store *db.Store, engine *governance.Engine, notifier notify.Notifier, cfg cliparse.Config) *PollHandler {
	return &PollHandler{store: store, engine: engine, notifier: notifier, cfg: cfg}
}

// CreatePoll handles POST /meetings/{id}/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "question is required")
		return
	}
	if utf8.RuneCountInString(question) > maxTextLength {
		middleware.ErrorResponse(w, http.StatusBadRequest, "question is too long")
		return
	}
	options, msg := cleanOptions(req.Options)
	if msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}
	if d := req.TimerDuration; d != nil && (*d <= 0 || *d > maxTimerSeconds) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "timer_duration must be between 1 and 86400 seconds")
		return
	}

	poll := models.Poll{
		ID:            uuid.NewString(),
		MeetingID:     m.ID,
		Question:      question,
		Status:        models.PollDraft,
		CreatedAt:     h.engine.Now(),
		TimerDuration: req.TimerDuration,
	}
	for i, text := range options {
		poll.Options = append(poll.Options, models.Option{
			ID:       uuid.NewString(),
			PollID:   poll.ID,
			Text:     text,
			Position: i,
		})
	}
	if err := h.store.InsertPoll(r.Context(), poll); err != nil {
		writeError(w, err, "Failed to create poll")
		return
	}

	slog.Info("poll created", "meeting_id", m.ID, "poll_id", poll.ID, "options", len(options))

	middleware.JSONResponse(w, http.StatusCreated, poll)
}

// ListPolls handles GET /meetings/{id}/polls
// The organizer sees every poll with live counts.
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	polls, err := h.store.ListPolls(r.Context(), m.ID)
	if err != nil {
		writeError(w, err, "Failed to load polls")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, polls)
}

// ListParticipantPolls handles GET /meetings/{id}/polls/participant
// Drafts are hidden and per-option counts stay masked until a poll closes.
func (h *PollHandler) ListParticipantPolls(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}

	polls, err := h.store.ListPolls(r.Context(), m.ID)
	if err != nil {
		writeError(w, err, "Failed to load polls")
		return
	}

	visible := make([]models.ParticipantPoll, 0, len(polls))
	for _, p := range polls {
		if p.Status == models.PollDraft {
			continue
		}
		visible = append(visible, maskPoll(p))
	}
	middleware.JSONResponse(w, http.StatusOK, visible)
}

// StartPoll handles POST /polls/{id}/start
func (h *PollHandler) StartPoll(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.PollDraft, models.PollActive, notify.EventPollStarted)
}

// ClosePoll handles POST /polls/{id}/close
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.PollActive, models.PollClosed, notify.EventPollClosed)
}

func (h *PollHandler) transition(w http.ResponseWriter, r *http.Request, from, to, event string) {
	poll, err := h.store.GetPoll(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load poll")
		return
	}
	m, err := h.store.GetMeeting(r.Context(), poll.MeetingID)
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	poll, err = h.engine.Tally.SetStatus(r.Context(), poll.ID, from, to)
	if err != nil {
		writeError(w, err, "Failed to update poll")
		return
	}

	slog.Info("poll status changed", "poll_id", poll.ID, "status", to)

	h.notifier.Broadcast(m.ID, notify.Event{
		Type:    event,
		Payload: map[string]any{"poll": maskPoll(poll)},
	})

	middleware.JSONResponse(w, http.StatusOK, poll)
}

// GetResults handles GET /polls/{id}/results
func (h *PollHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	poll, err := h.store.GetPoll(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load poll")
		return
	}

	if poll.Status != models.PollClosed {
		middleware.ErrorResponse(w, http.StatusConflict, "Results are available once the poll is closed")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PollResultsResponse{
		Question:   poll.Question,
		Results:    report.Results(poll),
		TotalVotes: poll.TotalVotes(),
	})
}

// maskPoll hides per-option counts of a poll that is still open
func maskPoll(p models.Poll) models.ParticipantPoll {
	out := models.ParticipantPoll{Poll: p, VoteTotal: p.TotalVotes()}
	if p.Status == models.PollClosed {
		return out
	}
	out.Options = make([]models.Option, len(p.Options))
	for i, o := range p.Options {
		o.Votes = 0
		out.Options[i] = o
	}
	return out
}

// cleanOptions trims and validates poll options
func cleanOptions(raw []string) ([]string, string) {
	if len(raw) < minOptions || len(raw) > maxOptions {
		return nil, "a poll needs between 2 and 20 options"
	}
	seen := make(map[string]bool, len(raw))
	options := make([]string, 0, len(raw))
	for _, o := range raw {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
			return nil, "options must not be empty"
		case utf8.RuneCountInString(o) > maxTextLength:
			return nil, "option is too long: " + o
		case seen[strings.ToLower(o)]:
			return nil, "duplicate option: " + o
		}
		seen[strings.ToLower(o)] = true
		options = append(options, o)
	}
	return options, ""
}
