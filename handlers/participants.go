// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
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
)

type ParticipantHandler struct {
	store    *db.Store
	engine   *governance.Engine
	notifier notify.Notifier
	cfg      cliparse.Config
}

func NewParticipantHandler(store *db.Store, engine *governance.Engine, notifier notify.Notifier, cfg cliparse.Config) *ParticipantHandler {
	return &ParticipantHandler{store: store, engine: engine, notifier: notifier, cfg: cfg}
}

// JoinMeeting handles POST /participants/join
func (h *ParticipantHandler) JoinMeeting(w http.ResponseWriter, r *http.Request) {
	var req models.ParticipantJoinRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	code := strings.ToUpper(strings.TrimSpace(req.MeetingCode))
	if name == "" || code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name and meeting_code are required")
		return
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is too long")
		return
	}

	m, err := h.store.GetMeetingByCode(r.Context(), code)
	if errors.Is(err, models.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Invalid meeting code")
		return
	}
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}

	p := models.Participant{
		ID:             uuid.NewString(),
		MeetingID:      m.ID,
		Name:           name,
		ApprovalStatus: models.StatusPending,
		JoinedAt:       h.engine.Now(),
	}
	if err := h.store.InsertParticipant(r.Context(), p); err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			middleware.ErrorResponse(w, http.StatusConflict, "Name already taken in this meeting")
			return
		}
		writeError(w, err, "Failed to join meeting")
		return
	}

	slog.Info("participant joined", "meeting_id", m.ID, "participant_id", p.ID)

	h.notifier.Broadcast(m.ID, notify.Event{
		Type:    notify.EventParticipantJoined,
		Payload: map[string]any{"participant_id": p.ID, "name": p.Name},
	})

	middleware.JSONResponse(w, http.StatusCreated, p)
}

// ApproveParticipant handles POST /participants/{id}/approve
func (h *ParticipantHandler) ApproveParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetParticipant(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load participant")
		return
	}
	m, err := h.store.GetMeeting(r.Context(), p.MeetingID)
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	var req models.ApprovalRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	status := models.StatusRejected
	if req.Approved {
		status = models.StatusApproved
	}
	if err := h.store.SetParticipantStatus(r.Context(), p.ID, status); err != nil {
		writeError(w, err, "Failed to update participant")
		return
	}

	h.notifier.Broadcast(m.ID, notify.Event{
		Type: notify.EventParticipantApproved,
		Payload: map[string]any{
			"participant_id": p.ID,
			"name":           p.Name,
			"approved":       req.Approved,
		},
	})

	middleware.JSONResponse(w, http.StatusOK, models.StatusResponse{Status: status})
}

// GetStatus handles GET /participants/{id}/status
func (h *ParticipantHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetParticipant(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load participant")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.StatusResponse{Status: p.ApprovalStatus})
}
