// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/danielhkuo/assembly-vote/auth"
	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/db"
	"github.com/danielhkuo/assembly-vote/governance"
	"github.com/danielhkuo/assembly-vote/middleware"
	"github.com/danielhkuo/assembly-vote/models"
)

// Field limits
const (
	maxTitleLength = 200
	maxNameLength  = 100
	maxTextLength  = 200
)

type MeetingHandler struct {
	store  *db.Store
	engine *governance.Engine
	cfg    cliparse.Config
}

func NewMeetingHandler(store *db.Store, engine *governance.Engine, cfg cliparse.Config) *MeetingHandler {
	return &MeetingHandler{store: store, engine: engine, cfg: cfg}
}

// CreateMeeting handles POST /meetings
func (h *MeetingHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMeetingRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.OrganizerName = strings.TrimSpace(req.OrganizerName)

	// Validate input
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if utf8.RuneCountInString(req.Title) > maxTitleLength {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is too long")
		return
	}
	if req.OrganizerName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "organizer_name is required")
		return
	}
	if utf8.RuneCountInString(req.OrganizerName) > maxNameLength {
		middleware.ErrorResponse(w, http.StatusBadRequest, "organizer_name is too long")
		return
	}

	code, err := auth.GenerateMeetingCode()
	if err != nil {
		slog.Error("failed to generate meeting code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create meeting")
		return
	}

	now := h.engine.Now()
	m := models.Meeting{
		ID:                uuid.NewString(),
		Title:             req.Title,
		OrganizerName:     req.OrganizerName,
		MeetingCode:       code,
		ReportState:       models.ReportIdle,
		ReportVotes:       map[string]bool{},
		OrganizerPresent:  true,
		OrganizerLastSeen: now,
		CreatedAt:         now,
	}
	if err := h.store.CreateMeeting(r.Context(), m); err != nil {
		slog.Error("failed to insert meeting", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create meeting")
		return
	}

	slog.Info("meeting created", "meeting_id", m.ID, "organizer", m.OrganizerName)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateMeetingResponse{
		Meeting:  m,
		AdminKey: auth.GenerateAdminKey(m.ID, h.cfg.AdminKeySalt),
	})
}

// GetMeetingByCode handles GET /meeting-codes/{code}
func (h *MeetingHandler) GetMeetingByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(r.PathValue("code")))
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code is required")
		return
	}

	m, err := h.store.GetMeetingByCode(r.Context(), code)
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}

	// participants never see the scrutator code
	m.ScrutatorCode = nil
	middleware.JSONResponse(w, http.StatusOK, m)
}

// GetOrganizerView handles GET /meetings/{id}/organizer
func (h *MeetingHandler) GetOrganizerView(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	participants, err := h.store.ListParticipants(r.Context(), m.ID)
	if err != nil {
		writeError(w, err, "Failed to load participants")
		return
	}
	polls, err := h.store.ListPolls(r.Context(), m.ID)
	if err != nil {
		writeError(w, err, "Failed to load polls")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.OrganizerViewResponse{
		Meeting:      m,
		Participants: participants,
		Polls:        polls,
	})
}

// Heartbeat handles POST /meetings/{id}/heartbeat
func (h *MeetingHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req models.HeartbeatRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	m, err := h.engine.Monitor.Heartbeat(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Identity))
	if err != nil {
		writeError(w, err, "Failed to record heartbeat")
		return
	}

	// the identity check is a name match, so never hand out the scrutator code
	m.ScrutatorCode = nil
	middleware.JSONResponse(w, http.StatusOK, m)
}

// CanClose handles GET /meetings/{id}/can-close
func (h *MeetingHandler) CanClose(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.ClosureStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load closure status")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, status)
}

// IssueRecovery handles POST /meetings/{id}/recovery
func (h *MeetingHandler) IssueRecovery(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	cred, err := h.engine.Recovery.Issue(r.Context(), m.ID)
	if err != nil {
		writeError(w, err, "Failed to issue recovery credential")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.RecoveryResponse{
		Code:        cred.Code,
		RecoveryURL: cred.URL,
		Password:    cred.Password,
	})
}

// RedeemRecovery handles POST /meetings/recover
func (h *MeetingHandler) RedeemRecovery(w http.ResponseWriter, r *http.Request) {
	var req models.RedeemRecoveryRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Code) == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code and password are required")
		return
	}

	m, err := h.engine.Recovery.Redeem(r.Context(), req.Code, req.Password)
	if err != nil {
		writeError(w, err, "Failed to redeem recovery credential")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.RedeemRecoveryResponse{
		Meeting:  m,
		AdminKey: auth.GenerateAdminKey(m.ID, h.cfg.AdminKeySalt),
	})
}
