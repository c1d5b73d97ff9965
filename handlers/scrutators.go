// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/danielhkuo/assembly-vote/auth"
	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/db"
	"github.com/danielhkuo/assembly-vote/governance"
	"github.com/danielhkuo/assembly-vote/middleware"
	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/notify"
)

type ScrutatorHandler struct {
	store    *db.Store
	engine   *governance.Engine
	notifier notify.Notifier
	cfg      cliparse.Config
}

func NewScrutatorHandler(store *db.Store, engine *governance.Engine, notifier notify.Notifier, cfg cliparse.Config) *ScrutatorHandler {
	return &ScrutatorHandler{store: store, engine: engine, notifier: notifier, cfg: cfg}
}

// AddScrutators handles POST /meetings/{id}/scrutators
// Names already on the roster are kept as they are.
func (h *ScrutatorHandler) AddScrutators(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	var req models.AddScrutatorsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	names, msg := cleanNames(req.Names)
	if msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	if m.ScrutatorCode == nil {
		code, err := auth.GenerateScrutatorCode()
		if err != nil {
			slog.Error("failed to generate scrutator code", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add scrutators")
			return
		}
		m, err = h.store.UpdateMeeting(r.Context(), m.ID, func(cur *models.Meeting) error {
			if cur.ScrutatorCode == nil {
				cur.ScrutatorCode = &code
			}
			return nil
		})
		if err != nil {
			writeError(w, err, "Failed to add scrutators")
			return
		}
	}

	now := h.engine.Now()
	roster := make([]models.Scrutator, 0, len(names))
	for _, name := range names {
		roster = append(roster, models.Scrutator{
			ID:             uuid.NewString(),
			MeetingID:      m.ID,
			Name:           name,
			ApprovalStatus: models.StatusPending,
			AddedAt:        now,
		})
	}
	if err := h.store.InsertScrutators(r.Context(), roster); err != nil {
		writeError(w, err, "Failed to add scrutators")
		return
	}

	all, err := h.store.ListScrutators(r.Context(), m.ID, "")
	if err != nil {
		writeError(w, err, "Failed to load scrutators")
		return
	}
	resp := models.AddScrutatorsResponse{ScrutatorCode: *m.ScrutatorCode, Scrutators: make([]string, 0, len(all))}
	for _, s := range all {
		resp.Scrutators = append(resp.Scrutators, s.Name)
	}

	slog.Info("scrutators added", "meeting_id", m.ID, "count", len(names))

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// ListScrutators handles GET /meetings/{id}/scrutators
func (h *ScrutatorHandler) ListScrutators(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	scrutators, err := h.store.ListScrutators(r.Context(), m.ID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err, "Failed to load scrutators")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ScrutatorListResponse{
		ScrutatorCode: m.ScrutatorCode,
		Scrutators:    scrutators,
	})
}

// JoinScrutator handles POST /scrutators/join
// Only names on the meeting's roster may join.
func (h *ScrutatorHandler) JoinScrutator(w http.ResponseWriter, r *http.Request) {
	var req models.ScrutatorJoinRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	code := strings.ToUpper(strings.TrimSpace(req.ScrutatorCode))
	if name == "" || code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name and scrutator_code are required")
		return
	}

	m, err := h.store.GetMeetingByScrutatorCode(r.Context(), code)
	if errors.Is(err, models.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Invalid scrutator code")
		return
	}
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}

	s, err := h.store.GetScrutatorByName(r.Context(), m.ID, name)
	if errors.Is(err, models.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Name is not on the scrutator roster")
		return
	}
	if err != nil {
		writeError(w, err, "Failed to load scrutator")
		return
	}
	if s.ApprovalStatus == models.StatusRejected {
		middleware.ErrorResponse(w, http.StatusForbidden, "Scrutator was rejected by the organizer")
		return
	}

	if s.ApprovalStatus == models.StatusPending && h.cfg.Governance.ScrutatorAutoApprove {
		now := h.engine.Now()
		if err := h.store.SetScrutatorStatus(r.Context(), s.ID, models.StatusApproved, &now); err != nil {
			writeError(w, err, "Failed to approve scrutator")
			return
		}
		s.ApprovalStatus = models.StatusApproved
	}

	h.notifier.Broadcast(m.ID, notify.Event{
		Type: notify.EventScrutatorJoinRequest,
		Payload: map[string]any{
			"scrutator_id":    s.ID,
			"scrutator_name":  s.Name,
			"approval_status": s.ApprovalStatus,
		},
	})

	resp := models.ScrutatorJoinResponse{Status: s.ApprovalStatus, Scrutator: s.Name}
	if s.ApprovalStatus == models.StatusApproved {
		m.ScrutatorCode = nil
		resp.Meeting = &m
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// ApproveScrutator handles POST /scrutators/{id}/approve
func (h *ScrutatorHandler) ApproveScrutator(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.GetScrutator(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load scrutator")
		return
	}
	m, err := h.store.GetMeeting(r.Context(), s.MeetingID)
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
	var approvedAt *time.Time
	if req.Approved {
		status = models.StatusApproved
		now := h.engine.Now()
		approvedAt = &now
	}
	if err := h.store.SetScrutatorStatus(r.Context(), s.ID, status, approvedAt); err != nil {
		writeError(w, err, "Failed to update scrutator")
		return
	}

	slog.Info("scrutator reviewed", "meeting_id", m.ID, "scrutator", s.Name, "status", status)

	h.notifier.Broadcast(m.ID, notify.Event{
		Type: notify.EventScrutatorApproved,
		Payload: map[string]any{
			"scrutator_id":   s.ID,
			"scrutator_name": s.Name,
			"approved":       req.Approved,
		},
	})

	middleware.JSONResponse(w, http.StatusOK, models.StatusResponse{Status: status})
}

// cleanNames trims and validates roster names. It returns a message
// describing the first problem found.
func cleanNames(raw []string) ([]string, string) {
	if len(raw) == 0 {
		return nil, "names are required"
	}
	seen := make(map[string]bool, len(raw))
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		switch {
		case n == "":
			return nil, "names must not be empty"
		case utf8.RuneCountInString(n) > maxNameLength:
			return nil, "name is too long: " + n
		case seen[n]:
			return nil, "duplicate name: " + n
		}
		seen[n] = true
		names = append(names, n)
	}
	return names, ""
}
