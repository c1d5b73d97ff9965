// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/db"
	"github.com/danielhkuo/assembly-vote/governance"
	"github.com/danielhkuo/assembly-vote/middleware"
	"github.com/danielhkuo/assembly-vote/models"
	"github.com/danielhkuo/assembly-vote/report"
)

type ReportHandler struct {
	store  *db.Store
	engine *governance.Engine
	cfg    cliparse.Config
}

func NewReportHandler(store *db.Store, engine *governance.Engine, cfg cliparse.Config) *ReportHandler {
	return &ReportHandler{store: store, engine: engine, cfg: cfg}
}

// RequestReport handles POST /meetings/{id}/report-request
func (h *ReportHandler) RequestReport(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	// the body is optional
	var req models.ReportCycleRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	requestedBy := strings.TrimSpace(req.RequestedBy)
	if requestedBy == "" {
		requestedBy = m.Leader()
	}

	res, err := h.engine.Quorum.RequestCycle(r.Context(), m.ID, requestedBy)
	if err != nil {
		writeError(w, err, "Failed to request report")
		return
	}

	slog.Info("report requested", "meeting_id", m.ID, "direct", res.DirectGeneration, "scrutators", res.ScrutatorCount)

	middleware.JSONResponse(w, http.StatusOK, models.ReportCycleResponse{
		DirectGeneration: res.DirectGeneration,
		ApprovalRequired: !res.DirectGeneration,
		ScrutatorCount:   res.ScrutatorCount,
		MajorityNeeded:   res.MajorityNeeded,
	})
}

// ScrutatorVote handles POST /meetings/{id}/scrutator-vote
func (h *ReportHandler) ScrutatorVote(w http.ResponseWriter, r *http.Request) {
	var req models.ScrutatorVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	name := strings.TrimSpace(req.ScrutatorName)
	if name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "scrutator_name is required")
		return
	}

	p, err := h.engine.Quorum.CastVote(r.Context(), r.PathValue("id"), name, req.Approved)
	if err != nil {
		writeError(w, err, "Failed to record scrutator vote")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ScrutatorVoteResponse{
		Decision:        string(p.Decision),
		VotesCast:       p.VotesCast,
		TotalScrutators: p.TotalScrutators,
		YesVotes:        p.YesVotes,
		NoVotes:         p.NoVotes,
		MajorityNeeded:  p.MajorityNeeded,
	})
}

// DownloadReport handles GET /meetings/{id}/report
// A successful download deletes the meeting.
func (h *ReportHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load meeting")
		return
	}
	if !requireOrganizer(w, r, h.cfg, m) {
		return
	}

	artifact, err := h.engine.GenerateReport(r.Context(), m.ID)
	if err != nil {
		writeError(w, err, "Failed to generate report")
		return
	}
	writeArtifact(w, artifact)
}

// PartialReport handles GET /meetings/{id}/partial-report
func (h *ReportHandler) PartialReport(w http.ResponseWriter, r *http.Request) {
	artifact, err := h.engine.PartialReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to generate partial report")
		return
	}
	writeArtifact(w, artifact)
}

func writeArtifact(w http.ResponseWriter, a report.Artifact) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(a.Body); err != nil {
		slog.Error("failed to write report", "error", err)
	}
}
