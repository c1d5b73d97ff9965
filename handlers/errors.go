// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/assembly-vote/auth"
	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/middleware"
	"github.com/danielhkuo/assembly-vote/models"
)

// statusFor maps a governance error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidOption):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error. Unclassified errors are logged and
// reported with the generic message only.
func writeError(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(message, "error", err)
		middleware.ErrorResponse(w, status, message)
		return
	}
	middleware.ErrorResponse(w, status, err.Error())
}

// requireAdmin checks the X-Admin-Key header against the meeting
func requireAdmin(w http.ResponseWriter, r *http.Request, cfg cliparse.Config, meetingID string) bool {
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(meetingID, adminKey, cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// requireOrganizer accepts the organizer's admin key or, after a leadership
// transfer, the X-Leader-Name header naming the current holder.
func requireOrganizer(w http.ResponseWriter, r *http.Request, cfg cliparse.Config, m models.Meeting) bool {
	if r.Header.Get("X-Admin-Key") == "" && m.LeadershipHolder != nil {
		if name := r.Header.Get("X-Leader-Name"); name != "" {
			if name == m.Leader() {
				return true
			}
			middleware.ErrorResponse(w, http.StatusForbidden, "Not the current meeting leader")
			return false
		}
	}
	return requireAdmin(w, r, cfg, m.ID)
}
