// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strings"

	"github.com/danielhkuo/assembly-vote/governance"
	"github.com/danielhkuo/assembly-vote/middleware"
	"github.com/danielhkuo/assembly-vote/models"
)

type VotingHandler struct {
	engine *governance.Engine
}

func NewVotingHandler(engine *governance.Engine) *VotingHandler {
	return &VotingHandler{engine: engine}
}

// SubmitVote handles POST /votes
// Votes carry no participant reference. The response masks counts the
// same way the participant poll list does.
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	pollID := strings.TrimSpace(req.PollID)
	optionID := strings.TrimSpace(req.OptionID)
	if pollID == "" || optionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id and option_id are required")
		return
	}

	poll, err := h.engine.Tally.SubmitVote(r.Context(), pollID, optionID)
	if err != nil {
		writeError(w, err, "Failed to submit vote")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, maskPoll(poll))
}
