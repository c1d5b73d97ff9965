// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/assembly-vote/cliparse"
	"github.com/danielhkuo/assembly-vote/db"
	"github.com/danielhkuo/assembly-vote/governance"
	"github.com/danielhkuo/assembly-vote/handlers"
	"github.com/danielhkuo/assembly-vote/middleware"
	"github.com/danielhkuo/assembly-vote/notify"
)

func NewRouter(store *db.Store, engine *governance.Engine, hub *notify.Hub, cfg cliparse.Config) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	meetingHandler := handlers.NewMeetingHandler(store, engine, cfg)
	scrutatorHandler := handlers.NewScrutatorHandler(store, engine, hub, cfg)
	participantHandler := handlers.NewParticipantHandler(store, engine, hub, cfg)
	pollHandler := handlers.NewPollHandler(store, engine, hub, cfg)
	votingHandler := handlers.NewVotingHandler(engine)
	reportHandler := handlers.NewReportHandler(store, engine, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Meetings
	mux.HandleFunc("POST /meetings", middleware.WithLogging(meetingHandler.CreateMeeting))
	mux.HandleFunc("GET /meeting-codes/{code}", middleware.WithLogging(meetingHandler.GetMeetingByCode))
	mux.HandleFunc("GET /meetings/{id}/organizer", middleware.WithLogging(meetingHandler.GetOrganizerView))
	mux.HandleFunc("POST /meetings/{id}/heartbeat", middleware.WithLogging(meetingHandler.Heartbeat))
	mux.HandleFunc("GET /meetings/{id}/can-close", middleware.WithLogging(meetingHandler.CanClose))
	mux.HandleFunc("POST /meetings/{id}/recovery", middleware.WithLogging(meetingHandler.IssueRecovery))
	mux.HandleFunc("POST /meetings/recover", middleware.WithLogging(meetingHandler.RedeemRecovery))

	// Scrutators
	mux.HandleFunc("POST /meetings/{id}/scrutators", middleware.WithLogging(scrutatorHandler.AddScrutators))
	mux.HandleFunc("GET /meetings/{id}/scrutators", middleware.WithLogging(scrutatorHandler.ListScrutators))
	mux.HandleFunc("POST /scrutators/join", middleware.WithLogging(scrutatorHandler.JoinScrutator))
	mux.HandleFunc("POST /scrutators/{id}/approve", middleware.WithLogging(scrutatorHandler.ApproveScrutator))

	// Report quorum and download
	mux.HandleFunc("POST /meetings/{id}/report-request", middleware.WithLogging(reportHandler.RequestReport))
	mux.HandleFunc("POST /meetings/{id}/scrutator-vote", middleware.WithLogging(reportHandler.ScrutatorVote))
	mux.HandleFunc("GET /meetings/{id}/report", middleware.WithLogging(reportHandler.DownloadReport))
	mux.HandleFunc("GET /meetings/{id}/partial-report", middleware.WithLogging(reportHandler.PartialReport))

	// Participants
	mux.HandleFunc("POST /participants/join", middleware.WithLogging(participantHandler.JoinMeeting))
	mux.HandleFunc("POST /participants/{id}/approve", middleware.WithLogging(participantHandler.ApproveParticipant))
	mux.HandleFunc("GET /participants/{id}/status", middleware.WithLogging(participantHandler.GetStatus))

	// Polls
	mux.HandleFunc("POST /meetings/{id}/polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /meetings/{id}/polls", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("GET /meetings/{id}/polls/participant", middleware.WithLogging(pollHandler.ListParticipantPolls))
	mux.HandleFunc("POST /polls/{id}/start", middleware.WithLogging(pollHandler.StartPoll))
	mux.HandleFunc("POST /polls/{id}/close", middleware.WithLogging(pollHandler.ClosePoll))
	mux.HandleFunc("GET /polls/{id}/results", middleware.WithLogging(pollHandler.GetResults))

	// Voting (anonymous)
	mux.HandleFunc("POST /votes", middleware.WithLogging(votingHandler.SubmitVote))

	// Live events. Not wrapped in WithLogging: the upgrade needs the raw
	// connection.
	mux.HandleFunc("GET /ws/meetings/{id}", hub.ServeMeeting)

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("assembly-vote API v1"))
	})

	return middleware.CORS(cfg.CORSOrigins, mux)
}
