// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the assembly-vote API.

# Route Registration

NewRouter builds an http.ServeMux with every endpoint and wraps it in CORS:

	handler := router.NewRouter(store, engine, hub, cfg)

# Endpoints

Health:

	GET /health - 200 "OK", or 503 when the database is unreachable

Meetings:

	POST /meetings                - Create meeting, returns admin key
	GET  /meeting-codes/{code}    - Look up by participant code
	GET  /meetings/{id}/organizer - Organizer view (X-Admin-Key or X-Leader-Name)
	POST /meetings/{id}/heartbeat - Organizer presence
	GET  /meetings/{id}/can-close - Whether the tab may close
	POST /meetings/{id}/recovery  - Issue recovery credential
	POST /meetings/recover        - Redeem recovery credential

Scrutators:

	POST /meetings/{id}/scrutators - Add roster names
	GET  /meetings/{id}/scrutators - List roster (?status=)
	POST /scrutators/join          - Join with scrutator code
	POST /scrutators/{id}/approve  - Approve or reject

Reports:

	POST /meetings/{id}/report-request - Open approval cycle
	POST /meetings/{id}/scrutator-vote - Approve or reject the report
	GET  /meetings/{id}/report         - Final report, deletes the meeting
	GET  /meetings/{id}/partial-report - Snapshot, meeting survives

Participants, polls and votes:

	POST /participants/join
	POST /participants/{id}/approve
	GET  /participants/{id}/status
	POST /meetings/{id}/polls
	GET  /meetings/{id}/polls
	GET  /meetings/{id}/polls/participant
	POST /polls/{id}/start
	POST /polls/{id}/close
	GET  /polls/{id}/results
	POST /votes

Live events:

	GET /ws/meetings/{id} - websocket stream of meeting events

The websocket route is registered without WithLogging since the upgrade
hijacks the connection.
*/
package router
