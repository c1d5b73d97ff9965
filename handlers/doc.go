// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the assembly-vote API.

# Handler Types

Each handler is a struct over the store, the governance engine and config:

  - MeetingHandler: meetings, heartbeat, closure status, recovery
  - ScrutatorHandler: roster, join, approval
  - ParticipantHandler: admission and status
  - PollHandler: poll lifecycle, masked participant view, results
  - VotingHandler: anonymous vote submission
  - ReportHandler: report quorum, final and partial reports

Handlers are created via constructor functions:

	meetingHandler := handlers.NewMeetingHandler(store, engine, cfg)

# Authorization

Organizer operations require the X-Admin-Key header returned when the
meeting is created. After leadership passes to a scrutator, the holder may
send X-Leader-Name instead. A bad or missing admin key yields 401.

# Errors

Governance errors map to statuses:

	models.ErrNotFound      404
	models.ErrUnauthorized  403
	models.ErrForbidden     403
	models.ErrInvalidState  409
	models.ErrInvalidOption 400

Anything else is logged and reported as 500.

# Reports

GET /meetings/{id}/report streams the final report as an attachment and
deletes the meeting. A second request finds nothing.
*/
package handlers
