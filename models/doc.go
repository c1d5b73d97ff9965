// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain records, request/response types, and the error
taxonomy shared by the store, the governance engine, and the HTTP handlers.

# Domain Types

  - Meeting: organizer, join codes, and governance fields
  - Scrutator: elected auditor with pending/approved/rejected state
  - Participant: admitted attendee (never linked to a vote)
  - Poll, Option: question with ordered options and per-option counts
  - Vote: anonymous record referencing a poll and an option only
  - RecoverySession: hashed one-time password with end-of-day expiry

# Report State

A meeting's report authorization is one tagged value rather than a set of
flags:

	idle → pending_approval → approved | rejected
	approved → downloaded (then the meeting is erased)

ReportPending, ReportApproved, and ReportDownloaded derive the legacy
booleans from it.

# Errors

	ErrNotFound      meeting, poll, scrutator or session absent
	ErrUnauthorized  identity mismatch
	ErrInvalidState  operation not allowed in the current state
	ErrForbidden     report generation without quorum
	ErrInvalidOption option does not belong to the poll
*/
package models
