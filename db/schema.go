// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The statements are portable across postgres and sqlite.
func CreateSchema(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// Referential integrity between tables is kept by the retention cascade,
// not by the database.
const schema = `
-- Meetings
CREATE TABLE IF NOT EXISTS meeting (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    organizer_name TEXT NOT NULL,
    meeting_code TEXT NOT NULL UNIQUE,
    scrutator_code TEXT UNIQUE,
    report_state TEXT NOT NULL DEFAULT 'idle'
        CHECK (report_state IN ('idle', 'pending_approval', 'approved', 'rejected', 'downloaded')),
    report_votes TEXT NOT NULL DEFAULT '{}',
    organizer_present BOOLEAN NOT NULL,
    organizer_last_seen TIMESTAMP NOT NULL,
    leadership_holder TEXT,
    deletion_deadline TIMESTAMP,
    recovery_secret_ref TEXT,
    created_at TIMESTAMP NOT NULL
);

-- Scrutators
CREATE TABLE IF NOT EXISTS scrutator (
    id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL,
    name TEXT NOT NULL,
    approval_status TEXT NOT NULL DEFAULT 'pending'
        CHECK (approval_status IN ('pending', 'approved', 'rejected')),
    added_at TIMESTAMP NOT NULL,
    approved_at TIMESTAMP,
    UNIQUE (meeting_id, name)
);

CREATE INDEX IF NOT EXISTS idx_scrutator_meeting_id ON scrutator(meeting_id);

-- Participants
CREATE TABLE IF NOT EXISTS participant (
    id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL,
    name TEXT NOT NULL,
    approval_status TEXT NOT NULL DEFAULT 'pending'
        CHECK (approval_status IN ('pending', 'approved', 'rejected')),
    joined_at TIMESTAMP NOT NULL,
    UNIQUE (meeting_id, name)
);

CREATE INDEX IF NOT EXISTS idx_participant_meeting_id ON participant(meeting_id);

-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL,
    question TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'active', 'closed')),
    timer_duration INTEGER,
    timer_started_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_poll_meeting_id ON poll(meeting_id);

-- Options
CREATE TABLE IF NOT EXISTS poll_option (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL,
    text TEXT NOT NULL,
    position INTEGER NOT NULL,
    votes INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_poll_option_poll_id ON poll_option(poll_id);

-- Votes (anonymous: no participant reference)
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL,
    option_id TEXT NOT NULL,
    voted_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vote_poll_id ON vote(poll_id);

-- Recovery Sessions
CREATE TABLE IF NOT EXISTS recovery_session (
    code TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    consumed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_recovery_session_meeting_id ON recovery_session(meeting_id)
`
