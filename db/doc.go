// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connection, schema creation and persistence.

# Connecting

Open picks the driver, retries the first ping with exponential backoff and
creates the schema:

	store, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL, 30*time.Second)
	if err != nil {
		log.Fatal(err)
	}

Supported types are "sqlite" (modernc.org/sqlite, the default) and
"postgres" (lib/pq). SQLite connections are limited to one so that a single
writer is ever active.

# Schema Creation

CreateSchema is safe to call multiple times - uses IF NOT EXISTS for all
tables and indexes. The same statements run on both dialects.

# Tables

  - meeting: Meeting metadata and governance fields
  - scrutator: Scrutator roster and approval state
  - participant: Admitted participants
  - poll: Poll question and lifecycle state
  - poll_option: Ordered options with stored vote counts
  - vote: Anonymous votes (poll + option only)
  - recovery_session: Hashed one-time recovery credentials

# Relationships

	meeting 1──* scrutator
	meeting 1──* participant
	meeting 1──* poll 1──* poll_option
	poll 1──* vote
	meeting 1──* recovery_session

There are no foreign keys. Records are removed by the governance cascade in
dependency order: votes, polls, participants, scrutators, recovery
sessions, meeting.

# Store

Store implements the persistence port used by the governance engine and the
admission handlers. Queries use ? placeholders, rebound to $n for postgres.
UpdateMeeting performs a read-modify-write of one meeting inside a
transaction (SELECT ... FOR UPDATE on postgres). Missing rows are reported
as models.ErrNotFound.
*/
package db
