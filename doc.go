// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the assembly-vote API server.

assembly-vote runs live assemblies: an organizer opens a meeting, admits
participants, runs anonymous polls and hands the final report to a panel of
scrutators for approval. If the organizer disappears, leadership passes to
the most senior scrutator and the meeting is scheduled for deletion.
Downloading the final report deletes everything.

# Starting the Server

	ADMIN_KEY_SALT=... DATABASE_URL=assembly.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --admin-salt ...

A .env file in the working directory is loaded first; real environment
variables win.

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file path or PostgreSQL connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - CORS_ORIGINS: comma separated allowed origins (default: any)
  - MONITOR_INTERVAL, ABSENCE_THRESHOLD, DELETION_DELAY,
    DELETION_EXTENSION, DELETION_GRACE: presence and retention timing
  - RECOVERY_PASSWORD_LENGTH, SCRUTATOR_AUTO_APPROVE, DB_CONNECT_TIMEOUT

# Architecture

  - governance: tally, quorum, presence monitor, retention, recovery
  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - notify: per-meeting event hub and websocket stream
  - report: report rendering
  - models: Domain, request and response types
  - auth: Codes, admin keys, recovery secrets
  - db: Store, schema, connection
  - cliparse: Configuration parsing

The HTTP server and the presence monitor run under one errgroup; SIGINT or
SIGTERM shuts both down.
*/
package main
