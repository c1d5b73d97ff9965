// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first when present. Variables
already set in the environment are never overwritten by it.

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Database connection string (required)
  - DatabaseType: sqlite (default) or postgres
  - AdminKeySalt: Secret for admin key HMAC (required)
  - CORSOrigins: Allowed origins (default: *)
  - Governance: Engine timings and policies

# CLI Flags

	-p            Server port
	-d            Database URL
	-t            Database type
	--admin-salt  Admin key salt

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	ADMIN_KEY_SALT → --admin-salt
	CORS_ORIGINS   comma separated list

CLI flags take precedence over environment variables.

# Governance Settings

GovernanceConfig is read from the environment only:

	MONITOR_INTERVAL          presence sweep tick (60s)
	ABSENCE_THRESHOLD         organizer silence before absence (5m)
	DELETION_DELAY            deadline armed when no scrutator can lead (12h)
	DELETION_EXTENSION        push-out while connections remain (1h)
	DELETION_GRACE            wait after the meeting_deleted event (2s)
	RECOVERY_PASSWORD_LENGTH  at least 12
	SCRUTATOR_AUTO_APPROVE    approve scrutators on join (false)
	DB_CONNECT_TIMEOUT        give up connecting after this long (30s)

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - ADMIN_KEY_SALT must be provided
*/
package cliparse
