// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides shared-secret and credential generation utilities.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(meetingID, salt)
	err := auth.ValidateAdminKey(meetingID, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same meeting ID and salt always produce the same key, so it never has to
be stored. Organizer-only operations require it in the X-Admin-Key header.

# Join Codes

	code, err := auth.GenerateMeetingCode()   // 8 characters, A-Z0-9
	code, err := auth.GenerateScrutatorCode() // "SC" + 6 characters

# Recovery Passwords

	pw, err := auth.GeneratePassword(12)
	hash, err := auth.HashSecret(pw)
	err = auth.CheckSecret(hash, candidate)

Passwords are drawn from crypto/rand over [A-Za-z0-9] and are never shorter
than MinPasswordLength. Only the bcrypt hash is persisted.

# ID Generation

Random hex IDs, used to tag request logs:

	id, err := auth.GenerateID(8)  // 16 hex characters
*/
package auth
