// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrSecretMismatch  = errors.New("secret does not match")
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	upperCode    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MinPasswordLength is the floor for recovery passwords.
	MinPasswordLength = 12
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAdminKey creates an HMAC-based admin key for a meeting
// This is deterministic and verifiable
func GenerateAdminKey(meetingID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(meetingID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the meeting
func ValidateAdminKey(meetingID, adminKey, salt string) error {
	expected := GenerateAdminKey(meetingID, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// GenerateMeetingCode creates the 8 character participant join code
func GenerateMeetingCode() (string, error) {
	return randomString(upperCode, 8)
}

// GenerateScrutatorCode creates the scrutator join code (SC + 6 characters)
func GenerateScrutatorCode() (string, error) {
	s, err := randomString(upperCode, 6)
	if err != nil {
		return "", err
	}
	return "SC" + s, nil
}

// GeneratePassword creates a random alphanumeric password.
// Lengths below MinPasswordLength are raised to it.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}
	return randomString(alphanumeric, length)
}

// HashSecret hashes a secret for storage
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// CheckSecret compares a stored hash with a candidate secret
func CheckSecret(hash, secret string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return ErrSecretMismatch
	}
	return nil
}

// randomString draws each character uniformly from the alphabet
func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
