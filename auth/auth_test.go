// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
		{"24 bytes", 24, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID() error = %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("GenerateID() length = %d, want %d", len(id), tt.wantLen)
			}
			// Verify it's valid hex
			for _, c := range id {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("GenerateID() contains invalid hex char: %c", c)
				}
			}
		})
	}

	// Test randomness - two IDs should be different
	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestGenerateAdminKey(t *testing.T) {
	tests := []struct {
		name   string
		meetingID string
		salt   string
	}{
		{"standard", "meeting123", "secret-salt"},
		{"empty meeting id", "", "salt"},
		{"empty salt", "meeting456", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := GenerateAdminKey(tt.meetingID, tt.salt)

			// Should not be empty
			if key == "" {
				t.Error("GenerateAdminKey() returned empty string")
			}

			// Should be deterministic
			key2 := GenerateAdminKey(tt.meetingID, tt.salt)
			if key != key2 {
				t.Error("GenerateAdminKey() is not deterministic")
			}

			// Different inputs should produce different keys
			if tt.meetingID != "" && tt.salt != "" {
				differentKey := GenerateAdminKey(tt.meetingID+"x", tt.salt)
				if key == differentKey {
					t.Error("GenerateAdminKey() produced same key for different meeting IDs")
				}
			}

			// Should be URL-safe (no padding)
			if strings.Contains(key, "=") {
				t.Error("GenerateAdminKey() contains padding characters")
			}
		})
	}
}

func TestValidateAdminKey(t *testing.T) {
	meetingID := "test-meeting-123"
	salt := "test-salt"
	validKey := GenerateAdminKey(meetingID, salt)

	tests := []struct {
		name     string
		meetingID   string
		adminKey string
		salt     string
		wantErr  bool
	}{
		{"valid key", meetingID, validKey, salt, false},
		{"wrong key", meetingID, "wrong-key", salt, true},
		{"wrong meeting id", "different-meeting", validKey, salt, true},
		{"wrong salt", meetingID, validKey, "different-salt", true},
		{"empty key", meetingID, "", salt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.meetingID, tt.adminKey, tt.salt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrInvalidAdminKey {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, ErrInvalidAdminKey)
			}
		})
	}
}

func TestGenerateMeetingCode(t *testing.T) {
	codes := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateMeetingCode()
		if err != nil {
			t.Fatalf("GenerateMeetingCode() error = %v", err)
		}
		if len(code) != 8 {
			t.Errorf("GenerateMeetingCode() length = %d, want 8", len(code))
		}
		for _, c := range code {
			if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')) {
				t.Errorf("GenerateMeetingCode() contains invalid char: %c", c)
			}
		}
		codes[code] = true
	}
	if len(codes) < 45 {
		t.Errorf("GenerateMeetingCode() produced too many duplicates: %d unique of 50", len(codes))
	}
}

func TestGenerateScrutatorCode(t *testing.T) {
	code, err := GenerateScrutatorCode()
	if err != nil {
		t.Fatalf("GenerateScrutatorCode() error = %v", err)
	}
	if !strings.HasPrefix(code, "SC") {
		t.Errorf("GenerateScrutatorCode() = %q, want SC prefix", code)
	}
	if len(code) != 8 {
		t.Errorf("GenerateScrutatorCode() length = %d, want 8", len(code))
	}
}

func TestGeneratePassword(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantLen int
	}{
		{"default length", 12, 12},
		{"longer", 20, 20},
		{"too short is raised", 4, MinPasswordLength},
		{"zero is raised", 0, MinPasswordLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pw, err := GeneratePassword(tt.length)
			if err != nil {
				t.Fatalf("GeneratePassword() error = %v", err)
			}
			if len(pw) != tt.wantLen {
				t.Errorf("GeneratePassword() length = %d, want %d", len(pw), tt.wantLen)
			}
			for _, c := range pw {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
					t.Errorf("GeneratePassword() contains non-alphanumeric char: %c", c)
				}
			}
		})
	}

	pw1, _ := GeneratePassword(12)
	pw2, _ := GeneratePassword(12)
	if pw1 == pw2 {
		t.Error("GeneratePassword() produced duplicate passwords (extremely unlikely)")
	}
}

func TestHashSecret(t *testing.T) {
	hash, err := HashSecret("correct-horse")
	if err != nil {
		t.Fatalf("HashSecret() error = %v", err)
	}
	if hash == "correct-horse" {
		t.Fatal("HashSecret() returned the plaintext")
	}

	if err := CheckSecret(hash, "correct-horse"); err != nil {
		t.Errorf("CheckSecret() with correct secret error = %v", err)
	}
	if err := CheckSecret(hash, "wrong"); err != ErrSecretMismatch {
		t.Errorf("CheckSecret() with wrong secret error = %v, want %v", err, ErrSecretMismatch)
	}
	if err := CheckSecret("not-a-hash", "correct-horse"); err != ErrSecretMismatch {
		t.Errorf("CheckSecret() with malformed hash error = %v, want %v", err, ErrSecretMismatch)
	}
}

// Benchmark tests
func BenchmarkGenerateID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateID(16)
	}
}

func BenchmarkGenerateAdminKey(b *testing.B) {
	meetingID := "test-meeting-123"
	salt := "test-salt"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GenerateAdminKey(meetingID, salt)
	}
}

func BenchmarkGeneratePassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GeneratePassword(12)
	}
}
