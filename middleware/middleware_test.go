// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/assembly-vote/models"
)

func TestWithLogging(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"meeting created", http.StatusCreated, `{"id":"m1"}`},
		{"bad admin key", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"poll closed", http.StatusConflict, `{"error":"Conflict"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var rec *statusRecorder
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				rec, _ = w.(*statusRecorder)
				w.WriteHeader(tc.statusCode)
				w.Write([]byte(tc.body))
			})

			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest("POST", "/meetings", nil))

			if w.Code != tc.statusCode || w.Body.String() != tc.body {
				t.Errorf("Expected %d %q, got %d %q", tc.statusCode, tc.body, w.Code, w.Body.String())
			}
			if rec == nil || rec.status != tc.statusCode {
				t.Errorf("Expected recorded status %d, got %+v", tc.statusCode, rec)
			}
			if id := w.Header().Get("X-Request-ID"); len(id) != 16 {
				t.Errorf("Expected 16 character request id, got %q", id)
			}
		})
	}
}

func TestWithLogging_DistinctRequestIDs(t *testing.T) {
	handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {})

	seen := make(map[string]bool)
	for range 5 {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/health", nil))
		id := w.Header().Get("X-Request-ID")
		if seen[id] {
			t.Fatalf("Request id %q reused", id)
		}
		seen[id] = true
	}
}

func TestJSONResponse(t *testing.T) {
	w := httptest.NewRecorder()
	JSONResponse(w, http.StatusOK, models.ReportCycleResponse{ApprovalRequired: true, ScrutatorCount: 3, MajorityNeeded: 2})

	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", w.Header().Get("Content-Type"))
	}
	expected := `{"direct_generation":false,"scrutator_approval_required":true,"scrutator_count":3,"majority_needed":2}`
	if body := strings.TrimSpace(w.Body.String()); body != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, body)
	}
}

func TestErrorResponse(t *testing.T) {
	testCases := []struct {
		statusCode    int
		message       string
		expectedError string
	}{
		{http.StatusUnauthorized, "Invalid admin key", "Unauthorized"},
		{http.StatusForbidden, "Not the current meeting leader", "Forbidden"},
		{http.StatusConflict, "poll is not active", "Conflict"},
	}

	for _, tc := range testCases {
		t.Run(tc.expectedError, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorResponse(w, tc.statusCode, tc.message)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Error != tc.expectedError || resp.Message != tc.message {
				t.Errorf("Expected %s/%q, got %+v", tc.expectedError, tc.message, resp)
			}
		})
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("poll with timer", func(t *testing.T) {
		body := `{"question":"Adopt the minutes?","options":["For","Against"],"timer_duration":90}`
		req := httptest.NewRequest("POST", "/meetings/m1/polls", strings.NewReader(body))

		var parsed models.CreatePollRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(parsed.Options) != 2 || parsed.TimerDuration == nil || *parsed.TimerDuration != 90 {
			t.Errorf("Unexpected parse result %+v", parsed)
		}
	})

	t.Run("scrutator vote", func(t *testing.T) {
		body := `{"scrutator_name":"Ana","approved":true}`
		req := httptest.NewRequest("POST", "/meetings/m1/scrutator-vote", strings.NewReader(body))

		var parsed models.ScrutatorVoteRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.ScrutatorName != "Ana" || !parsed.Approved {
			t.Errorf("Unexpected parse result %+v", parsed)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/votes", strings.NewReader(`{invalid json}`))

		var parsed models.SubmitVoteRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})

	// the report request treats a missing body as "no requester named"
	t.Run("empty body is io.EOF", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/meetings/m1/report-request", strings.NewReader(""))

		var parsed models.ReportCycleRequest
		if err := ParseJSONBody(req, &parsed); !errors.Is(err, io.EOF) {
			t.Errorf("Expected io.EOF, got %v", err)
		}
	})
}

func TestCORS(t *testing.T) {
	// Create a simple handler that returns OK
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("handled"))
	})

	corsHandler := CORS([]string{"*"}, nextHandler)

	t.Run("preflight OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/meetings", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		// Should return 200 OK without calling next handler
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}

		// Body should be empty (preflight doesn't call next)
		if w.Body.String() != "" {
			t.Errorf("Expected empty body for preflight, got '%s'", w.Body.String())
		}

		// Check CORS headers
		if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
			t.Error("Expected Access-Control-Allow-Origin to match request origin")
		}
		if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Error("Expected Access-Control-Allow-Credentials to be 'true'")
		}
	})

	t.Run("regular request with origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/meeting-codes/ABC", nil)
		req.Header.Set("Origin", "https://example.com")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		// Should call next handler
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}

		// Check CORS headers reflect the origin
		if w.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
			t.Error("Expected Access-Control-Allow-Origin to reflect request origin")
		}
	})

	t.Run("request without origin defaults to wildcard", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/meeting-codes/ABC", nil)
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("Expected Access-Control-Allow-Origin to default to '*'")
		}
	})

	t.Run("allows custom headers", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/meetings", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		allowedHeaders := w.Header().Get("Access-Control-Allow-Headers")

		for _, h := range []string{"X-Admin-Key", "X-Leader-Name", "Content-Type"} {
			if !strings.Contains(allowedHeaders, h) {
				t.Errorf("Expected %s in allowed headers", h)
			}
		}
	})

	t.Run("allows required methods", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/meetings", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		allowedMethods := w.Header().Get("Access-Control-Allow-Methods")

		requiredMethods := []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		for _, method := range requiredMethods {
			if !strings.Contains(allowedMethods, method) {
				t.Errorf("Expected %s in allowed methods", method)
			}
		}
	})
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	corsHandler := CORS([]string{"https://vote.example"}, nextHandler)

	testCases := []struct {
		origin   string
		expected string
	}{
		{"https://vote.example", "https://vote.example"},
		{"https://evil.example", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.origin, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/health", nil)
			req.Header.Set("Origin", tc.origin)
			w := httptest.NewRecorder()

			corsHandler.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.expected {
				t.Errorf("Expected Access-Control-Allow-Origin '%s', got '%s'", tc.expected, got)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{"first hop of X-Forwarded-For", map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"}, "127.0.0.1:12345", "203.0.113.195"},
		{"X-Forwarded-For over X-Real-IP", map[string]string{"X-Forwarded-For": "192.168.1.100", "X-Real-IP": "203.0.113.50"}, "10.0.0.1:12345", "192.168.1.100"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "203.0.113.50"}, "10.0.0.1:12345", "203.0.113.50"},
		{"RemoteAddr port stripped", nil, "192.168.1.50:54321", "192.168.1.50"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/meetings", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			if got := GetClientIP(req); got != tc.expectedIP {
				t.Errorf("Expected IP '%s', got '%s'", tc.expectedIP, got)
			}
		})
	}
}
