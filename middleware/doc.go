// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status, duration_ms).
Both lines carry a request_id, also returned in the X-Request-ID header.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(cfg.CORSOrigins, mux),
	}

An empty origin list or "*" allows any origin. Allowed origins are echoed
back with credentials enabled. Requests may carry X-Admin-Key and
X-Leader-Name. Content-Disposition and X-Request-ID are exposed.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.CreateMeetingRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Honors X-Forwarded-For and X-Real-IP. Used in request logs.
*/
package middleware
