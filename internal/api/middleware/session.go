package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const SessionIDKey contextKey = "session_id"

// SessionHeader carries the caller's session id. Sessions are an isolation
// boundary, not an auth mechanism: one interactive user per session.
const SessionHeader = "X-Session-ID"

// DefaultSessionID is used when the caller sends no session header.
const DefaultSessionID = "default"

// SessionID resolves the session id from the request header and injects it
// into the request context.
func SessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" {
			sessionID = DefaultSessionID
		}

		ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID returns the session ID from context.
func GetSessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionIDKey).(string)
	return sessionID
}
