package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/agentoven/agentoven/console/internal/sessions"
	"github.com/rs/zerolog/log"
)

type contextKey string

// SessionKey is the context key for the caller's console session.
const SessionKey contextKey = "session"

// SessionCookie is the cookie set by login.
const SessionCookie = "console_session"

// Token returns the session token of the request. It checks the
// Authorization bearer header, then the session cookie.
func Token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireSession rejects requests without an open session with 401 and
// stores the session in the context otherwise.
func RequireSession(gate *sessions.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := gate.Get(Token(r))
			if err != nil {
				log.Debug().Str("path", r.URL.Path).Msg("No console session")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "login required"})
				return
			}
			ctx := context.WithValue(r.Context(), SessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(ctx context.Context) (sessions.Session, bool) {
	s, ok := ctx.Value(SessionKey).(sessions.Session)
	return s, ok
}
