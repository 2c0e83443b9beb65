package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/session"
	"github.com/capturedeck/capturedeck/internal/token"
)

const SessionCookieName = "cd_session"

// strategy is decided once per request from what the client presented.
// A failed bearer token never falls back to the cookie: mixing
// credential failures produces ambiguous errors.
type strategy int

const (
	strategyNone strategy = iota
	strategyToken
	strategySession
)

type Middleware struct {
	tokens   *token.Service
	sessions *session.Service
}

func NewMiddleware(tokens *token.Service, sessions *session.Service) *Middleware {
	return &Middleware{tokens: tokens, sessions: sessions}
}

func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch decide(r) {
		case strategyToken:
			m.viaToken(w, r, next)
		case strategySession:
			m.viaSession(w, r, next)
		default:
			writeError(w, http.StatusUnauthorized, "authentication required")
		}
	})
}

func decide(r *http.Request) strategy {
	if bearerToken(r) != "" {
		return strategyToken
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return strategySession
	}
	return strategyNone
}

func (m *Middleware) viaToken(w http.ResponseWriter, r *http.Request, next http.Handler) {
	identity, err := m.tokens.Validate(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid API token")
		return
	}
	ac := &Context{UserID: identity.UserID, OrganizationID: identity.OrganizationID}
	next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
}

func (m *Middleware) viaSession(w http.ResponseWriter, r *http.Request, next http.Handler) {
	c, _ := r.Cookie(SessionCookieName)
	id, err := uuid.Parse(c.Value)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	sess, err := m.sessions.Validate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "session expired or revoked")
		return
	}

	// Sliding-window renewal; a no-op until the threshold elapses.
	if _, err := m.sessions.Refresh(r.Context(), sess.ID); err != nil {
		slog.Warn("session refresh failed", "error", err, "session_id", sess.ID)
	}

	sid := sess.ID
	ac := &Context{UserID: sess.UserID, OrganizationID: sess.CurrentOrganizationID, SessionID: &sid}
	next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
