package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capturedeck/capturedeck/internal/account"
	"github.com/capturedeck/capturedeck/internal/auth"
	"github.com/capturedeck/capturedeck/internal/capture"
	"github.com/capturedeck/capturedeck/internal/invitation"
	"github.com/capturedeck/capturedeck/internal/org"
	"github.com/capturedeck/capturedeck/internal/passkey"
	"github.com/capturedeck/capturedeck/internal/session"
	"github.com/capturedeck/capturedeck/internal/task"
	"github.com/capturedeck/capturedeck/internal/token"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dest any) error {
	return json.NewDecoder(r.Body).Decode(dest)
}

// writeServiceError maps domain errors onto transport statuses:
// credential failures are 401, authorization failures 403, absence 404,
// caller-correctable conflicts 409, anything else is an opaque 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var limitErr *token.LimitReachedError

	switch {
	case errors.Is(err, token.ErrInvalidFormat),
		errors.Is(err, token.ErrTokenNotFound),
		errors.Is(err, token.ErrSecretMismatch),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, passkey.ErrChallengeInvalid),
		errors.Is(err, passkey.ErrChallengeExpired),
		errors.Is(err, passkey.ErrReplayDetected):
		writeError(w, http.StatusUnauthorized, "unauthenticated")

	case errors.Is(err, session.ErrNotAMember),
		errors.Is(err, session.ErrNoMemberships),
		errors.Is(err, org.ErrLastAdmin),
		errors.Is(err, org.ErrCannotLeavePersonalOrg),
		errors.Is(err, passkey.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.As(err, &limitErr),
		errors.Is(err, account.ErrEmailAlreadyRegistered),
		errors.Is(err, invitation.ErrAlreadyAccepted),
		errors.Is(err, passkey.ErrLastCredential),
		errors.Is(err, org.ErrAlreadyMember):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, invitation.ErrExpired),
		errors.Is(err, invitation.ErrEmailMismatch),
		errors.Is(err, org.ErrInvalidRole),
		errors.Is(err, invitation.ErrInvalidRole),
		errors.Is(err, task.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, invitation.ErrNotFound),
		errors.Is(err, passkey.ErrCredentialNotFound),
		errors.Is(err, org.ErrMembershipNotFound),
		errors.Is(err, org.ErrOrganizationNotFound),
		errors.Is(err, account.ErrUserNotFound),
		errors.Is(err, capture.ErrNotFound),
		errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// requireSession enforces that the request authenticated with a browser
// session rather than an API token.
func requireSession(w http.ResponseWriter, r *http.Request) *auth.Context {
	ac := auth.FromContext(r.Context())
	if ac == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil
	}
	if !ac.HasSession() {
		writeError(w, http.StatusForbidden, "this operation requires a session, not an API token")
		return nil
	}
	return ac
}

func mustAuth(w http.ResponseWriter, r *http.Request) *auth.Context {
	ac := auth.FromContext(r.Context())
	if ac == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return ac
}
