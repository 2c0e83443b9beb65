package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/account"
	"github.com/capturedeck/capturedeck/internal/audit"
	"github.com/capturedeck/capturedeck/internal/auth"
	"github.com/capturedeck/capturedeck/internal/invitation"
	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/internal/org"
	"github.com/capturedeck/capturedeck/internal/passkey"
	"github.com/capturedeck/capturedeck/internal/session"
)

type AuthHandler struct {
	accounts      *account.Service
	passkeys      *passkey.Service
	sessions      *session.Service
	orgs          *org.Service
	invitations   *invitation.Service
	audits        *audit.Service
	secureCookies bool
}

func NewAuthHandler(
	accounts *account.Service,
	passkeys *passkey.Service,
	sessions *session.Service,
	orgs *org.Service,
	invitations *invitation.Service,
	audits *audit.Service,
	secureCookies bool,
) *AuthHandler {
	return &AuthHandler{
		accounts:      accounts,
		passkeys:      passkeys,
		sessions:      sessions,
		orgs:          orgs,
		invitations:   invitations,
		audits:        audits,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess *models.UserSession) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    sess.ID.String(),
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// SignupBegin starts a passkey-first signup: the account does not exist
// yet, so the ceremony binds to a pre-allocated user id.
func (h *AuthHandler) SignupBegin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if _, err := h.accounts.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, account.ErrEmailAlreadyRegistered.Error())
		return
	} else if !errors.Is(err, account.ErrUserNotFound) {
		writeServiceError(w, err)
		return
	}

	pending := &models.User{ID: uuid.New(), Email: req.Email, FullName: req.FullName}
	options, challenge, err := h.passkeys.BeginRegistration(r.Context(), pending)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":   pending.ID,
		"options":   options,
		"challenge": challenge,
	})
}

func (h *AuthHandler) SignupFinish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      uuid.UUID       `json:"user_id"`
		Email       string          `json:"email"`
		FullName    string          `json:"full_name"`
		PasskeyName string          `json:"passkey_name"`
		Challenge   string          `json:"challenge"`
		Credential  json.RawMessage `json:"credential"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Challenge == "" {
		writeError(w, http.StatusBadRequest, "invalid signup payload")
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.Credential))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed credential response")
		return
	}

	pending := &models.User{ID: req.UserID, Email: req.Email, FullName: req.FullName}
	record, err := h.passkeys.VerifyRegistration(r.Context(), pending, req.Challenge, req.PasskeyName, parsed)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	user, personalOrg, err := h.accounts.Signup(r.Context(), req.UserID, req.Email, req.FullName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.passkeys.SaveCredential(r.Context(), record); err != nil {
		writeServiceError(w, err)
		return
	}

	sess, err := h.sessions.Create(r.Context(), user.ID, nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setSessionCookie(w, sess)

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &personalOrg.ID,
		UserID:         &user.ID,
		Action:         audit.ActionSignup,
		ResourceType:   "user",
		ResourceID:     &user.ID,
		IPAddress:      r.RemoteAddr,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":         user,
		"organization": personalOrg,
		"session":      sess,
	})
}

func (h *AuthHandler) LoginBegin(w http.ResponseWriter, r *http.Request) {
	options, challenge, err := h.passkeys.BeginLogin(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"options":   options,
		"challenge": challenge,
	})
}

func (h *AuthHandler) LoginFinish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Challenge  string          `json:"challenge"`
		Credential json.RawMessage `json:"credential"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Challenge == "" {
		writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Credential))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed credential response")
		return
	}

	userID, err := h.passkeys.FinishLogin(r.Context(), req.Challenge, parsed)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	sess, err := h.sessions.Create(r.Context(), userID, nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.setSessionCookie(w, sess)

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &sess.CurrentOrganizationID,
		UserID:         &userID,
		Action:         audit.ActionLogin,
		ResourceType:   "session",
		ResourceID:     &sess.ID,
		IPAddress:      r.RemoteAddr,
	})

	writeJSON(w, http.StatusOK, map[string]any{"session": sess})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac := requireSession(w, r)
	if ac == nil {
		return
	}
	if err := h.sessions.Revoke(r.Context(), *ac.SessionID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session reports who the caller is, where they are, and where else
// they could switch to.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ac := requireSession(w, r)
	if ac == nil {
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), ac.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	memberships, err := h.orgs.ListUserMemberships(r.Context(), ac.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":                    user,
		"current_organization_id": ac.OrganizationID,
		"memberships":             memberships,
	})
}

func (h *AuthHandler) SwitchOrganization(w http.ResponseWriter, r *http.Request) {
	ac := requireSession(w, r)
	if ac == nil {
		return
	}

	var req struct {
		OrganizationID uuid.UUID `json:"organization_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.OrganizationID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "organization_id is required")
		return
	}

	if err := h.sessions.SwitchOrganization(r.Context(), *ac.SessionID, req.OrganizationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"current_organization_id": req.OrganizationID})
}

func (h *AuthHandler) RevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	ac := requireSession(w, r)
	if ac == nil {
		return
	}
	if err := h.sessions.RevokeAllForUser(r.Context(), ac.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// ValidateInvitation lets a prospective member check a code before
// committing to signup. Public, rate limited.
func (h *AuthHandler) ValidateInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code"`
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	inv, err := h.invitations.Validate(r.Context(), req.Code, req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"organization_id": inv.OrganizationID,
		"role":            inv.Role,
		"expires_at":      inv.ExpiresAt.Format(time.RFC3339),
	})
}

// Join redeems an invitation for the authenticated user; accept and
// membership creation happen in one transaction.
func (h *AuthHandler) Join(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	m, err := h.accounts.JoinWithInvitation(r.Context(), req.Code, ac.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &m.OrganizationID,
		UserID:         &ac.UserID,
		Action:         audit.ActionInvitationAccepted,
		ResourceType:   "membership",
		ResourceID:     &m.ID,
		IPAddress:      r.RemoteAddr,
	})

	writeJSON(w, http.StatusCreated, map[string]any{"membership": m})
}
