package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/account"
	"github.com/capturedeck/capturedeck/internal/audit"
	"github.com/capturedeck/capturedeck/internal/passkey"
)

type PasskeyHandler struct {
	passkeys *passkey.Service
	accounts *account.Service
	audits   *audit.Service
}

func NewPasskeyHandler(passkeys *passkey.Service, accounts *account.Service, audits *audit.Service) *PasskeyHandler {
	return &PasskeyHandler{passkeys: passkeys, accounts: accounts, audits: audits}
}

func (h *PasskeyHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	creds, err := h.passkeys.ListCredentials(r.Context(), ac.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"passkeys": creds, "count": len(creds)})
}

// AddBegin starts registration of an additional credential for the
// authenticated account.
func (h *PasskeyHandler) AddBegin(w http.ResponseWriter, r *http.Request) {
	ac := requireSession(w, r)
	if ac == nil {
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), ac.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	options, challenge, err := h.passkeys.BeginRegistration(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": options, "challenge": challenge})
}

func (h *PasskeyHandler) AddFinish(w http.ResponseWriter, r *http.Request) {
	ac := requireSession(w, r)
	if ac == nil {
		return
	}

	var req struct {
		Name       string          `json:"name"`
		Challenge  string          `json:"challenge"`
		Credential json.RawMessage `json:"credential"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Challenge == "" {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.Credential))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed credential response")
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), ac.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	record, err := h.passkeys.FinishRegistration(r.Context(), user, req.Challenge, req.Name, parsed)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &ac.OrganizationID,
		UserID:         &ac.UserID,
		Action:         audit.ActionPasskeyRegistered,
		ResourceType:   "passkey_credential",
		ResourceID:     &record.ID,
		IPAddress:      r.RemoteAddr,
	})

	writeJSON(w, http.StatusCreated, map[string]any{"passkey": record})
}

func (h *PasskeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac := requireSession(w, r)
	if ac == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return
	}

	if err := h.passkeys.DeleteCredential(r.Context(), ac.UserID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &ac.OrganizationID,
		UserID:         &ac.UserID,
		Action:         audit.ActionPasskeyDeleted,
		ResourceType:   "passkey_credential",
		ResourceID:     &id,
		IPAddress:      r.RemoteAddr,
	})

	w.WriteHeader(http.StatusNoContent)
}
