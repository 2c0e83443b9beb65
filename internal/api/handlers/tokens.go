package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/audit"
	"github.com/capturedeck/capturedeck/internal/token"
)

type TokenHandler struct {
	tokens *token.Service
	audits *audit.Service
}

func NewTokenHandler(tokens *token.Service, audits *audit.Service) *TokenHandler {
	return &TokenHandler{tokens: tokens, audits: audits}
}

// Create returns the raw credential exactly once; only its hash is kept.
func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	t, raw, err := h.tokens.Create(r.Context(), ac.UserID, ac.OrganizationID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &ac.OrganizationID,
		UserID:         &ac.UserID,
		Action:         audit.ActionTokenCreated,
		ResourceType:   "api_token",
		ResourceID:     &t.ID,
		IPAddress:      r.RemoteAddr,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":     t,
		"raw_token": raw,
	})
}

func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	tokens, err := h.tokens.List(r.Context(), ac.UserID, ac.OrganizationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens, "count": len(tokens)})
}

func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	// Only the caller's own tokens are visible for revocation.
	owned, err := h.tokens.List(r.Context(), ac.UserID, ac.OrganizationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	found := false
	for i := range owned {
		if owned[i].ID == id {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusForbidden, "token belongs to another user")
		return
	}

	if err := h.tokens.Revoke(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &ac.OrganizationID,
		UserID:         &ac.UserID,
		Action:         audit.ActionTokenRevoked,
		ResourceType:   "api_token",
		ResourceID:     &id,
		IPAddress:      r.RemoteAddr,
	})

	w.WriteHeader(http.StatusNoContent)
}
