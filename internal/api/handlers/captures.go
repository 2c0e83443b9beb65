package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/capture"
)

type CaptureHandler struct {
	captures *capture.Service
}

func NewCaptureHandler(captures *capture.Service) *CaptureHandler {
	return &CaptureHandler{captures: captures}
}

func (h *CaptureHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Body == "" {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}

	c, err := h.captures.Create(r.Context(), ac.OrganizationID, ac.UserID, req.Body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"capture": c})
}

func (h *CaptureHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid capture id")
		return
	}

	c, err := h.captures.Get(r.Context(), ac.OrganizationID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"capture": c})
}

func (h *CaptureHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	captures, err := h.captures.List(r.Context(), ac.OrganizationID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"captures": captures, "count": len(captures)})
}

func (h *CaptureHandler) MarkProcessed(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid capture id")
		return
	}

	if err := h.captures.MarkProcessed(r.Context(), ac.OrganizationID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CaptureHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid capture id")
		return
	}

	if err := h.captures.Delete(r.Context(), ac.OrganizationID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
