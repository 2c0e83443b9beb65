package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/internal/task"
)

type TaskHandler struct {
	tasks *task.Service
}

func NewTaskHandler(tasks *task.Service) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	var req struct {
		Title     string     `json:"title"`
		Notes     string     `json:"notes"`
		CaptureID *uuid.UUID `json:"capture_id"`
		DueAt     *time.Time `json:"due_at"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	t, err := h.tasks.Create(r.Context(), ac.OrganizationID, ac.UserID, task.CreateParams{
		Title:     req.Title,
		Notes:     req.Notes,
		CaptureID: req.CaptureID,
		DueAt:     req.DueAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"task": t})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	t, err := h.tasks.Get(r.Context(), ac.OrganizationID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t})
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	status := models.TaskStatus(r.URL.Query().Get("status"))

	tasks, err := h.tasks.List(r.Context(), ac.OrganizationID, status, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	if err := h.tasks.UpdateStatus(r.Context(), ac.OrganizationID, id, models.TaskStatus(req.Status)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.tasks.Delete(r.Context(), ac.OrganizationID, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
