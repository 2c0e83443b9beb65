package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/adminauth"
	"github.com/capturedeck/capturedeck/internal/audit"
	"github.com/capturedeck/capturedeck/internal/org"
	"github.com/capturedeck/capturedeck/internal/queue"
)

// AdminCookieName carries the signed admin session token.
const AdminCookieName = "cd_admin"

type AdminHandler struct {
	admin         *adminauth.Service
	orgs          *org.Service
	audits        *audit.Service
	queue         *queue.Client
	secureCookies bool
}

func NewAdminHandler(admin *adminauth.Service, orgs *org.Service, audits *audit.Service, q *queue.Client, secureCookies bool) *AdminHandler {
	return &AdminHandler{admin: admin, orgs: orgs, audits: audits, queue: q, secureCookies: secureCookies}
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	token, err := h.admin.Login(req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})

	h.audits.Record(r.Context(), audit.Entry{
		Action:       audit.ActionAdminLogin,
		ResourceType: "admin_session",
		IPAddress:    r.RemoteAddr,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Logout clears the cookie. The token itself stays valid until its TTL;
// the admin session is stateless and carries no server-side record.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Require gates admin routes on a valid, unexpired admin cookie.
func (h *AdminHandler) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AdminCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "admin authentication required")
			return
		}
		if _, err := h.admin.VerifySession(cookie.Value); err != nil {
			writeError(w, http.StatusUnauthorized, "admin session invalid or expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.ListOrganizations(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs, "count": len(orgs)})
}

func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := audit.Query{Action: r.URL.Query().Get("action")}
	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	if raw := r.URL.Query().Get("organization_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid organization_id")
			return
		}
		q.OrganizationID = &id
	}
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start time")
			return
		}
		q.StartDate = &t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end time")
			return
		}
		q.EndDate = &t
	}

	logs, err := h.audits.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

// TriggerSessionCleanup enqueues an immediate sweep instead of waiting
// for the scheduled one.
func (h *AdminHandler) TriggerSessionCleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.EnqueueSessionCleanup(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue cleanup")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "enqueued"})
}
