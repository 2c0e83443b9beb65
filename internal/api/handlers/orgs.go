package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/audit"
	"github.com/capturedeck/capturedeck/internal/invitation"
	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/internal/org"
)

type OrgHandler struct {
	orgs        *org.Service
	invitations *invitation.Service
	audits      *audit.Service
}

func NewOrgHandler(orgs *org.Service, invitations *invitation.Service, audits *audit.Service) *OrgHandler {
	return &OrgHandler{orgs: orgs, invitations: invitations, audits: audits}
}

// requireManager loads the actor's membership in the current org and
// checks it can manage the target role. A missing membership reads the
// same as insufficient privilege to the caller.
func (h *OrgHandler) requireManager(w http.ResponseWriter, r *http.Request, orgID, actorID uuid.UUID, target models.Role) *models.Membership {
	m, err := h.orgs.GetMembership(r.Context(), actorID, orgID)
	if err != nil {
		writeError(w, http.StatusForbidden, "insufficient role")
		return nil
	}
	if !m.Role.CanManage(target) {
		writeError(w, http.StatusForbidden, "insufficient role")
		return nil
	}
	return m
}

func (h *OrgHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}
	memberships, err := h.orgs.ListUserMemberships(r.Context(), ac.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memberships": memberships, "count": len(memberships)})
}

func (h *OrgHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	// Any member of the org may see the roster.
	if _, err := h.orgs.GetMembership(r.Context(), ac.UserID, ac.OrganizationID); err != nil {
		writeServiceError(w, err)
		return
	}

	members, err := h.orgs.ListMemberships(r.Context(), ac.OrganizationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

func (h *OrgHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID == ac.UserID {
		writeError(w, http.StatusBadRequest, "use leave to remove yourself")
		return
	}

	target, err := h.orgs.GetMembership(r.Context(), userID, ac.OrganizationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if h.requireManager(w, r, ac.OrganizationID, ac.UserID, target.Role) == nil {
		return
	}

	if err := h.orgs.RemoveMember(r.Context(), ac.OrganizationID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &ac.OrganizationID,
		UserID:         &ac.UserID,
		Action:         audit.ActionMemberRemoved,
		ResourceType:   "membership",
		ResourceID:     &target.ID,
		Details:        map[string]any{"removed_user_id": userID},
		IPAddress:      r.RemoteAddr,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrgHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	if err := h.orgs.Leave(r.Context(), ac.UserID, ac.OrganizationID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &ac.OrganizationID,
		UserID:         &ac.UserID,
		Action:         audit.ActionMemberLeft,
		ResourceType:   "membership",
		IPAddress:      r.RemoteAddr,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrgHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}

	var req struct {
		Email         string `json:"email"`
		Role          string `json:"role"`
		ExpiresInDays int    `json:"expires_in_days"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}

	role := models.Role(req.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, org.ErrInvalidRole.Error())
		return
	}
	if h.requireManager(w, r, ac.OrganizationID, ac.UserID, role) == nil {
		return
	}

	inv, err := h.invitations.Create(r.Context(), ac.OrganizationID, ac.UserID, role, req.Email, req.ExpiresInDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &ac.OrganizationID,
		UserID:         &ac.UserID,
		Action:         audit.ActionInvitationCreated,
		ResourceType:   "invitation",
		ResourceID:     &inv.ID,
		Details:        map[string]any{"role": role},
		IPAddress:      r.RemoteAddr,
	})

	writeJSON(w, http.StatusCreated, map[string]any{"invitation": inv})
}

func (h *OrgHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}
	if h.requireManager(w, r, ac.OrganizationID, ac.UserID, models.RoleMember) == nil {
		return
	}

	invitations, err := h.invitations.ListPending(r.Context(), ac.OrganizationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": invitations, "count": len(invitations)})
}

func (h *OrgHandler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	ac := mustAuth(w, r)
	if ac == nil {
		return
	}
	if h.requireManager(w, r, ac.OrganizationID, ac.UserID, models.RoleMember) == nil {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	if err := h.invitations.Revoke(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audits.Record(r.Context(), audit.Entry{
		OrganizationID: &ac.OrganizationID,
		UserID:         &ac.UserID,
		Action:         audit.ActionInvitationRevoked,
		ResourceType:   "invitation",
		ResourceID:     &id,
		IPAddress:      r.RemoteAddr,
	})

	w.WriteHeader(http.StatusNoContent)
}
