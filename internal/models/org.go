package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleMember
}

// rank places roles in a total order: owner > admin > member.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// CanManage reports whether a holder of r may act on a holder of target.
// Owners manage anyone, admins manage only members, members manage no one.
func (r Role) CanManage(target Role) bool {
	if r == RoleOwner {
		return true
	}
	if r == RoleAdmin {
		return target.rank() < RoleAdmin.rank()
	}
	return false
}

// AtLeast reports whether r sits at or above other in the role order.
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

type Organization struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Membership struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Role           Role      `json:"role" db:"role"`
	IsPersonalOrg  bool      `json:"is_personal_org" db:"is_personal_org"`
	JoinedAt       time.Time `json:"joined_at" db:"joined_at"`
}

type Invitation struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Code             string     `json:"code" db:"code"`
	Email            string     `json:"email,omitempty" db:"email"`
	OrganizationID   uuid.UUID  `json:"organization_id" db:"organization_id"`
	InvitedByUserID  uuid.UUID  `json:"invited_by_user_id" db:"invited_by_user_id"`
	Role             Role       `json:"role" db:"role"`
	ExpiresAt        time.Time  `json:"expires_at" db:"expires_at"`
	AcceptedAt       *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	AcceptedByUserID *uuid.UUID `json:"accepted_by_user_id,omitempty" db:"accepted_by_user_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}
