package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
)

type Store interface {
	Create(ctx context.Context, sess *models.UserSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserSession, error)
	UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateOrganization(ctx context.Context, id, orgID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// MembershipReader is the slice of the org store the session service
// needs; satisfied by org.Store.
type MembershipReader interface {
	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error)
}
