package invitation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
)

// Store is the persistence contract for invitations. Rows are never
// deleted; they stay behind as an audit trail.
type Store interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByCode(ctx context.Context, code string) (*models.Invitation, error)
	// MarkAccepted sets acceptedAt/acceptedBy only while the invitation
	// is still open; a second accept must fail ErrAlreadyAccepted.
	MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time, byUserID uuid.UUID) error
	MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) error
	ListPending(ctx context.Context, orgID uuid.UUID, now time.Time) ([]models.Invitation, error)
}
