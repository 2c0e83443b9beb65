package token

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
)

// Store is the persistence contract for API tokens. Create must enforce
// the per-(user, organization) limit atomically so concurrent creations
// cannot admit limit+1 tokens.
type Store interface {
	Create(ctx context.Context, t *models.ApiToken, limit int) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ApiToken, error)
	ListByUserOrg(ctx context.Context, userID, orgID uuid.UUID) ([]models.ApiToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}
