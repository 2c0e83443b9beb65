package passkey

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
)

type Store interface {
	Create(ctx context.Context, c *models.PasskeyCredential) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PasskeyCredential, error)
	GetByCredentialID(ctx context.Context, credentialID []byte) (*models.PasskeyCredential, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PasskeyCredential, error)
	// UpdateCounter persists a strictly larger signature counter. The
	// write must be conditional on the stored counter still being
	// smaller, so a stale concurrent assertion cannot reuse a value.
	UpdateCounter(ctx context.Context, id uuid.UUID, newCount uint32, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}
