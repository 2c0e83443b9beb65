package org

import (
	"context"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
)

// Store is the persistence contract for organizations and memberships.
type Store interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	CreateOrganization(ctx context.Context, o *models.Organization) error
	ListOrganizations(ctx context.Context) ([]models.Organization, error)

	GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.Membership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error)
	CreateMembership(ctx context.Context, m *models.Membership) error
	DeleteMembership(ctx context.Context, userID, orgID uuid.UUID) error
}
