package org

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

type Service struct {
	store Store
	clock clock.Clock
}

func NewService(store Store, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return s.store.GetOrganization(ctx, id)
}

func (s *Service) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	return s.store.ListOrganizations(ctx)
}

func (s *Service) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	return s.store.GetMembership(ctx, userID, orgID)
}

func (s *Service) ListMemberships(ctx context.Context, orgID uuid.UUID) ([]models.Membership, error) {
	return s.store.ListByOrganization(ctx, orgID)
}

func (s *Service) ListUserMemberships(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) AddMember(ctx context.Context, orgID, userID uuid.UUID, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	m := &models.Membership{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		JoinedAt:       s.clock.Now(),
	}
	if err := s.store.CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveMember removes another user's membership. Self-removal goes
// through Leave so a user may always opt out where removal by a peer
// would be privileged.
func (s *Service) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	return s.remove(ctx, orgID, userID)
}

// Leave removes the caller's own membership, with the same structural
// guards as RemoveMember but no actor permission implied.
func (s *Service) Leave(ctx context.Context, userID, orgID uuid.UUID) error {
	return s.remove(ctx, orgID, userID)
}

func (s *Service) remove(ctx context.Context, orgID, userID uuid.UUID) error {
	m, err := s.store.GetMembership(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if m.IsPersonalOrg {
		return ErrCannotLeavePersonalOrg
	}
	if m.Role.AtLeast(models.RoleAdmin) {
		admins, err := s.countAdmins(ctx, orgID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	return s.store.DeleteMembership(ctx, userID, orgID)
}

func (s *Service) countAdmins(ctx context.Context, orgID uuid.UUID) (int, error) {
	members, err := s.store.ListByOrganization(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("list memberships: %w", err)
	}
	n := 0
	for i := range members {
		if members[i].Role.AtLeast(models.RoleAdmin) {
			n++
		}
	}
	return n, nil
}
