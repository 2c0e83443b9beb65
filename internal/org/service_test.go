package org

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

type fakeStore struct {
	orgs        map[uuid.UUID]*models.Organization
	memberships []models.Membership
}

func newFakeStore() *fakeStore {
	return &fakeStore{orgs: make(map[uuid.UUID]*models.Organization)}
}

func (s *fakeStore) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	o, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) CreateOrganization(ctx context.Context, o *models.Organization) error {
	cp := *o
	s.orgs[o.ID] = &cp
	return nil
}

func (s *fakeStore) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	var out []models.Organization
	for _, o := range s.orgs {
		out = append(out, *o)
	}
	return out, nil
}

func (s *fakeStore) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	for _, m := range s.memberships {
		if m.UserID == userID && m.OrganizationID == orgID {
			cp := m
			return &cp, nil
		}
	}
	return nil, ErrMembershipNotFound
}

func (s *fakeStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.Membership, error) {
	var out []models.Membership
	for _, m := range s.memberships {
		if m.OrganizationID == orgID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	var out []models.Membership
	for _, m := range s.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateMembership(ctx context.Context, m *models.Membership) error {
	for _, existing := range s.memberships {
		if existing.UserID == m.UserID && existing.OrganizationID == m.OrganizationID {
			return ErrAlreadyMember
		}
	}
	s.memberships = append(s.memberships, *m)
	return nil
}

func (s *fakeStore) DeleteMembership(ctx context.Context, userID, orgID uuid.UUID) error {
	for i, m := range s.memberships {
		if m.UserID == userID && m.OrganizationID == orgID {
			s.memberships = append(s.memberships[:i], s.memberships[i+1:]...)
			return nil
		}
	}
	return ErrMembershipNotFound
}

func addMembership(s *fakeStore, userID, orgID uuid.UUID, role models.Role, personal bool) {
	s.memberships = append(s.memberships, models.Membership{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		IsPersonalOrg:  personal,
	})
}

func TestAddMemberRejectsInvalidRole(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewFake(time.Now()))

	_, err := svc.AddMember(context.Background(), uuid.New(), uuid.New(), models.Role("superuser"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAddMemberRejectsDuplicate(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, clock.NewFake(time.Now()))
	orgID, userID := uuid.New(), uuid.New()

	_, err := svc.AddMember(context.Background(), orgID, userID, models.RoleMember)
	require.NoError(t, err)

	_, err = svc.AddMember(context.Background(), orgID, userID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestRemoveLastAdminBlocked(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, clock.NewFake(time.Now()))
	orgID := uuid.New()
	owner, member := uuid.New(), uuid.New()
	addMembership(store, owner, orgID, models.RoleOwner, false)
	addMembership(store, member, orgID, models.RoleMember, false)

	err := svc.RemoveMember(context.Background(), orgID, owner)
	assert.ErrorIs(t, err, ErrLastAdmin)

	// A plain member can be removed freely.
	assert.NoError(t, svc.RemoveMember(context.Background(), orgID, member))
}

func TestRemoveAdminWithAnotherAdminPresent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, clock.NewFake(time.Now()))
	orgID := uuid.New()
	owner, admin := uuid.New(), uuid.New()
	addMembership(store, owner, orgID, models.RoleOwner, false)
	addMembership(store, admin, orgID, models.RoleAdmin, false)

	assert.NoError(t, svc.RemoveMember(context.Background(), orgID, admin))
}

func TestLeavePersonalOrgBlocked(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, clock.NewFake(time.Now()))
	orgID, userID := uuid.New(), uuid.New()
	addMembership(store, userID, orgID, models.RoleOwner, true)

	err := svc.Leave(context.Background(), userID, orgID)
	assert.ErrorIs(t, err, ErrCannotLeavePersonalOrg)
}

func TestLeaveSharedOrg(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, clock.NewFake(time.Now()))
	orgID := uuid.New()
	owner, member := uuid.New(), uuid.New()
	addMembership(store, owner, orgID, models.RoleOwner, false)
	addMembership(store, member, orgID, models.RoleMember, false)

	require.NoError(t, svc.Leave(context.Background(), member, orgID))

	_, err := svc.GetMembership(context.Background(), member, orgID)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestRemoveUnknownMembership(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewFake(time.Now()))

	err := svc.RemoveMember(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}
