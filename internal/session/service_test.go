package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.UserSession
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[uuid.UUID]*models.UserSession)}
}

func (s *fakeStore) Create(ctx context.Context, sess *models.UserSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.UserSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *fakeStore) UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.LastActiveAt = at
	}
	return nil
}

func (s *fakeStore) UpdateOrganization(ctx context.Context, id, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.CurrentOrganizationID = orgID
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *fakeStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *fakeStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeMemberships struct {
	byUser map[uuid.UUID][]models.Membership
}

func (f *fakeMemberships) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	for _, m := range f.byUser[userID] {
		if m.OrganizationID == orgID {
			cp := m
			return &cp, nil
		}
	}
	return nil, ErrNotAMember
}

func (f *fakeMemberships) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	return f.byUser[userID], nil
}

func membership(userID, orgID uuid.UUID, personal bool) models.Membership {
	return models.Membership{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           models.RoleOwner,
		IsPersonalOrg:  personal,
	}
}

func newTestService(store Store, memberships MembershipReader, clk clock.Clock) *Service {
	return NewService(store, memberships, clk, 168*time.Hour, 24*time.Hour)
}

func TestCreateDefaultsToPersonalOrg(t *testing.T) {
	userID := uuid.New()
	sharedOrg, personalOrg := uuid.New(), uuid.New()
	members := &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{
		userID: {
			membership(userID, sharedOrg, false),
			membership(userID, personalOrg, true),
		},
	}}
	svc := newTestService(newFakeStore(), members, clock.NewFake(time.Now()))

	sess, err := svc.Create(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, personalOrg, sess.CurrentOrganizationID)
}

func TestCreateFallsBackToFirstMembership(t *testing.T) {
	userID := uuid.New()
	orgA, orgB := uuid.New(), uuid.New()
	members := &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{
		userID: {
			membership(userID, orgA, false),
			membership(userID, orgB, false),
		},
	}}
	svc := newTestService(newFakeStore(), members, clock.NewFake(time.Now()))

	sess, err := svc.Create(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Equal(t, orgA, sess.CurrentOrganizationID)
}

func TestCreateRejectsNonMemberOrg(t *testing.T) {
	userID := uuid.New()
	members := &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{
		userID: {membership(userID, uuid.New(), true)},
	}}
	svc := newTestService(newFakeStore(), members, clock.NewFake(time.Now()))

	foreign := uuid.New()
	_, err := svc.Create(context.Background(), userID, &foreign)
	assert.ErrorIs(t, err, ErrNotAMember)
}

func TestCreateWithoutMemberships(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{}}, clock.NewFake(time.Now()))

	_, err := svc.Create(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNoMemberships)
}

func TestValidateExpiryBoundary(t *testing.T) {
	userID := uuid.New()
	members := &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{
		userID: {membership(userID, uuid.New(), true)},
	}}
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(newFakeStore(), members, clk)

	sess, err := svc.Create(context.Background(), userID, nil)
	require.NoError(t, err)

	clk.Advance(168*time.Hour - time.Millisecond)
	got, err := svc.Validate(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	// Exactly at expiry the session is dead.
	clk.Advance(time.Millisecond)
	got, err = svc.Validate(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestValidateUnknownSessionIsNil(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{}}, clock.NewFake(time.Now()))

	got, err := svc.Validate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRefreshThreshold(t *testing.T) {
	userID := uuid.New()
	members := &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{
		userID: {membership(userID, uuid.New(), true)},
	}}
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	store := newFakeStore()
	svc := newTestService(store, members, clk)

	sess, err := svc.Create(context.Background(), userID, nil)
	require.NoError(t, err)

	// One hour of inactivity: below the threshold, no write.
	clk.Advance(time.Hour)
	wrote, err := svc.Refresh(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, wrote)

	// Two days: past the threshold, the window slides.
	clk.Advance(48 * time.Hour)
	wrote, err = svc.Refresh(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, wrote)

	stored, err := store.GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, clk.Current, stored.LastActiveAt)
}

func TestSwitchOrganization(t *testing.T) {
	userID := uuid.New()
	orgA, orgB := uuid.New(), uuid.New()
	members := &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{
		userID: {
			membership(userID, orgA, true),
			membership(userID, orgB, false),
		},
	}}
	store := newFakeStore()
	svc := newTestService(store, members, clock.NewFake(time.Now()))

	sess, err := svc.Create(context.Background(), userID, nil)
	require.NoError(t, err)

	require.NoError(t, svc.SwitchOrganization(context.Background(), sess.ID, orgB))
	stored, err := store.GetByID(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, orgB, stored.CurrentOrganizationID)

	err = svc.SwitchOrganization(context.Background(), sess.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotAMember)

	err = svc.SwitchOrganization(context.Background(), uuid.New(), orgB)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRevokeAllForUser(t *testing.T) {
	userID := uuid.New()
	members := &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{
		userID: {membership(userID, uuid.New(), true)},
	}}
	svc := newTestService(newFakeStore(), members, clock.NewFake(time.Now()))

	a, err := svc.Create(context.Background(), userID, nil)
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), userID, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllForUser(context.Background(), userID))

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		got, err := svc.Validate(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestCleanupExpired(t *testing.T) {
	userID := uuid.New()
	members := &fakeMemberships{byUser: map[uuid.UUID][]models.Membership{
		userID: {membership(userID, uuid.New(), true)},
	}}
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(newFakeStore(), members, clk)

	old, err := svc.Create(context.Background(), userID, nil)
	require.NoError(t, err)

	clk.Advance(200 * time.Hour)
	fresh, err := svc.Create(context.Background(), userID, nil)
	require.NoError(t, err)

	n, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.Validate(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = svc.Validate(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
