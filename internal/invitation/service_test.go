package invitation

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
	byID map[uuid.UUID]*models.Invitation
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[uuid.UUID]*models.Invitation)}
}

func (s *fakeStore) Create(ctx context.Context, inv *models.Invitation) error {
	cp := *inv
	s.byID[inv.ID] = &cp
	return nil
}

func (s *fakeStore) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	for _, inv := range s.byID {
		if inv.Code == code {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time, byUserID uuid.UUID) error {
	inv, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if inv.AcceptedAt != nil {
		return ErrAlreadyAccepted
	}
	inv.AcceptedAt = &at
	inv.AcceptedByUserID = &byUserID
	return nil
}

func (s *fakeStore) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) error {
	inv, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	inv.ExpiresAt = at
	return nil
}

func (s *fakeStore) ListPending(ctx context.Context, orgID uuid.UUID, now time.Time) ([]models.Invitation, error) {
	var out []models.Invitation
	for _, inv := range s.byID {
		if inv.OrganizationID == orgID && inv.AcceptedAt == nil && now.Before(inv.ExpiresAt) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func TestCreateGeneratesReadableCode(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewFake(time.Now()))

	inv, err := svc.Create(context.Background(), uuid.New(), uuid.New(), models.RoleMember, "", 0)
	require.NoError(t, err)

	assert.Len(t, inv.Code, codeLen)
	for _, c := range inv.Code {
		assert.Contains(t, codeAlphabet, string(c))
	}
}

func TestCreateRejectsInvalidRole(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewFake(time.Now()))

	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), models.Role("root"), "", 0)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestValidateOpenInvitation(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := NewService(newFakeStore(), clk)

	inv, err := svc.Create(context.Background(), uuid.New(), uuid.New(), models.RoleMember, "", 0)
	require.NoError(t, err)

	got, err := svc.Validate(context.Background(), inv.Code, "anyone@example.com")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
}

func TestValidateEmailRestriction(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewFake(time.Now()))

	inv, err := svc.Create(context.Background(), uuid.New(), uuid.New(), models.RoleMember, "alice@example.com", 0)
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), inv.Code, "bob@example.com")
	assert.ErrorIs(t, err, ErrEmailMismatch)

	_, err = svc.Validate(context.Background(), inv.Code, "alice@example.com")
	assert.NoError(t, err)
}

func TestValidateExpired(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := NewService(newFakeStore(), clk)

	inv, err := svc.Create(context.Background(), uuid.New(), uuid.New(), models.RoleMember, "", 7)
	require.NoError(t, err)

	clk.Advance(8 * 24 * time.Hour)
	_, err = svc.Validate(context.Background(), inv.Code, "")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestAcceptIsSingleUse(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewFake(time.Now()))

	inv, err := svc.Create(context.Background(), uuid.New(), uuid.New(), models.RoleMember, "", 0)
	require.NoError(t, err)

	userID := uuid.New()
	accepted, err := svc.Accept(context.Background(), inv.Code, userID)
	require.NoError(t, err)
	require.NotNil(t, accepted.AcceptedAt)
	assert.Equal(t, userID, *accepted.AcceptedByUserID)

	_, err = svc.Accept(context.Background(), inv.Code, uuid.New())
	assert.ErrorIs(t, err, ErrAlreadyAccepted)
}

func TestAcceptUnknownCode(t *testing.T) {
	svc := NewService(newFakeStore(), clock.NewFake(time.Now()))

	_, err := svc.Accept(context.Background(), "NOSUCHCODE", uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeRemovesFromPending(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := NewService(newFakeStore(), clk)
	orgID := uuid.New()

	inv, err := svc.Create(context.Background(), orgID, uuid.New(), models.RoleMember, "", 0)
	require.NoError(t, err)

	pending, err := svc.ListPending(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, svc.Revoke(context.Background(), inv.ID))

	pending, err = svc.ListPending(context.Background(), orgID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	clk.Advance(time.Second)
	_, err = svc.Validate(context.Background(), inv.Code, "")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCheckUsable(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	base := models.Invitation{ExpiresAt: now.Add(24 * time.Hour)}

	assert.NoError(t, CheckUsable(&base, "", now))

	accepted := base
	acceptedAt := now
	accepted.AcceptedAt = &acceptedAt
	assert.ErrorIs(t, CheckUsable(&accepted, "", now), ErrAlreadyAccepted)

	assert.ErrorIs(t, CheckUsable(&base, "", now.Add(25*time.Hour)), ErrExpired)

	restricted := base
	restricted.Email = "alice@example.com"
	assert.ErrorIs(t, CheckUsable(&restricted, "bob@example.com", now), ErrEmailMismatch)
	assert.NoError(t, CheckUsable(&restricted, "alice@example.com", now))
}
