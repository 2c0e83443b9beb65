package token

import (
	"context"
	"strings"
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
	mu     sync.Mutex
	tokens map[uuid.UUID]*models.ApiToken
}

func newFakeStore() *fakeStore {
	return &fakeStore{tokens: make(map[uuid.UUID]*models.ApiToken)}
}

func (s *fakeStore) Create(ctx context.Context, t *models.ApiToken, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, existing := range s.tokens {
		if existing.UserID == t.UserID && existing.OrganizationID == t.OrganizationID {
			n++
		}
	}
	if n >= limit {
		return &LimitReachedError{Limit: limit}
	}
	cp := *t
	s.tokens[t.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ApiToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) ListByUserOrg(ctx context.Context, userID, orgID uuid.UUID) ([]models.ApiToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ApiToken
	for _, t := range s.tokens {
		if t.UserID == userID && t.OrganizationID == orgID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
	return nil
}

func (s *fakeStore) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[id]; ok {
		t.LastUsedAt = &at
	}
	return nil
}

func newTestService(store Store) *Service {
	return NewService(store, NewBcryptHasher(), clock.NewFake(time.Now()), 2)
}

func TestCreateReturnsRawCredentialOnce(t *testing.T) {
	svc := newTestService(newFakeStore())
	userID, orgID := uuid.New(), uuid.New()

	tok, raw, err := svc.Create(context.Background(), userID, orgID, "ci")
	require.NoError(t, err)

	idPart, secret, ok := strings.Cut(raw, ":")
	require.True(t, ok)
	assert.Equal(t, tok.ID.String(), idPart)
	assert.Len(t, secret, secretLen)
	assert.NotContains(t, string(tok.SecretHash), secret)
}

func TestValidateRoundTrip(t *testing.T) {
	svc := newTestService(newFakeStore())
	userID, orgID := uuid.New(), uuid.New()

	_, raw, err := svc.Create(context.Background(), userID, orgID, "ci")
	require.NoError(t, err)

	identity, err := svc.Validate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, orgID, identity.OrganizationID)
}

func TestValidateWrongSecret(t *testing.T) {
	svc := newTestService(newFakeStore())

	tok, _, err := svc.Create(context.Background(), uuid.New(), uuid.New(), "ci")
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), tok.ID.String()+":wrongsecret")
	assert.ErrorIs(t, err, ErrSecretMismatch)
}

func TestValidateUnknownToken(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Validate(context.Background(), uuid.NewString()+":somesecret")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestValidateBadFormat(t *testing.T) {
	svc := newTestService(newFakeStore())

	for _, raw := range []string{"", "no-colon", ":secret", "id:", "not-a-uuid:secret"} {
		_, err := svc.Validate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidFormat, "raw %q", raw)
	}
}

func TestCreateEnforcesLimit(t *testing.T) {
	svc := newTestService(newFakeStore())
	userID, orgID := uuid.New(), uuid.New()

	for i := 0; i < 2; i++ {
		_, _, err := svc.Create(context.Background(), userID, orgID, "t")
		require.NoError(t, err)
	}

	_, _, err := svc.Create(context.Background(), userID, orgID, "t")
	var limitErr *LimitReachedError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 2, limitErr.Limit)

	// The limit is per (user, organization), not global.
	_, _, err = svc.Create(context.Background(), userID, uuid.New(), "t")
	assert.NoError(t, err)
}

func TestRevokeFreesLimitSlot(t *testing.T) {
	svc := newTestService(newFakeStore())
	userID, orgID := uuid.New(), uuid.New()

	tok, _, err := svc.Create(context.Background(), userID, orgID, "a")
	require.NoError(t, err)
	_, _, err = svc.Create(context.Background(), userID, orgID, "b")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), tok.ID))

	_, _, err = svc.Create(context.Background(), userID, orgID, "c")
	assert.NoError(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc := newTestService(newFakeStore())
	assert.NoError(t, svc.Revoke(context.Background(), uuid.New()))
}

func TestRevokedTokenStopsValidating(t *testing.T) {
	svc := newTestService(newFakeStore())

	tok, raw, err := svc.Create(context.Background(), uuid.New(), uuid.New(), "ci")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), tok.ID))

	_, err = svc.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
