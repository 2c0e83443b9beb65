package passkey

import (
	"context"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/internal/signing"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

type fakeStore struct {
	byID map[uuid.UUID]*models.PasskeyCredential
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[uuid.UUID]*models.PasskeyCredential)}
}

func (s *fakeStore) Create(ctx context.Context, c *models.PasskeyCredential) error {
	cp := *c
	s.byID[c.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.PasskeyCredential, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) GetByCredentialID(ctx context.Context, credentialID []byte) (*models.PasskeyCredential, error) {
	for _, c := range s.byID {
		if string(c.CredentialID) == string(credentialID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCredentialNotFound
}

func (s *fakeStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PasskeyCredential, error) {
	var out []models.PasskeyCredential
	for _, c := range s.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateCounter(ctx context.Context, id uuid.UUID, newCount uint32, at time.Time) error {
	c, ok := s.byID[id]
	if !ok {
		return ErrCredentialNotFound
	}
	if c.SignCount >= newCount {
		return ErrReplayDetected
	}
	c.SignCount = newCount
	c.LastUsedAt = &at
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.byID, id)
	return nil
}

func newTestService(t *testing.T, store Store, clk clock.Clock) *Service {
	t.Helper()
	signer, err := signing.NewSigner("0123456789012345678901234567890X")
	require.NoError(t, err)

	svc, err := NewService(Config{
		RPID:         "localhost",
		RPName:       "Capturedeck",
		RPOrigins:    []string{"http://localhost:8080"},
		ChallengeTTL: 5 * time.Minute,
	}, store, signer, clk)
	require.NoError(t, err)
	return svc
}

func TestChallengeRoundTrip(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, newFakeStore(), clk)

	session := &webauthn.SessionData{Challenge: "abc", UserID: []byte("user")}
	token, err := svc.sealChallenge(session)
	require.NoError(t, err)

	got, err := svc.openChallenge(token)
	require.NoError(t, err)
	assert.Equal(t, session.Challenge, got.Challenge)
	assert.Equal(t, session.UserID, got.UserID)
}

func TestChallengeExpiry(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, newFakeStore(), clk)

	token, err := svc.sealChallenge(&webauthn.SessionData{Challenge: "abc"})
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	_, err = svc.openChallenge(token)
	assert.NoError(t, err)

	clk.Advance(time.Second)
	_, err = svc.openChallenge(token)
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestChallengeTamper(t *testing.T) {
	svc := newTestService(t, newFakeStore(), clock.NewFake(time.Now()))

	token, err := svc.sealChallenge(&webauthn.SessionData{Challenge: "abc"})
	require.NoError(t, err)

	_, err = svc.openChallenge(token + "x")
	assert.ErrorIs(t, err, ErrChallengeInvalid)

	_, err = svc.openChallenge("not-a-token")
	assert.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestCheckCounter(t *testing.T) {
	assert.NoError(t, checkCounter(5, 6))
	assert.NoError(t, checkCounter(0, 1))

	assert.ErrorIs(t, checkCounter(5, 5), ErrReplayDetected)
	assert.ErrorIs(t, checkCounter(5, 4), ErrReplayDetected)
	assert.ErrorIs(t, checkCounter(0, 0), ErrReplayDetected)
}

func TestUpdateCounterRejectsStaleWrite(t *testing.T) {
	store := newFakeStore()
	cred := &models.PasskeyCredential{ID: uuid.New(), UserID: uuid.New(), SignCount: 10}
	require.NoError(t, store.Create(context.Background(), cred))

	err := store.UpdateCounter(context.Background(), cred.ID, 10, time.Now())
	assert.ErrorIs(t, err, ErrReplayDetected)

	assert.NoError(t, store.UpdateCounter(context.Background(), cred.ID, 11, time.Now()))
}

func TestDeleteCredentialOwnership(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, clock.NewFake(time.Now()))

	owner := uuid.New()
	a := &models.PasskeyCredential{ID: uuid.New(), UserID: owner, CredentialID: []byte("a")}
	b := &models.PasskeyCredential{ID: uuid.New(), UserID: owner, CredentialID: []byte("b")}
	require.NoError(t, store.Create(context.Background(), a))
	require.NoError(t, store.Create(context.Background(), b))

	err := svc.DeleteCredential(context.Background(), uuid.New(), a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.NoError(t, svc.DeleteCredential(context.Background(), owner, a.ID))
}

func TestDeleteLastCredentialBlocked(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, clock.NewFake(time.Now()))

	owner := uuid.New()
	only := &models.PasskeyCredential{ID: uuid.New(), UserID: owner, CredentialID: []byte("only")}
	require.NoError(t, store.Create(context.Background(), only))

	err := svc.DeleteCredential(context.Background(), owner, only.ID)
	assert.ErrorIs(t, err, ErrLastCredential)
}

func TestDeleteUnknownCredential(t *testing.T) {
	svc := newTestService(t, newFakeStore(), clock.NewFake(time.Now()))

	err := svc.DeleteCredential(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestCredentialRecordMapping(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()

	cred := &webauthn.Credential{
		ID:              []byte("credential-id"),
		PublicKey:       []byte("public-key"),
		AttestationType: "none",
		Transport:       []protocol.AuthenticatorTransport{protocol.Internal, protocol.Hybrid},
		Flags: webauthn.CredentialFlags{
			BackupEligible: true,
			BackupState:    true,
		},
		Authenticator: webauthn.Authenticator{SignCount: 3},
	}

	rec := credentialRecord(userID, "macbook", cred, now)
	assert.Equal(t, userID, rec.UserID)
	assert.Equal(t, []byte("credential-id"), rec.CredentialID)
	assert.Equal(t, []string{"internal", "hybrid"}, rec.Transports)
	assert.Equal(t, uint32(3), rec.SignCount)
	assert.Equal(t, "multi_device", rec.DeviceType)
	assert.True(t, rec.BackedUp)
	assert.Equal(t, "macbook", rec.Name)
	assert.Equal(t, now, rec.CreatedAt)

	cred.Flags.BackupEligible = false
	rec = credentialRecord(userID, "key", cred, now)
	assert.Equal(t, "single_device", rec.DeviceType)
}
