package token

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

const secretLen = 32

const secretCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Bounds concurrent last-used updates so validation bursts cannot spawn
// unbounded goroutines.
var lastUsedSem = make(chan struct{}, 10)

// Identity is the validated outcome of a credential check.
type Identity struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
}

type Service struct {
	store  Store
	hasher Hasher
	clock  clock.Clock
	limit  int
}

func NewService(store Store, hasher Hasher, clk clock.Clock, limit int) *Service {
	return &Service{store: store, hasher: hasher, clock: clk, limit: limit}
}

// Create mints a new token and returns it alongside the raw "id:secret"
// credential. The secret is never stored or retrievable again.
func (s *Service) Create(ctx context.Context, userID, orgID uuid.UUID, name string) (*models.ApiToken, string, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, "", fmt.Errorf("generate token secret: %w", err)
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, "", fmt.Errorf("hash token secret: %w", err)
	}

	t := &models.ApiToken{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: orgID,
		SecretHash:     hash,
		Name:           name,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.store.Create(ctx, t, s.limit); err != nil {
		return nil, "", err
	}

	slog.Info("api token created", "token_id", t.ID, "user_id", userID, "organization_id", orgID)
	return t, t.ID.String() + ":" + secret, nil
}

// Validate checks a raw "id:secret" credential and resolves the identity
// it authenticates. The last-used timestamp is updated off the success
// path, best effort.
func (s *Service) Validate(ctx context.Context, raw string) (*Identity, error) {
	idPart, secret, ok := strings.Cut(raw, ":")
	if !ok || idPart == "" || secret == "" {
		return nil, ErrInvalidFormat
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		// Equalize timing with the hash comparison a hit would perform.
		_ = s.hasher.Compare(dummyBcryptHash, secret)
		return nil, err
	}

	if err := s.hasher.Compare(t.SecretHash, secret); err != nil {
		return nil, ErrSecretMismatch
	}

	s.touchLastUsed(ctx, t.ID)

	return &Identity{UserID: t.UserID, OrganizationID: t.OrganizationID}, nil
}

func (s *Service) List(ctx context.Context, userID, orgID uuid.UUID) ([]models.ApiToken, error) {
	return s.store.ListByUserOrg(ctx, userID, orgID)
}

// Revoke is idempotent: deleting an absent token is success.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) touchLastUsed(ctx context.Context, id uuid.UUID) {
	now := s.clock.Now()
	select {
	case lastUsedSem <- struct{}{}:
		go func() {
			defer func() { <-lastUsedSem }()
			bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := s.store.UpdateLastUsed(bgCtx, id, now); err != nil {
				slog.Warn("failed to update token last used", "error", err, "token_id", id)
			}
		}()
	default:
		slog.Debug("skipping token last used update under load", "token_id", id)
	}
}

func generateSecret() (string, error) {
	b := make([]byte, secretLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(secretCharset))))
		if err != nil {
			return "", err
		}
		b[i] = secretCharset[n.Int64()]
	}
	return string(b), nil
}
