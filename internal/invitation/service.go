package invitation

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

const codeLen = 10

// Excludes 0/O/1/I so codes survive being read aloud or retyped.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const DefaultExpiryDays = 7

type Service struct {
	store Store
	clock clock.Clock
}

func NewService(store Store, clk clock.Clock) *Service {
	return &Service{store: store, clock: clk}
}

// Create issues a single-use code granting role in the organization.
// When email is non-empty the invitation only validates for that exact
// address. Permission of invitedBy is the caller's responsibility.
func (s *Service) Create(ctx context.Context, orgID, invitedBy uuid.UUID, role models.Role, email string, expiresInDays int) (*models.Invitation, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if expiresInDays <= 0 {
		expiresInDays = DefaultExpiryDays
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate invitation code: %w", err)
	}

	now := s.clock.Now()
	inv := &models.Invitation{
		ID:              uuid.New(),
		Code:            code,
		Email:           email,
		OrganizationID:  orgID,
		InvitedByUserID: invitedBy,
		Role:            role,
		ExpiresAt:       now.AddDate(0, 0, expiresInDays),
		CreatedAt:       now,
	}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, err
	}

	slog.Info("invitation created", "invitation_id", inv.ID, "organization_id", orgID, "role", role)
	return inv, nil
}

// Validate checks a code without consuming it.
func (s *Service) Validate(ctx context.Context, code, email string) (*models.Invitation, error) {
	inv, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := CheckUsable(inv, email, s.clock.Now()); err != nil {
		return nil, err
	}
	return inv, nil
}

// Accept consumes the code. Membership creation is a separate call to
// the org service; the join flow sequences both inside one transaction.
func (s *Service) Accept(ctx context.Context, code string, userID uuid.UUID) (*models.Invitation, error) {
	inv, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := CheckUsable(inv, inv.Email, now); err != nil {
		return nil, err
	}
	if err := s.store.MarkAccepted(ctx, inv.ID, now, userID); err != nil {
		return nil, err
	}
	inv.AcceptedAt = &now
	inv.AcceptedByUserID = &userID

	slog.Info("invitation accepted", "invitation_id", inv.ID, "user_id", userID)
	return inv, nil
}

func (s *Service) ListPending(ctx context.Context, orgID uuid.UUID) ([]models.Invitation, error) {
	return s.store.ListPending(ctx, orgID, s.clock.Now())
}

// Revoke retires an open invitation by expiring it; the row survives as
// an audit record.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	return s.store.MarkExpired(ctx, id, s.clock.Now())
}

// CheckUsable applies the acceptance rules to an already-loaded
// invitation. Exported so transactional join flows can re-validate a
// row they hold locked.
func CheckUsable(inv *models.Invitation, email string, now time.Time) error {
	if inv.AcceptedAt != nil {
		return ErrAlreadyAccepted
	}
	if now.After(inv.ExpiresAt) {
		return ErrExpired
	}
	if inv.Email != "" && inv.Email != email {
		return ErrEmailMismatch
	}
	return nil
}

func generateCode() (string, error) {
	b := make([]byte, codeLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
