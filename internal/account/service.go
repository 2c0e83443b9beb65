// Package account owns the user lifecycle: signup creates the user, a
// personal organization, and the owner membership in one transaction;
// joining via invitation consumes the code and creates the membership
// in one transaction so a crash cannot leave an accepted-but-unjoined
// invitation behind.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capturedeck/capturedeck/internal/invitation"
	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/internal/org"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

var (
	ErrEmailAlreadyRegistered = errors.New("email is already registered")
	ErrUserNotFound           = errors.New("user not found")
)

type Service struct {
	db    *pgxpool.Pool
	clock clock.Clock
}

func NewService(db *pgxpool.Pool, clk clock.Clock) *Service {
	return &Service{db: db, clock: clk}
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		"SELECT id, email, full_name, created_at FROM users WHERE id = $1", id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		"SELECT id, email, full_name, created_at FROM users WHERE email = $1", email,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// Signup creates the user together with their personal organization and
// owner membership. The caller supplies the user id so a passkey
// ceremony begun before the account existed can bind to it.
func (s *Service) Signup(ctx context.Context, userID uuid.UUID, email, fullName string) (*models.User, *models.Organization, error) {
	now := s.clock.Now()

	user := &models.User{ID: userID, Email: email, FullName: fullName, CreatedAt: now}
	orgName := fullName
	if orgName == "" {
		orgName = email
	}
	personalOrg := &models.Organization{ID: uuid.New(), Name: orgName + "'s Workspace", CreatedAt: now}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin signup tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO users (id, email, full_name, created_at) VALUES ($1, $2, $3, $4)",
		user.ID, user.Email, user.FullName, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, nil, ErrEmailAlreadyRegistered
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	orgStore := org.NewPostgresStore(tx)
	if err := orgStore.CreateOrganization(ctx, personalOrg); err != nil {
		return nil, nil, err
	}
	if err := orgStore.CreateMembership(ctx, &models.Membership{
		ID:             uuid.New(),
		UserID:         user.ID,
		OrganizationID: personalOrg.ID,
		Role:           models.RoleOwner,
		IsPersonalOrg:  true,
		JoinedAt:       now,
	}); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit signup tx: %w", err)
	}

	slog.Info("user signed up", "user_id", user.ID, "organization_id", personalOrg.ID)
	return user, personalOrg, nil
}

// JoinWithInvitation accepts the code and creates the membership in a
// single transaction.
func (s *Service) JoinWithInvitation(ctx context.Context, code string, userID uuid.UUID) (*models.Membership, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin join tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := s.clock.Now()
	invStore := invitation.NewPostgresStore(tx)
	inv, err := invStore.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := invitation.CheckUsable(inv, user.Email, now); err != nil {
		return nil, err
	}
	if err := invStore.MarkAccepted(ctx, inv.ID, now, userID); err != nil {
		return nil, err
	}

	m := &models.Membership{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: inv.OrganizationID,
		Role:           inv.Role,
		JoinedAt:       now,
	}
	if err := org.NewPostgresStore(tx).CreateMembership(ctx, m); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit join tx: %w", err)
	}

	slog.Info("invitation redeemed", "invitation_id", inv.ID, "user_id", userID, "organization_id", inv.OrganizationID)
	return m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
