package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/capturedeck/capturedeck/internal/database"
	"github.com/capturedeck/capturedeck/internal/models"
)

type PostgresStore struct {
	db database.Querier
}

func NewPostgresStore(db database.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx returns a store bound to the given transaction.
func (s *PostgresStore) WithTx(tx pgx.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) Create(ctx context.Context, inv *models.Invitation) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO invitations (id, code, email, organization_id, invited_by_user_id, role, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.Code, inv.Email, inv.OrganizationID, inv.InvitedByUserID, inv.Role, inv.ExpiresAt, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.db.QueryRow(ctx,
		`SELECT id, code, email, organization_id, invited_by_user_id, role, expires_at, accepted_at, accepted_by_user_id, created_at
		 FROM invitations WHERE code = $1`, code,
	).Scan(&inv.ID, &inv.Code, &inv.Email, &inv.OrganizationID, &inv.InvitedByUserID,
		&inv.Role, &inv.ExpiresAt, &inv.AcceptedAt, &inv.AcceptedByUserID, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return &inv, nil
}

// MarkAccepted is conditional on the row still being open, so a
// concurrent second accept matches zero rows and fails.
func (s *PostgresStore) MarkAccepted(ctx context.Context, id uuid.UUID, at time.Time, byUserID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE invitations SET accepted_at = $1, accepted_by_user_id = $2
		 WHERE id = $3 AND accepted_at IS NULL`,
		at, byUserID, id,
	)
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyAccepted
	}
	return nil
}

func (s *PostgresStore) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.Exec(ctx,
		"UPDATE invitations SET expires_at = $1 WHERE id = $2 AND accepted_at IS NULL", at, id)
	if err != nil {
		return fmt.Errorf("mark invitation expired: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context, orgID uuid.UUID, now time.Time) ([]models.Invitation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, code, email, organization_id, invited_by_user_id, role, expires_at, accepted_at, accepted_by_user_id, created_at
		 FROM invitations
		 WHERE organization_id = $1 AND accepted_at IS NULL AND expires_at > $2
		 ORDER BY created_at DESC`,
		orgID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending invitations: %w", err)
	}
	defer rows.Close()

	var invs []models.Invitation
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(&inv.ID, &inv.Code, &inv.Email, &inv.OrganizationID, &inv.InvitedByUserID,
			&inv.Role, &inv.ExpiresAt, &inv.AcceptedAt, &inv.AcceptedByUserID, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}
