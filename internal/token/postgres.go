package token

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

// Create inserts only while the (user, organization) pair is under the
// limit. The guarded INSERT ... SELECT is a single statement, so two
// concurrent creations cannot both observe a free slot.
func (s *PostgresStore) Create(ctx context.Context, t *models.ApiToken, limit int) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO api_tokens (id, user_id, organization_id, secret_hash, name, created_at)
		 SELECT $1, $2, $3, $4, $5, $6
		 WHERE (SELECT COUNT(*) FROM api_tokens
		        WHERE user_id = $2 AND organization_id = $3) < $7`,
		t.ID, t.UserID, t.OrganizationID, t.SecretHash, t.Name, t.CreatedAt, limit,
	)
	if err != nil {
		return fmt.Errorf("create api token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &LimitReachedError{Limit: limit}
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ApiToken, error) {
	var t models.ApiToken
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, organization_id, secret_hash, name, last_used_at, created_at
		 FROM api_tokens WHERE id = $1`, id,
	).Scan(&t.ID, &t.UserID, &t.OrganizationID, &t.SecretHash, &t.Name, &t.LastUsedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api token: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) ListByUserOrg(ctx context.Context, userID, orgID uuid.UUID) ([]models.ApiToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, organization_id, secret_hash, name, last_used_at, created_at
		 FROM api_tokens WHERE user_id = $1 AND organization_id = $2 ORDER BY created_at DESC`,
		userID, orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("list api tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.ApiToken
	for rows.Next() {
		var t models.ApiToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.OrganizationID, &t.SecretHash, &t.Name, &t.LastUsedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM api_tokens WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete api token: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.Exec(ctx, "UPDATE api_tokens SET last_used_at = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("update api token last used: %w", err)
	}
	return nil
}
