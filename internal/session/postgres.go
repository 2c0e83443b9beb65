package session

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

func (s *PostgresStore) Create(ctx context.Context, sess *models.UserSession) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO user_sessions (id, user_id, current_organization_id, created_at, expires_at, last_active_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.UserID, sess.CurrentOrganizationID, sess.CreatedAt, sess.ExpiresAt, sess.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.UserSession, error) {
	var sess models.UserSession
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, current_organization_id, created_at, expires_at, last_active_at
		 FROM user_sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.CurrentOrganizationID, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *PostgresStore) UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.Exec(ctx,
		"UPDATE user_sessions SET last_active_at = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("update session last active: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateOrganization(ctx context.Context, id, orgID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		"UPDATE user_sessions SET current_organization_id = $1 WHERE id = $2", orgID, id)
	if err != nil {
		return fmt.Errorf("update session organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM user_sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM user_sessions WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM user_sessions WHERE expires_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
