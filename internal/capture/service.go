package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

var ErrNotFound = errors.New("capture not found")

type Service struct {
	db    *pgxpool.Pool
	clock clock.Clock
}

func NewService(db *pgxpool.Pool, clk clock.Clock) *Service {
	return &Service{db: db, clock: clk}
}

func (s *Service) Create(ctx context.Context, orgID, userID uuid.UUID, body string) (*models.Capture, error) {
	now := s.clock.Now()
	c := &models.Capture{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		Body:           body,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO captures (id, organization_id, user_id, body, processed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.OrganizationID, c.UserID, c.Body, c.Processed, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Capture, error) {
	var c models.Capture
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, user_id, body, processed, created_at, updated_at
		 FROM captures WHERE id = $1 AND organization_id = $2`, id, orgID,
	).Scan(&c.ID, &c.OrganizationID, &c.UserID, &c.Body, &c.Processed, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get capture: %w", err)
	}
	return &c, nil
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.Capture, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, organization_id, user_id, body, processed, created_at, updated_at
		 FROM captures WHERE organization_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		orgID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	var captures []models.Capture
	for rows.Next() {
		var c models.Capture
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.UserID, &c.Body, &c.Processed, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

func (s *Service) MarkProcessed(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE captures SET processed = TRUE, updated_at = $1 WHERE id = $2 AND organization_id = $3",
		s.clock.Now(), id, orgID,
	)
	if err != nil {
		return fmt.Errorf("mark capture processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		"DELETE FROM captures WHERE id = $1 AND organization_id = $2", id, orgID)
	if err != nil {
		return fmt.Errorf("delete capture: %w", err)
	}
	return nil
}
