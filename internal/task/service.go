package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

var (
	ErrNotFound      = errors.New("task not found")
	ErrInvalidStatus = errors.New("invalid task status")
)

type Service struct {
	db    *pgxpool.Pool
	clock clock.Clock
}

func NewService(db *pgxpool.Pool, clk clock.Clock) *Service {
	return &Service{db: db, clock: clk}
}

type CreateParams struct {
	Title     string
	Notes     string
	CaptureID *uuid.UUID
	DueAt     *time.Time
}

func (s *Service) Create(ctx context.Context, orgID, userID uuid.UUID, p CreateParams) (*models.Task, error) {
	now := s.clock.Now()
	t := &models.Task{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		CaptureID:      p.CaptureID,
		Title:          p.Title,
		Notes:          p.Notes,
		Status:         models.TaskTodo,
		DueAt:          p.DueAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO tasks (id, organization_id, user_id, capture_id, title, notes, status, due_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.OrganizationID, t.UserID, t.CaptureID, t.Title, t.Notes, t.Status, t.DueAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error) {
	var t models.Task
	err := s.db.QueryRow(ctx,
		`SELECT id, organization_id, user_id, capture_id, title, notes, status, due_at, created_at, updated_at
		 FROM tasks WHERE id = $1 AND organization_id = $2`, id, orgID,
	).Scan(&t.ID, &t.OrganizationID, &t.UserID, &t.CaptureID, &t.Title, &t.Notes, &t.Status, &t.DueAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, status models.TaskStatus, limit, offset int) ([]models.Task, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, organization_id, user_id, capture_id, title, notes, status, due_at, created_at, updated_at
	          FROM tasks WHERE organization_id = $1`
	args := []any{orgID}
	if status != "" {
		query += " AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4"
		args = append(args, status, limit, offset)
	} else {
		query += " ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, limit, offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.UserID, &t.CaptureID, &t.Title, &t.Notes, &t.Status, &t.DueAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Service) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status models.TaskStatus) error {
	switch status {
	case models.TaskTodo, models.TaskDoing, models.TaskDone:
	default:
		return ErrInvalidStatus
	}

	tag, err := s.db.Exec(ctx,
		"UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND organization_id = $4",
		status, s.clock.Now(), id, orgID,
	)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		"DELETE FROM tasks WHERE id = $1 AND organization_id = $2", id, orgID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
