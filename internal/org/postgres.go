package org

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

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

func (s *PostgresStore) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var o models.Organization
	err := s.db.QueryRow(ctx,
		"SELECT id, name, created_at FROM organizations WHERE id = $1", id,
	).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) CreateOrganization(ctx context.Context, o *models.Organization) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO organizations (id, name, created_at) VALUES ($1, $2, $3)",
		o.ID, o.Name, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, name, created_at FROM organizations ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (s *PostgresStore) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, organization_id, role, is_personal_org, joined_at
		 FROM memberships WHERE user_id = $1 AND organization_id = $2`,
		userID, orgID,
	).Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.IsPersonalOrg, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.Membership, error) {
	return s.list(ctx,
		`SELECT id, user_id, organization_id, role, is_personal_org, joined_at
		 FROM memberships WHERE organization_id = $1 ORDER BY joined_at`, orgID)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	return s.list(ctx,
		`SELECT id, user_id, organization_id, role, is_personal_org, joined_at
		 FROM memberships WHERE user_id = $1 ORDER BY joined_at`, userID)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]models.Membership, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.IsPersonalOrg, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) CreateMembership(ctx context.Context, m *models.Membership) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO memberships (id, user_id, organization_id, role, is_personal_org, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.OrganizationID, m.Role, m.IsPersonalOrg, m.JoinedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyMember
	}
	if err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteMembership(ctx context.Context, userID, orgID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		"DELETE FROM memberships WHERE user_id = $1 AND organization_id = $2",
		userID, orgID,
	)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
