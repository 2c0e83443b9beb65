// Package audit records security-relevant events: logins, token and
// invitation lifecycle, membership changes. Failures to write an audit
// row are logged but never fail the action being audited.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capturedeck/capturedeck/internal/models"
)

const (
	ActionLogin              = "auth.login"
	ActionSignup             = "auth.signup"
	ActionAdminLogin         = "auth.admin_login"
	ActionTokenCreated       = "token.created"
	ActionTokenRevoked       = "token.revoked"
	ActionPasskeyRegistered  = "passkey.registered"
	ActionPasskeyDeleted     = "passkey.deleted"
	ActionInvitationCreated  = "invitation.created"
	ActionInvitationAccepted = "invitation.accepted"
	ActionInvitationRevoked  = "invitation.revoked"
	ActionMemberRemoved      = "member.removed"
	ActionMemberLeft         = "member.left"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

type Entry struct {
	OrganizationID *uuid.UUID
	UserID         *uuid.UUID
	Action         string
	ResourceType   string
	ResourceID     *uuid.UUID
	Details        map[string]any
	IPAddress      string
}

// Record is best-effort: it logs and returns on failure rather than
// propagating, so audited operations never fail on audit writes.
func (s *Service) Record(ctx context.Context, entry Entry) {
	details, _ := json.Marshal(entry.Details)

	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (id, organization_id, user_id, action, resource_type, resource_id, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		uuid.New(), entry.OrganizationID, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, details, entry.IPAddress,
	)
	if err != nil {
		slog.Warn("failed to write audit log", "error", err, "action", entry.Action)
	}
}

// PruneBefore deletes audit rows older than the cutoff; run from the
// worker's retention sweep.
func (s *Service) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM audit_logs WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

type Query struct {
	OrganizationID *uuid.UUID
	Action         string
	StartDate      *time.Time
	EndDate        *time.Time
	Limit          int
	Offset         int
}

func (s *Service) List(ctx context.Context, q Query) ([]models.AuditLog, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT id, organization_id, user_id, action, resource_type, resource_id, details, ip_address, created_at
			  FROM audit_logs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if q.OrganizationID != nil {
		query += fmt.Sprintf(" AND organization_id = $%d", argIdx)
		args = append(args, *q.OrganizationID)
		argIdx++
	}
	if q.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, q.Action)
		argIdx++
	}
	if q.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *q.EndDate)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.OrganizationID, &l.UserID, &l.Action, &l.ResourceType, &l.ResourceID, &l.Details, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
