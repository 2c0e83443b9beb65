package passkey

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

const credentialColumns = `id, user_id, credential_id, public_key, attestation_type, transports,
	sign_count, device_type, backed_up, name, last_used_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.PasskeyCredential) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO passkey_credentials
		 (id, user_id, credential_id, public_key, attestation_type, transports, sign_count, device_type, backed_up, name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.UserID, c.CredentialID, c.PublicKey, c.AttestationType, c.Transports,
		c.SignCount, c.DeviceType, c.BackedUp, c.Name, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create passkey credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.PasskeyCredential, error) {
	return s.get(ctx, "SELECT "+credentialColumns+" FROM passkey_credentials WHERE id = $1", id)
}

func (s *PostgresStore) GetByCredentialID(ctx context.Context, credentialID []byte) (*models.PasskeyCredential, error) {
	return s.get(ctx, "SELECT "+credentialColumns+" FROM passkey_credentials WHERE credential_id = $1", credentialID)
}

func (s *PostgresStore) get(ctx context.Context, query string, arg any) (*models.PasskeyCredential, error) {
	var c models.PasskeyCredential
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&c.ID, &c.UserID, &c.CredentialID, &c.PublicKey, &c.AttestationType, &c.Transports,
		&c.SignCount, &c.DeviceType, &c.BackedUp, &c.Name, &c.LastUsedAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get passkey credential: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PasskeyCredential, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+credentialColumns+" FROM passkey_credentials WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, fmt.Errorf("list passkey credentials: %w", err)
	}
	defer rows.Close()

	var creds []models.PasskeyCredential
	for rows.Next() {
		var c models.PasskeyCredential
		if err := rows.Scan(&c.ID, &c.UserID, &c.CredentialID, &c.PublicKey, &c.AttestationType, &c.Transports,
			&c.SignCount, &c.DeviceType, &c.BackedUp, &c.Name, &c.LastUsedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan passkey credential: %w", err)
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// UpdateCounter only advances: the WHERE clause keeps a concurrent
// assertion that validated against a stale counter from writing.
func (s *PostgresStore) UpdateCounter(ctx context.Context, id uuid.UUID, newCount uint32, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE passkey_credentials SET sign_count = $1, last_used_at = $2
		 WHERE id = $3 AND sign_count < $1`,
		newCount, at, id,
	)
	if err != nil {
		return fmt.Errorf("update passkey counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReplayDetected
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, "DELETE FROM passkey_credentials WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete passkey credential: %w", err)
	}
	return nil
}
