package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name,omitempty" db:"full_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ApiToken struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	SecretHash     []byte     `json:"-" db:"secret_hash"`
	Name           string     `json:"name" db:"name"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

type UserSession struct {
	ID                    uuid.UUID `json:"id" db:"id"`
	UserID                uuid.UUID `json:"user_id" db:"user_id"`
	CurrentOrganizationID uuid.UUID `json:"current_organization_id" db:"current_organization_id"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	ExpiresAt             time.Time `json:"expires_at" db:"expires_at"`
	LastActiveAt          time.Time `json:"last_active_at" db:"last_active_at"`
}
