package models

import (
	"time"

	"github.com/google/uuid"
)

// PasskeyCredential is a stored WebAuthn credential. CredentialID and
// PublicKey come back from the attestation ceremony; SignCount only ever
// moves forward across verified assertions.
type PasskeyCredential struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	CredentialID    []byte     `json:"-" db:"credential_id"`
	PublicKey       []byte     `json:"-" db:"public_key"`
	AttestationType string     `json:"-" db:"attestation_type"`
	Transports      []string   `json:"-" db:"transports"`
	SignCount       uint32     `json:"-" db:"sign_count"`
	DeviceType      string     `json:"device_type" db:"device_type"`
	BackedUp        bool       `json:"backed_up" db:"backed_up"`
	Name            string     `json:"name" db:"name"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}
