package passkey

import (
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
)

// ceremonyUser adapts an account to the webauthn.User interface for the
// duration of one ceremony. The user handle is the account uuid's raw
// bytes.
type ceremonyUser struct {
	id          uuid.UUID
	name        string
	displayName string
	credentials []webauthn.Credential
}

func newCeremonyUser(id uuid.UUID, name, displayName string, stored []models.PasskeyCredential) *ceremonyUser {
	creds := make([]webauthn.Credential, 0, len(stored))
	for i := range stored {
		creds = append(creds, toWebauthnCredential(&stored[i]))
	}
	return &ceremonyUser{id: id, name: name, displayName: displayName, credentials: creds}
}

func (u *ceremonyUser) WebAuthnID() []byte { return u.id[:] }

func (u *ceremonyUser) WebAuthnName() string { return u.name }

func (u *ceremonyUser) WebAuthnDisplayName() string {
	if u.displayName != "" {
		return u.displayName
	}
	return u.name
}

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func toWebauthnCredential(c *models.PasskeyCredential) webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, 0, len(c.Transports))
	for _, t := range c.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(t))
	}
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transport:       transports,
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.DeviceType == "multi_device",
			BackupState:    c.BackedUp,
		},
		Authenticator: webauthn.Authenticator{
			SignCount: c.SignCount,
		},
	}
}
