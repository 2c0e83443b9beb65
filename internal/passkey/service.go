package passkey

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/internal/signing"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

type Config struct {
	RPID         string
	RPName       string
	RPOrigins    []string
	ChallengeTTL time.Duration
}

type Service struct {
	wa     *webauthn.WebAuthn
	store  Store
	signer *signing.Signer
	clock  clock.Clock
	ttl    time.Duration
}

func NewService(cfg Config, store Store, signer *signing.Signer, clk clock.Clock) (*Service, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}
	return &Service{wa: wa, store: store, signer: signer, clock: clk, ttl: cfg.ChallengeTTL}, nil
}

// challengeEnvelope carries ceremony state to the client and back as a
// signed, time-boxed token instead of server-side storage. Same sealing
// scheme as the admin cookie, with a ceremony-scale TTL.
type challengeEnvelope struct {
	Session   webauthn.SessionData `json:"session"`
	CreatedAt time.Time            `json:"created_at"`
}

func (s *Service) sealChallenge(session *webauthn.SessionData) (string, error) {
	payload, err := json.Marshal(challengeEnvelope{Session: *session, CreatedAt: s.clock.Now()})
	if err != nil {
		return "", fmt.Errorf("seal challenge: %w", err)
	}
	return s.signer.Seal(payload), nil
}

func (s *Service) openChallenge(token string) (*webauthn.SessionData, error) {
	payload, err := s.signer.Open(token)
	if err != nil {
		return nil, ErrChallengeInvalid
	}
	var env challengeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ErrChallengeInvalid
	}
	if env.CreatedAt.IsZero() {
		return nil, ErrChallengeInvalid
	}
	if s.clock.Now().Sub(env.CreatedAt) > s.ttl {
		return nil, ErrChallengeExpired
	}
	return &env.Session, nil
}

// BeginRegistration produces creation options for adding a credential
// to the given account, excluding credentials it already holds.
func (s *Service) BeginRegistration(ctx context.Context, user *models.User) (*protocol.CredentialCreation, string, error) {
	existing, err := s.store.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(existing))
	for i := range existing {
		exclusions = append(exclusions, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: existing[i].CredentialID,
		})
	}

	wu := newCeremonyUser(user.ID, user.Email, user.FullName, existing)
	options, session, err := s.wa.BeginRegistration(wu,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementPreferred),
		webauthn.WithExclusions(exclusions),
	)
	if err != nil {
		return nil, "", fmt.Errorf("begin registration: %w", err)
	}

	challenge, err := s.sealChallenge(session)
	if err != nil {
		return nil, "", err
	}
	return options, challenge, nil
}

// VerifyRegistration checks the attestation response against the
// sealed challenge and returns the credential record without persisting
// it. Signup verifies before the account row exists.
func (s *Service) VerifyRegistration(ctx context.Context, user *models.User, challenge, name string, response *protocol.ParsedCredentialCreationData) (*models.PasskeyCredential, error) {
	session, err := s.openChallenge(challenge)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	wu := newCeremonyUser(user.ID, user.Email, user.FullName, existing)

	cred, err := s.wa.CreateCredential(wu, *session, response)
	if err != nil {
		return nil, fmt.Errorf("verify attestation: %w", err)
	}

	return credentialRecord(user.ID, name, cred, s.clock.Now()), nil
}

// SaveCredential persists a verified credential record.
func (s *Service) SaveCredential(ctx context.Context, record *models.PasskeyCredential) error {
	if err := s.store.Create(ctx, record); err != nil {
		return err
	}
	slog.Info("passkey registered", "user_id", record.UserID, "credential_id", record.ID)
	return nil
}

// FinishRegistration verifies the attestation response and persists the
// new credential for an existing account.
func (s *Service) FinishRegistration(ctx context.Context, user *models.User, challenge, name string, response *protocol.ParsedCredentialCreationData) (*models.PasskeyCredential, error) {
	record, err := s.VerifyRegistration(ctx, user, challenge, name, response)
	if err != nil {
		return nil, err
	}
	if err := s.SaveCredential(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// BeginLogin starts a discoverable-credential assertion; no username is
// required, the authenticator volunteers the account.
func (s *Service) BeginLogin(ctx context.Context) (*protocol.CredentialAssertion, string, error) {
	options, session, err := s.wa.BeginDiscoverableLogin()
	if err != nil {
		return nil, "", fmt.Errorf("begin login: %w", err)
	}
	challenge, err := s.sealChallenge(session)
	if err != nil {
		return nil, "", err
	}
	return options, challenge, nil
}

// FinishLogin verifies the assertion, enforces counter monotonicity,
// and returns the authenticated user id. Session creation is the
// caller's next step.
func (s *Service) FinishLogin(ctx context.Context, challenge string, response *protocol.ParsedCredentialAssertionData) (uuid.UUID, error) {
	session, err := s.openChallenge(challenge)
	if err != nil {
		return uuid.Nil, err
	}

	var stored *models.PasskeyCredential
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		c, err := s.store.GetByCredentialID(ctx, rawID)
		if err != nil {
			return nil, err
		}
		stored = c
		return newCeremonyUser(c.UserID, "", "", []models.PasskeyCredential{*c}), nil
	}

	validated, err := s.wa.ValidateDiscoverableLogin(handler, *session, response)
	if err != nil {
		if stored == nil {
			return uuid.Nil, ErrCredentialNotFound
		}
		return uuid.Nil, fmt.Errorf("verify assertion: %w", err)
	}

	if err := checkCounter(stored.SignCount, validated.Authenticator.SignCount); err != nil {
		slog.Warn("passkey replay rejected",
			"credential_id", stored.ID, "stored_count", stored.SignCount, "reported_count", validated.Authenticator.SignCount)
		return uuid.Nil, err
	}

	// Persist the freshly validated counter; the conditional update in
	// the store rejects a concurrent assertion racing on the old value.
	if err := s.store.UpdateCounter(ctx, stored.ID, validated.Authenticator.SignCount, s.clock.Now()); err != nil {
		return uuid.Nil, err
	}

	slog.Info("passkey login verified", "user_id", stored.UserID, "credential_id", stored.ID)
	return stored.UserID, nil
}

func (s *Service) ListCredentials(ctx context.Context, userID uuid.UUID) ([]models.PasskeyCredential, error) {
	return s.store.ListByUser(ctx, userID)
}

// DeleteCredential removes one of the actor's own credentials, never
// the last one.
func (s *Service) DeleteCredential(ctx context.Context, actorUserID, credentialID uuid.UUID) error {
	c, err := s.store.GetByID(ctx, credentialID)
	if err != nil {
		return err
	}
	if c.UserID != actorUserID {
		return ErrForbidden
	}

	remaining, err := s.store.ListByUser(ctx, actorUserID)
	if err != nil {
		return err
	}
	if len(remaining) <= 1 {
		return ErrLastCredential
	}
	return s.store.Delete(ctx, credentialID)
}

// checkCounter enforces the replay invariant: a verified assertion must
// report a counter strictly greater than the stored one. A stalled or
// regressed counter means the signature came from a clone.
func checkCounter(stored, reported uint32) error {
	if reported <= stored {
		return ErrReplayDetected
	}
	return nil
}

func credentialRecord(userID uuid.UUID, name string, cred *webauthn.Credential, now time.Time) *models.PasskeyCredential {
	transports := make([]string, 0, len(cred.Transport))
	for _, t := range cred.Transport {
		transports = append(transports, string(t))
	}

	deviceType := "single_device"
	if cred.Flags.BackupEligible {
		deviceType = "multi_device"
	}

	return &models.PasskeyCredential{
		ID:              uuid.New(),
		UserID:          userID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		Transports:      transports,
		SignCount:       cred.Authenticator.SignCount,
		DeviceType:      deviceType,
		BackedUp:        cred.Flags.BackupState,
		Name:            name,
		CreatedAt:       now,
	}
}
