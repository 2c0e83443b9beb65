package passkey

import "errors"

var (
	ErrCredentialNotFound = errors.New("passkey credential not found")
	ErrChallengeInvalid   = errors.New("invalid registration or login challenge")
	ErrChallengeExpired   = errors.New("registration or login challenge expired")
	ErrReplayDetected     = errors.New("assertion counter did not advance; possible cloned authenticator")
	ErrForbidden          = errors.New("credential belongs to another user")
	ErrLastCredential     = errors.New("cannot delete a user's last passkey")
)
