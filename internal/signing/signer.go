package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const MinSecretLen = 32

var (
	ErrSecretTooShort = fmt.Errorf("signing secret must be at least %d bytes", MinSecretLen)
	ErrInvalidToken   = errors.New("invalid signed token")
)

// Signer seals byte payloads into tamper-evident "payload.signature"
// tokens. Both segments are base64url; the signature is an HMAC-SHA256
// over the encoded payload segment.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrSecretTooShort
	}
	return &Signer{secret: []byte(secret)}, nil
}

func (s *Signer) sign(encodedPayload string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encodedPayload))
	return mac.Sum(nil)
}

func (s *Signer) Seal(payload []byte) string {
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	sig := s.sign(encoded)
	return encoded + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// Open verifies the signature and returns the payload. Any malformed
// split, undecodable segment, or signature mismatch yields ErrInvalidToken
// with no further detail; callers must not distinguish tamper modes.
func (s *Signer) Open(token string) ([]byte, error) {
	encoded, sigPart, ok := strings.Cut(token, ".")
	if !ok || encoded == "" || sigPart == "" || strings.Contains(sigPart, ".") {
		return nil, ErrInvalidToken
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, ErrInvalidToken
	}
	wantSig := s.sign(encoded)
	if !hmac.Equal(gotSig, wantSig) {
		return nil, ErrInvalidToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return payload, nil
}
