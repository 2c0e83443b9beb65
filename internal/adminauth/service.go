// Package adminauth implements stateless signed-cookie authentication
// for the single shared admin password. Tokens carry no server-side
// record: validity is a pure function of signature and age, so logout
// only clears the client cookie and a copied, pre-expiry token stays
// valid until its TTL elapses. That trade of revocability for
// simplicity is deliberate.
package adminauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"time"

	"github.com/capturedeck/capturedeck/internal/signing"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

var (
	ErrBadPassword    = errors.New("admin password mismatch")
	ErrInvalidSession = errors.New("invalid admin session token")
	ErrSessionExpired = errors.New("admin session expired")
)

// AdminSession is the payload sealed into the cookie.
type AdminSession struct {
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	passwordDigest [32]byte
	signer         *signing.Signer
	clock          clock.Clock
	ttl            time.Duration
}

func NewService(password string, signer *signing.Signer, clk clock.Clock, ttl time.Duration) *Service {
	return &Service{
		passwordDigest: sha256.Sum256([]byte(password)),
		signer:         signer,
		clock:          clk,
		ttl:            ttl,
	}
}

// Login checks the supplied password and issues a signed session token.
// Both sides are digested to fixed size before the constant-time
// comparison; comparing raw strings would leak the password length even
// with a constant-time primitive.
func (s *Service) Login(password string) (string, error) {
	digest := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(digest[:], s.passwordDigest[:]) != 1 {
		return "", ErrBadPassword
	}

	payload, err := json.Marshal(AdminSession{IsAdmin: true, CreatedAt: s.clock.Now()})
	if err != nil {
		return "", err
	}
	return s.signer.Seal(payload), nil
}

// VerifySession validates signature, shape, and age of a session token.
func (s *Service) VerifySession(token string) (*AdminSession, error) {
	payload, err := s.signer.Open(token)
	if err != nil {
		return nil, ErrInvalidSession
	}

	var sess AdminSession
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, ErrInvalidSession
	}
	if !sess.IsAdmin || sess.CreatedAt.IsZero() {
		return nil, ErrInvalidSession
	}
	if s.clock.Now().Sub(sess.CreatedAt) > s.ttl {
		return nil, ErrSessionExpired
	}
	return &sess, nil
}
