package token

import "golang.org/x/crypto/bcrypt"

// Hasher is the slow adaptive hash used for token secrets. Compare must
// be constant-time with respect to the secret.
type Hasher interface {
	Hash(secret string) ([]byte, error)
	Compare(hash []byte, secret string) error
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
}

func (h *BcryptHasher) Compare(hash []byte, secret string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(secret))
}

// Pre-computed bcrypt hash of an arbitrary string (cost=10), used to
// equalize timing when a lookup misses so callers cannot distinguish
// "unknown id" from "wrong secret" by response time.
var dummyBcryptHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOa5hnhtNGRjukDWO2xzg3sjQTL1dDQ2u")
