package token

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat  = errors.New("token is not in id:secret format")
	ErrTokenNotFound  = errors.New("token not found")
	ErrSecretMismatch = errors.New("token secret mismatch")
)

// LimitReachedError reports the configured per-organization token cap.
type LimitReachedError struct {
	Limit int
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("token limit of %d reached for this organization", e.Limit)
}
