package invitation

import "errors"

var (
	ErrNotFound        = errors.New("invitation not found")
	ErrAlreadyAccepted = errors.New("invitation has already been accepted")
	ErrExpired         = errors.New("invitation has expired")
	ErrEmailMismatch   = errors.New("invitation is restricted to a different email")
	ErrInvalidRole     = errors.New("invalid invitation role")
)
