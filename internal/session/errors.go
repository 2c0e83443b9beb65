package session

import "errors"

var (
	ErrNoMemberships   = errors.New("user has no organization memberships")
	ErrNotAMember      = errors.New("user is not a member of this organization")
	ErrSessionNotFound = errors.New("session not found")
)
