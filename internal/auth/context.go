package auth

import (
	"context"

	"github.com/google/uuid"
)

// Context is the uniform outcome of authentication: who is acting and
// in which organization. SessionID is set only for cookie-authenticated
// requests; operations like switching organizations require it.
type Context struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	SessionID      *uuid.UUID
}

func (c *Context) HasSession() bool {
	return c != nil && c.SessionID != nil
}

type contextKey string

const authKey contextKey = "auth"

func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, authKey, ac)
}

func FromContext(ctx context.Context) *Context {
	ac, _ := ctx.Value(authKey).(*Context)
	return ac
}
