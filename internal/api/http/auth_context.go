package httpapi

import (
	"context"

	"github.com/google/uuid"
)

type authContextKey string

const authUserKey authContextKey = "authUser"

// AuthUser represents the authenticated caller in context.
type AuthUser struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
}

func withAuthUser(ctx context.Context, u *AuthUser) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, authUserKey, u)
}

func authUserFromContext(ctx context.Context) *AuthUser {
	val := ctx.Value(authUserKey)
	if v, ok := val.(*AuthUser); ok {
		return v
	}
	return nil
}

// callerID returns the authenticated caller, or uuid.Nil outside requireAuth.
func callerID(ctx context.Context) uuid.UUID {
	if u := authUserFromContext(ctx); u != nil {
		return u.UserID
	}
	return uuid.Nil
}
