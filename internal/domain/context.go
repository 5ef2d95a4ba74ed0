// Package domain provides core business types, service interfaces and
// context helpers for Bizznex.
package domain

import (
	"context"
)

type (
	userKey      struct{}
	requestIDKey struct{}
)

// BypassUserID is the ID carried by the stand-in user when token checks are
// switched off in development.
const BypassUserID = "auth-bypass"

// User is the identity-provider user behind a verified bearer token.
type User struct {
	ID    string
	Email string

	// Bypass marks the stand-in user; no token was verified.
	Bypass bool
}

// BypassUser returns the stand-in user attached under AUTH_BYPASS.
func BypassUser() *User {
	return &User{ID: BypassUserID, Bypass: true}
}

// NewContextWithUser attaches user to ctx.
func NewContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the caller, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userKey{}).(*User)
	return user
}

// Actor names the caller in logs: the user ID, or "anonymous".
func Actor(ctx context.Context) string {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	return "anonymous"
}

func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}
