package auth

import (
	"context"
)

type contextKey int

const userClaimsContextKey contextKey = iota

// ContextWithClaims returns a context carrying the session claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, userClaimsContextKey, claims)
}

// GetUserClaims returns the session claims from ctx, or nil when the
// request is unauthenticated.
func GetUserClaims(ctx context.Context) *Claims {
	claims, ok := ctx.Value(userClaimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}
