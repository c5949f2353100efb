// internal/auth/context.go
package auth

import "context"

type contextKey string

const claimsContextKey contextKey = "claims"

// WithClaims returns a context carrying verified token claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the verified claims injected by the auth
// middleware, or nil for unauthenticated requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}
