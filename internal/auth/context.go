package auth

import (
	"context"

	"github.com/dvoloshyn/pocket-money/internal/domain"
)

type contextKey string

const identityKey contextKey = "authenticated-identity"

// WithIdentity attaches the verified identity to the request context. Only
// the authentication middleware calls this; core operations receive the
// identity as an explicit argument, never through ambient state.
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the verified identity set by the middleware,
// or nil when the request is unauthenticated.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	identity, _ := ctx.Value(identityKey).(*domain.Identity)
	return identity
}
