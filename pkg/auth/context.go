package auth

import (
	"context"

	"github.com/mkirkeby/opgave/pkg/identity"
)

// principalKey is a private type for the principal context key.
type principalKey struct{}

// SetPrincipal stores the authenticated principal in the context. The
// value is set once by the gate and read-only for the rest of the
// request; nothing downstream mutates it.
func SetPrincipal(ctx context.Context, p *identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal.
// Returns nil if no principal is set (unauthenticated request).
func PrincipalFromContext(ctx context.Context) *identity.Principal {
	if v, ok := ctx.Value(principalKey{}).(*identity.Principal); ok {
		return v
	}
	return nil
}
