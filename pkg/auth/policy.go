package auth

import (
	"log/slog"
	"net/http"

	"github.com/mkirkeby/opgave/pkg/identity"
)

// Predicate is an authorization rule evaluated against the authenticated
// principal. It returns nil to pass or ErrForbidden to deny. Predicates
// run only after the gate has resolved a principal.
type Predicate func(p *identity.Principal) error

// RequireRole passes iff the principal's role is in the allowed set.
func RequireRole(allowed ...identity.Role) Predicate {
	return func(p *identity.Principal) error {
		for _, role := range allowed {
			if p.Role == role {
				return nil
			}
		}
		return ErrForbidden
	}
}

// RequireOwnerOrRole passes iff the principal owns the resource or holds
// one of the bypass roles. The resource's owner ID must already be
// resolved by the caller; this is a pure decision function and never
// fetches the resource itself.
func RequireOwnerOrRole(ownerID string, bypass ...identity.Role) Predicate {
	return func(p *identity.Principal) error {
		if p.ID == ownerID {
			return nil
		}
		for _, role := range bypass {
			if p.Role == role {
				return nil
			}
		}
		return ErrForbidden
	}
}

// Evaluate runs predicates by short-circuit conjunction: the first failure
// determines the rejection and later predicates are not evaluated.
func Evaluate(p *identity.Principal, preds ...Predicate) error {
	for _, pred := range preds {
		if err := pred(p); err != nil {
			return err
		}
	}
	return nil
}

// Require wraps an ordered predicate list as route middleware. It expects
// the gate to have run already; a missing principal is rejected as
// unauthenticated rather than forbidden.
func Require(preds ...Predicate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				http.Error(w, `{"error":{"type":"unauthenticated","message":"authentication required"}}`, http.StatusUnauthorized)
				return
			}
			if err := Evaluate(p, preds...); err != nil {
				slog.Debug("authorization denied",
					"principal", p.ID,
					"role", p.Role,
					"path", r.URL.Path,
				)
				http.Error(w, `{"error":{"type":"forbidden","message":"insufficient permissions"}}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
