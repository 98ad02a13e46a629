package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mkirkeby/opgave/pkg/auth"
	"github.com/mkirkeby/opgave/pkg/identity"
	"github.com/mkirkeby/opgave/pkg/storage"
)

// Authenticator validates bearer tokens from the Authorization header and
// re-resolves the subject principal from the credential store on every
// request. The re-resolution is the only revocation mechanism: a token
// whose signature and expiry check out still votes No when its principal
// no longer exists.
type Authenticator struct {
	service *Service
	store   identity.Store
}

// NewAuthenticator creates a bearer token authenticator.
func NewAuthenticator(service *Service, store identity.Store) *Authenticator {
	return &Authenticator{service: service, store: store}
}

// Authenticate extracts a bearer token and validates it.
//
// Decision outcomes:
//   - Abstain: no Authorization header or not a Bearer scheme (no token
//     service call is made)
//   - No: bearer token present but invalid, expired, or its subject
//     principal has been deleted
//   - Yes: valid token with the freshly resolved principal
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	if header == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	// Must be Bearer token.
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	principalID, err := a.service.Verify(tokenStr)
	if err != nil {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("invalid bearer token: %w", err),
		}
	}

	p, err := a.store.GetPrincipalByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Stale token for a deleted account.
			return auth.AuthResult{
				Decision: auth.No,
				Err:      fmt.Errorf("token subject %q no longer exists", principalID),
			}
		}
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("%w: resolving principal: %v", auth.ErrInternal, err),
		}
	}

	return auth.AuthResult{Decision: auth.Yes, Principal: p}
}
