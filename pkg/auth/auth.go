package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/mkirkeby/opgave/pkg/identity"
)

// AuthDecision represents the three possible outcomes of authentication.
type AuthDecision int

const (
	// Yes means credentials are valid. The chain stops and the principal is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator cannot handle the credentials type.
	// The chain continues to the next authenticator.
	Abstain
)

// AuthResult carries the outcome of an authentication attempt. Err holds
// the internal failure kind (for example a token-expiry error); it is
// logged but never written to the response.
type AuthResult struct {
	Decision  AuthDecision
	Principal *identity.Principal // populated only when Decision == Yes
	Err       error               // populated only when Decision == No
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrTooManyRequests = errors.New("rate limit exceeded")

	// ErrInternal marks an authentication attempt that failed because of
	// an infrastructure fault (for example the credential store being
	// unreachable) rather than bad credentials. The gate surfaces it as a
	// server error, not a 401.
	ErrInternal = errors.New("internal authentication error")
)

// AuthChain evaluates authenticators in order using three-outcome voting.
type AuthChain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator

	// DefaultDecision is used when all authenticators abstain. A request
	// without any Authorization header lands here, so protected routes
	// use No.
	DefaultDecision AuthDecision
}

// Authenticate runs the chain. Stops on the first Yes or No.
// If all abstain, returns the default decision.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	if c.DefaultDecision == Yes {
		return AuthResult{
			Decision: Yes,
			Principal: &identity.Principal{
				ID:   "anonymous",
				Role: identity.RoleUser,
			},
		}
	}

	return AuthResult{
		Decision: No,
		Err:      ErrUnauthenticated,
	}
}
