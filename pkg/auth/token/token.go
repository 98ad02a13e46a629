// Package token issues and verifies the signed bearer tokens that carry
// authentication between requests, and provides the chain authenticator
// that validates them at the request boundary.
//
// Tokens are HMAC-SHA256 JWTs whose claims bind a principal ID (sub) with
// issue and expiry times. They are self-contained: no token is ever
// persisted, and a token stays valid for its full TTL unless the signing
// secret rotates. The only revocation mechanism is the authenticator's
// re-resolution of the subject principal on every request.
package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Token failure kinds. They are kept distinct for logging and tests but
// collapse to a single generic 401 at the response boundary.
var (
	ErrMalformed        = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
)

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// minSecretLength guards against secrets short enough to brute-force the
// HMAC key offline.
const minSecretLength = 32

// Config holds the token service configuration.
type Config struct {
	// Secret is the process-wide HMAC signing key, loaded once at startup.
	// Rotating it invalidates all previously issued tokens.
	Secret []byte

	// TTL is the token lifetime. Zero selects DefaultTTL.
	TTL time.Duration
}

// Service issues and verifies signed bearer tokens.
type Service struct {
	secret []byte
	ttl    time.Duration

	// now is overridable in tests.
	now func() time.Time
}

// NewService creates a token service. The secret is required and must be
// at least 32 bytes.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d",
			minSecretLength, len(cfg.Secret))
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret: cfg.Secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue produces a signed token for the principal using the configured TTL.
func (s *Service) Issue(principalID string) (string, error) {
	return s.IssueWithTTL(principalID, s.ttl)
}

// IssueWithTTL produces a signed token with an explicit lifetime.
func (s *Service) IssueWithTTL(principalID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwtlib.RegisteredClaims{
		Subject:   principalID,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
	}

	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks structure, signature, and expiry, and returns the subject
// principal ID. Failures map to ErrMalformed, ErrSignatureInvalid, or
// ErrExpired. No revocation check happens here; stale subjects are caught
// by the authenticator's principal re-resolution.
func (s *Service) Verify(tokenStr string) (string, error) {
	claims := &jwtlib.RegisteredClaims{}
	tok, err := jwtlib.ParseWithClaims(tokenStr, claims,
		func(t *jwtlib.Token) (any, error) {
			return s.secret, nil
		},
		jwtlib.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
			return "", ErrSignatureInvalid
		default:
			return "", ErrMalformed
		}
	}

	if !tok.Valid || claims.Subject == "" {
		return "", ErrMalformed
	}

	return claims.Subject, nil
}
