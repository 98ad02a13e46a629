package http

import (
	"github.com/mkirkeby/opgave/pkg/identity"
)

// AuthResponse is the body returned by POST /auth/register and
// POST /auth/login. The token is a bearer token for the Authorization
// header of subsequent requests.
type AuthResponse struct {
	Principal *identity.Principal `json:"principal"`
	Token     string              `json:"token"`
}

// HealthResponse is the body returned by the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}
