package identity

import "errors"

// Sentinel errors for credential operations.
var (
	// ErrDuplicateEmail is returned when registering an email that is
	// already taken, in any case variation.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login for both an unknown email
	// and a failed password check. The two cases are deliberately merged so
	// a caller cannot learn which field was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRole is returned when a role is not one of the enumerated
	// values.
	ErrInvalidRole = errors.New("invalid role")
)
