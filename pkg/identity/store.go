package identity

import "context"

// ListOptions controls pagination for principal listings.
type ListOptions struct {
	After string // Cursor: return principals after this ID.
	Limit int    // Maximum number of principals to return (default 20, max 100).
}

// PrincipalList holds a paginated list of principals.
type PrincipalList struct {
	Object  string       `json:"object"`
	Data    []*Principal `json:"data"`
	HasMore bool         `json:"has_more"`
	FirstID string       `json:"first_id"`
	LastID  string       `json:"last_id"`
}

// Store handles persistence of principal records. Implementations must
// guarantee that CreatePrincipal is an atomic check-and-insert on the
// normalized email: two concurrent registrations with the same email must
// never both succeed. Returns use the storage sentinel errors
// (storage.ErrConflict, storage.ErrNotFound).
type Store interface {
	// CreatePrincipal persists a new principal. Returns storage.ErrConflict
	// if a principal with the same normalized email already exists.
	CreatePrincipal(ctx context.Context, p *Principal) error

	// GetPrincipalByEmail retrieves a principal by normalized email.
	GetPrincipalByEmail(ctx context.Context, email string) (*Principal, error)

	// GetPrincipalByID retrieves a principal by ID.
	GetPrincipalByID(ctx context.Context, id string) (*Principal, error)

	// SetPrincipalRole updates a principal's role and returns the updated
	// record. Returns storage.ErrNotFound if no such principal exists.
	SetPrincipalRole(ctx context.Context, id string, role Role) (*Principal, error)

	// ListPrincipals returns a paginated list of principals ordered by
	// creation time.
	ListPrincipals(ctx context.Context, opts ListOptions) (*PrincipalList, error)
}
