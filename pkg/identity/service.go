package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkirkeby/opgave/pkg/api"
	"github.com/mkirkeby/opgave/pkg/password"
	"github.com/mkirkeby/opgave/pkg/storage"
)

// Config holds credential policy settings for the Service.
type Config struct {
	// AllowRoleOnRegister honors a caller-supplied role at registration.
	// Off by default: self-registration then always yields a regular user,
	// and admins are created through cmd/seed or SetRole. Enable only for
	// trusted-environment bootstrap.
	AllowRoleOnRegister bool
}

// Service implements the credential operations over a Store and a
// password hasher.
type Service struct {
	store  Store
	hasher password.Hasher
	config Config

	// dummyDigest is verified against when the email is unknown, so a
	// login miss costs the same as a password mismatch.
	dummyDigest string
}

// NewService creates a credential service. The dummy digest is computed
// once here; hashing is deliberately expensive and must not run per miss
// at construction cost.
func NewService(store Store, hasher password.Hasher, cfg Config) (*Service, error) {
	dummy, err := hasher.Hash("opgave-dummy-credential")
	if err != nil {
		return nil, fmt.Errorf("computing dummy digest: %w", err)
	}
	return &Service{
		store:       store,
		hasher:      hasher,
		config:      cfg,
		dummyDigest: dummy,
	}, nil
}

// Register creates a new principal. The password is hashed before anything
// is persisted; the email uniqueness check and the insert are a single
// atomic operation at the storage layer. Returns ErrDuplicateEmail if the
// email is already registered and ErrInvalidRole for an unknown role.
func (s *Service) Register(ctx context.Context, name, email, plaintext string, role Role) (*Principal, error) {
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if !s.config.AllowRoleOnRegister {
		role = RoleUser
	}

	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	p := &Principal{
		ID:             api.NewPrincipalID(),
		Name:           name,
		Email:          NormalizeEmail(email),
		PasswordDigest: digest,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreatePrincipal(ctx, p); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("creating principal: %w", err)
	}

	return p, nil
}

// Login verifies the email/password pair and returns the principal on
// success. Unknown email and wrong password both return
// ErrInvalidCredentials; the unknown-email path still performs a digest
// verification so the two cases take comparable time.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*Principal, error) {
	p, err := s.store.GetPrincipalByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Verify(plaintext, s.dummyDigest)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up principal: %w", err)
	}

	if !s.hasher.Verify(plaintext, p.PasswordDigest) {
		return nil, ErrInvalidCredentials
	}

	return p, nil
}

// GetByID retrieves a principal by ID. Returns storage.ErrNotFound when
// no such principal exists.
func (s *Service) GetByID(ctx context.Context, id string) (*Principal, error) {
	return s.store.GetPrincipalByID(ctx, id)
}

// SetRole changes a principal's role. Returns ErrInvalidRole for an
// unknown role and storage.ErrNotFound for an unknown principal.
func (s *Service) SetRole(ctx context.Context, id string, role Role) (*Principal, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.store.SetPrincipalRole(ctx, id, role)
}

// List returns a paginated list of principals.
func (s *Service) List(ctx context.Context, opts ListOptions) (*PrincipalList, error) {
	return s.store.ListPrincipals(ctx, opts)
}
