package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/mkirkeby/opgave/pkg/auth"
	"github.com/mkirkeby/opgave/pkg/identity"
	"github.com/mkirkeby/opgave/pkg/storage"
	"github.com/mkirkeby/opgave/pkg/storage/memory"
)

func seedPrincipal(t *testing.T, store identity.Store) *identity.Principal {
	t.Helper()
	now := time.Now().UTC()
	p := &identity.Principal{
		ID:             "usr_abcDEF123456789012345678",
		Name:           "Ada",
		Email:          "ada@example.com",
		PasswordDigest: "irrelevant",
		Role:           identity.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.CreatePrincipal(context.Background(), p); err != nil {
		t.Fatalf("CreatePrincipal: %v", err)
	}
	return p
}

func requestWithAuth(header string) *http.Request {
	r, _ := http.NewRequest(http.MethodGet, "/tasks", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestAuthenticateValidToken(t *testing.T) {
	store := memory.New()
	p := seedPrincipal(t, store)
	svc := newTestService(t)
	a := NewAuthenticator(svc, store)

	tok, err := svc.Issue(p.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	result := a.Authenticate(context.Background(), requestWithAuth("Bearer "+tok))
	if result.Decision != auth.Yes {
		t.Fatalf("decision = %v, want Yes (err: %v)", result.Decision, result.Err)
	}
	if result.Principal == nil || result.Principal.ID != p.ID {
		t.Errorf("principal = %+v, want ID %s", result.Principal, p.ID)
	}
}

func TestAuthenticateAbstains(t *testing.T) {
	store := memory.New()
	svc := newTestService(t)
	a := NewAuthenticator(svc, store)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"bare token", "some-opaque-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Authenticate(context.Background(), requestWithAuth(tt.header))
			if result.Decision != auth.Abstain {
				t.Errorf("decision = %v, want Abstain", result.Decision)
			}
		})
	}
}

func TestAuthenticateRejects(t *testing.T) {
	store := memory.New()
	p := seedPrincipal(t, store)
	svc := newTestService(t)
	a := NewAuthenticator(svc, store)

	expired, err := svc.IssueWithTTL(p.ID, -time.Minute)
	if err != nil {
		t.Fatalf("IssueWithTTL: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"empty bearer token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Authenticate(context.Background(), requestWithAuth(tt.header))
			if result.Decision != auth.No {
				t.Errorf("decision = %v, want No", result.Decision)
			}
			if result.Err == nil {
				t.Error("expected a non-nil error for logging")
			}
		})
	}
}

func TestAuthenticateDeletedSubject(t *testing.T) {
	store := memory.New()
	svc := newTestService(t)
	a := NewAuthenticator(svc, store)

	// Token for a principal that was never stored.
	tok, err := svc.Issue("usr_gone00000000000000000000")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	result := a.Authenticate(context.Background(), requestWithAuth("Bearer "+tok))
	if result.Decision != auth.No {
		t.Errorf("decision = %v, want No for a stale subject", result.Decision)
	}
	if errors.Is(result.Err, auth.ErrInternal) {
		t.Error("a stale subject is a rejection, not an infrastructure fault")
	}
}

// failingStore simulates a storage outage during principal resolution.
type failingStore struct {
	identity.Store
}

func (f *failingStore) GetPrincipalByID(context.Context, string) (*identity.Principal, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestAuthenticateStoreFault(t *testing.T) {
	svc := newTestService(t)
	a := NewAuthenticator(svc, &failingStore{Store: memory.New()})

	tok, err := svc.Issue("usr_abcDEF123456789012345678")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	result := a.Authenticate(context.Background(), requestWithAuth("Bearer "+tok))
	if result.Decision != auth.No {
		t.Fatalf("decision = %v, want No", result.Decision)
	}
	// An infrastructure fault must be distinguishable from a bad token so
	// the gate can answer 500 instead of 401.
	if !errors.Is(result.Err, auth.ErrInternal) {
		t.Errorf("error = %v, want it to wrap auth.ErrInternal", result.Err)
	}
	if errors.Is(result.Err, storage.ErrNotFound) {
		t.Errorf("error = %v, must not look like a missing record", result.Err)
	}
}
