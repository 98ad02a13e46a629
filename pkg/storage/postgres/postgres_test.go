package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mkirkeby/opgave/pkg/identity"
	"github.com/mkirkeby/opgave/pkg/storage"
	"github.com/mkirkeby/opgave/pkg/task"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("opgave_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func seedPrincipal(t *testing.T, s *Store, id, email string) *identity.Principal {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &identity.Principal{
		ID:             id,
		Name:           "Test User",
		Email:          email,
		PasswordDigest: "$2a$10$digest",
		Role:           identity.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.CreatePrincipal(context.Background(), p); err != nil {
		t.Fatalf("CreatePrincipal: %v", err)
	}
	return p
}

func TestPrincipalRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	p := seedPrincipal(t, s, "usr_abcDEF123456789012345678", "ada@example.com")

	byID, err := s.GetPrincipalByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPrincipalByID: %v", err)
	}
	if byID.Email != p.Email || byID.Role != identity.RoleUser {
		t.Errorf("got %+v, want %+v", byID, p)
	}

	// Case-insensitive email lookup.
	byEmail, err := s.GetPrincipalByEmail(ctx, "ADA@Example.COM")
	if err != nil {
		t.Fatalf("GetPrincipalByEmail: %v", err)
	}
	if byEmail.ID != p.ID {
		t.Errorf("ID = %q, want %q", byEmail.ID, p.ID)
	}

	if _, err := s.GetPrincipalByID(ctx, "usr_missing0000000000000000"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPrincipalDuplicateEmail(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	seedPrincipal(t, s, "usr_first0000000000000000000", "ada@example.com")

	now := time.Now().UTC()
	dup := &identity.Principal{
		ID:             "usr_second000000000000000000",
		Name:           "Imposter",
		Email:          "ADA@example.com",
		PasswordDigest: "digest",
		Role:           identity.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// The unique index on lower(email) must reject the case variant.
	if err := s.CreatePrincipal(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestSetPrincipalRolePostgres(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	p := seedPrincipal(t, s, "usr_abcDEF123456789012345678", "ada@example.com")

	updated, err := s.SetPrincipalRole(ctx, p.ID, identity.RoleAdmin)
	if err != nil {
		t.Fatalf("SetPrincipalRole: %v", err)
	}
	if updated.Role != identity.RoleAdmin {
		t.Errorf("role = %q, want admin", updated.Role)
	}

	if _, err := s.SetPrincipalRole(ctx, "usr_missing0000000000000000", identity.RoleAdmin); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListPrincipalsPostgres(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedPrincipal(t, s, fmt.Sprintf("usr_%024d", i), fmt.Sprintf("u%d@example.com", i))
		time.Sleep(5 * time.Millisecond)
	}

	page1, err := s.ListPrincipals(ctx, identity.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListPrincipals: %v", err)
	}
	if len(page1.Data) != 2 || !page1.HasMore {
		t.Fatalf("page1: len = %d, HasMore = %v", len(page1.Data), page1.HasMore)
	}

	page2, err := s.ListPrincipals(ctx, identity.ListOptions{After: page1.LastID, Limit: 2})
	if err != nil {
		t.Fatalf("ListPrincipals after cursor: %v", err)
	}
	if len(page2.Data) != 1 || page2.HasMore {
		t.Errorf("page2: len = %d, HasMore = %v", len(page2.Data), page2.HasMore)
	}
}

func TestTaskLifecyclePostgres(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	owner := seedPrincipal(t, s, "usr_owner0000000000000000000", "owner@example.com")

	now := time.Now().UTC().Truncate(time.Microsecond)
	tk := &task.Task{
		ID:        "task_abcDEF123456789012345678",
		OwnerID:   owner.ID,
		Title:     "write report",
		Status:    task.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.SaveTask(ctx, tk); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	if err := s.SaveTask(ctx, tk); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate SaveTask err = %v, want ErrConflict", err)
	}

	got, err := s.GetTask(ctx, tk.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.OwnerID != owner.ID || got.Title != "write report" {
		t.Errorf("got %+v", got)
	}

	got.Status = task.StatusDone
	got.UpdatedAt = time.Now().UTC()
	if err := s.UpdateTask(ctx, got); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	updated, _ := s.GetTask(ctx, tk.ID)
	if updated.Status != task.StatusDone {
		t.Errorf("status = %q, want done", updated.Status)
	}

	list, err := s.ListTasks(ctx, task.ListOptions{Owner: owner.ID, Status: task.StatusDone})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(list.Data) != 1 {
		t.Errorf("len = %d, want 1", len(list.Data))
	}

	if err := s.DeleteTask(ctx, tk.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.GetTask(ctx, tk.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
	if err := s.DeleteTask(ctx, tk.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestHealthCheckPostgres(t *testing.T) {
	s := setupTestDB(t)
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}
