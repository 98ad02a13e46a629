// Package postgres provides PostgreSQL implementations of identity.Store
// and task.Store. It uses pgx/v5 for connection pooling and embedded SQL
// files for schema migrations.
//
// Email uniqueness is enforced by a unique index on lower(email), making
// registration's check-and-insert atomic at the database; the adapter
// translates the unique violation into storage.ErrConflict.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkirkeby/opgave/pkg/identity"
	"github.com/mkirkeby/opgave/pkg/storage"
	"github.com/mkirkeby/opgave/pkg/task"
)

// Store is a PostgreSQL-backed identity.Store and task.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time interface checks.
var (
	_ identity.Store = (*Store)(nil)
	_ task.Store     = (*Store)(nil)
)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// CreatePrincipal persists a new principal. The unique index on
// lower(email) rejects a duplicate registration atomically.
func (s *Store) CreatePrincipal(ctx context.Context, p *identity.Principal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO principals (id, name, email, password_digest, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		p.ID, p.Name, p.Email, p.PasswordDigest, string(p.Role), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting principal: %w", err)
	}
	return nil
}

// GetPrincipalByEmail retrieves a principal by normalized email.
func (s *Store) GetPrincipalByEmail(ctx context.Context, email string) (*identity.Principal, error) {
	return s.getPrincipal(ctx,
		"WHERE lower(email) = lower($1)", email)
}

// GetPrincipalByID retrieves a principal by ID.
func (s *Store) GetPrincipalByID(ctx context.Context, id string) (*identity.Principal, error) {
	return s.getPrincipal(ctx, "WHERE id = $1", id)
}

// getPrincipal is the internal retrieval implementation.
func (s *Store) getPrincipal(ctx context.Context, where string, arg any) (*identity.Principal, error) {
	query := `
		SELECT id, name, email, password_digest, role, created_at, updated_at
		FROM principals ` + where

	var p identity.Principal
	var role string
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.Name, &p.Email, &p.PasswordDigest, &role, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying principal: %w", err)
	}
	p.Role = identity.Role(role)
	return &p, nil
}

// SetPrincipalRole updates a principal's role and returns the updated record.
func (s *Store) SetPrincipalRole(ctx context.Context, id string, role identity.Role) (*identity.Principal, error) {
	var p identity.Principal
	var dbRole string
	err := s.pool.QueryRow(ctx, `
		UPDATE principals SET role = $1, updated_at = $2
		WHERE id = $3
		RETURNING id, name, email, password_digest, role, created_at, updated_at
	`, string(role), time.Now().UTC(), id).Scan(
		&p.ID, &p.Name, &p.Email, &p.PasswordDigest, &dbRole, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating principal role: %w", err)
	}
	p.Role = identity.Role(dbRole)
	return &p, nil
}

// ListPrincipals returns a paginated list of principals ordered by
// creation time, then ID.
func (s *Store) ListPrincipals(ctx context.Context, opts identity.ListOptions) (*identity.PrincipalList, error) {
	limit := clampLimit(opts.Limit)

	query := `
		SELECT id, name, email, password_digest, role, created_at, updated_at
		FROM principals
	`
	args := []any{}
	if opts.After != "" {
		query += `
		WHERE (created_at, id) > (SELECT created_at, id FROM principals WHERE id = $1)
		`
		args = append(args, opts.After)
	}
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT %d", limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing principals: %w", err)
	}
	defer rows.Close()

	list := &identity.PrincipalList{Object: "list", Data: []*identity.Principal{}}
	for rows.Next() {
		if len(list.Data) == limit {
			list.HasMore = true
			break
		}
		var p identity.Principal
		var role string
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordDigest, &role, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning principal: %w", err)
		}
		p.Role = identity.Role(role)
		list.Data = append(list.Data, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing principals: %w", err)
	}

	if len(list.Data) > 0 {
		list.FirstID = list.Data[0].ID
		list.LastID = list.Data[len(list.Data)-1].ID
	}
	return list, nil
}

// SaveTask persists a new task.
func (s *Store) SaveTask(ctx context.Context, t *task.Task) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (id, owner_id, title, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		t.ID, t.OwnerID, t.Title, t.Description, string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, description, status, created_at, updated_at
		FROM tasks WHERE id = $1
	`, id).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	t.Status = task.Status(status)
	return &t, nil
}

// UpdateTask replaces a task's mutable fields.
func (s *Store) UpdateTask(ctx context.Context, t *task.Task) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE tasks SET title = $1, description = $2, status = $3, updated_at = $4
		WHERE id = $5
	`, t.Title, t.Description, string(t.Status), t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListTasks returns a paginated list of tasks matching the options.
func (s *Store) ListTasks(ctx context.Context, opts task.ListOptions) (*task.TaskList, error) {
	limit := clampLimit(opts.Limit)

	cmp, dir := ">", "ASC"
	if opts.Order != "asc" {
		cmp, dir = "<", "DESC"
	}

	query := `
		SELECT id, owner_id, title, description, status, created_at, updated_at
		FROM tasks WHERE 1=1
	`
	args := []any{}
	argIdx := 1

	if opts.Owner != "" {
		query += fmt.Sprintf(" AND owner_id = $%d", argIdx)
		args = append(args, opts.Owner)
		argIdx++
	}
	if opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(opts.Status))
		argIdx++
	}
	if opts.After != "" {
		query += fmt.Sprintf(
			" AND (created_at, id) %s (SELECT created_at, id FROM tasks WHERE id = $%d)",
			cmp, argIdx)
		args = append(args, opts.After)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at %s, id %s LIMIT %d", dir, dir, limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	list := &task.TaskList{Object: "list", Data: []*task.Task{}}
	for rows.Next() {
		if len(list.Data) == limit {
			list.HasMore = true
			break
		}
		var t task.Task
		var status string
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		t.Status = task.Status(status)
		list.Data = append(list.Data, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	if len(list.Data) > 0 {
		list.FirstID = list.Data[0].ID
		list.LastID = list.Data[len(list.Data)-1].ID
	}
	return list, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
