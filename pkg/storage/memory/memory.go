// Package memory provides in-memory implementations of identity.Store and
// task.Store for testing and lightweight deployments. Records are lost
// when the process restarts.
//
// Email uniqueness is enforced under the store's write lock, giving the
// same atomic check-and-insert guarantee the postgres adapter gets from
// its unique index.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mkirkeby/opgave/pkg/identity"
	"github.com/mkirkeby/opgave/pkg/storage"
	"github.com/mkirkeby/opgave/pkg/task"
)

// Store is an in-memory identity.Store and task.Store.
type Store struct {
	mu         sync.RWMutex
	principals map[string]*identity.Principal // keyed by ID
	emails     map[string]string              // normalized email -> principal ID
	tasks      map[string]*task.Task          // keyed by ID
}

// Compile-time interface checks.
var (
	_ identity.Store = (*Store)(nil)
	_ task.Store     = (*Store)(nil)
)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		principals: make(map[string]*identity.Principal),
		emails:     make(map[string]string),
		tasks:      make(map[string]*task.Task),
	}
}

// CreatePrincipal persists a principal. The email check and insert happen
// under a single write lock, so two concurrent registrations with the
// same email cannot both succeed.
func (s *Store) CreatePrincipal(_ context.Context, p *identity.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.principals[p.ID]; exists {
		return storage.ErrConflict
	}
	email := identity.NormalizeEmail(p.Email)
	if _, taken := s.emails[email]; taken {
		return storage.ErrConflict
	}

	cp := *p
	s.principals[p.ID] = &cp
	s.emails[email] = p.ID
	return nil
}

// GetPrincipalByEmail retrieves a principal by normalized email.
func (s *Store) GetPrincipalByEmail(_ context.Context, email string) (*identity.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[identity.NormalizeEmail(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s.principals[id]
	return &cp, nil
}

// GetPrincipalByID retrieves a principal by ID.
func (s *Store) GetPrincipalByID(_ context.Context, id string) (*identity.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// SetPrincipalRole updates a principal's role.
func (s *Store) SetPrincipalRole(_ context.Context, id string, role identity.Role) (*identity.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.principals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p.Role = role
	p.UpdatedAt = nowUTC()
	cp := *p
	return &cp, nil
}

// ListPrincipals returns principals ordered by creation time, then ID.
func (s *Store) ListPrincipals(_ context.Context, opts identity.ListOptions) (*identity.PrincipalList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]*identity.Principal, 0, len(s.principals))
	for _, p := range s.principals {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	// An unknown cursor yields an empty page, matching the postgres
	// adapter's keyset subquery.
	start := 0
	if opts.After != "" {
		start = len(ordered)
		for i, p := range ordered {
			if p.ID == opts.After {
				start = i + 1
				break
			}
		}
	}

	limit := clampLimit(opts.Limit)

	list := &identity.PrincipalList{Object: "list", Data: []*identity.Principal{}}
	for i := start; i < len(ordered); i++ {
		if len(list.Data) == limit {
			list.HasMore = true
			break
		}
		cp := *ordered[i]
		list.Data = append(list.Data, &cp)
	}

	if len(list.Data) > 0 {
		list.FirstID = list.Data[0].ID
		list.LastID = list.Data[len(list.Data)-1].ID
	}
	return list, nil
}

// SaveTask persists a task.
func (s *Store) SaveTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; exists {
		return storage.ErrConflict
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// UpdateTask replaces a task's mutable fields.
func (s *Store) UpdateTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[t.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// ListTasks returns tasks matching the options, ordered by creation time.
func (s *Store) ListTasks(_ context.Context, opts task.ListOptions) (*task.TaskList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if opts.Owner != "" && t.OwnerID != opts.Owner {
			continue
		}
		if opts.Status != "" && t.Status != opts.Status {
			continue
		}
		ordered = append(ordered, t)
	}

	desc := opts.Order != "asc"
	sort.Slice(ordered, func(i, j int) bool {
		less := ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			less = ordered[i].ID < ordered[j].ID
		}
		if desc {
			return !less
		}
		return less
	})

	start := 0
	if opts.After != "" {
		start = len(ordered)
		for i, t := range ordered {
			if t.ID == opts.After {
				start = i + 1
				break
			}
		}
	}

	limit := clampLimit(opts.Limit)

	list := &task.TaskList{Object: "list", Data: []*task.Task{}}
	for i := start; i < len(ordered); i++ {
		if len(list.Data) == limit {
			list.HasMore = true
			break
		}
		cp := *ordered[i]
		list.Data = append(list.Data, &cp)
	}

	if len(list.Data) > 0 {
		list.FirstID = list.Data[0].ID
		list.LastID = list.Data[len(list.Data)-1].ID
	}
	return list, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
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
