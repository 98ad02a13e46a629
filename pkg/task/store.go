package task

import "context"

// ListOptions controls filtering and pagination for task listings.
type ListOptions struct {
	Owner  string // Filter by owner principal ID; empty returns all owners.
	Status Status // Filter by status; empty returns all statuses.
	After  string // Cursor: return tasks after this ID.
	Limit  int    // Maximum number of tasks to return (default 20, max 100).
	Order  string // Sort order by creation time: "asc" or "desc" (default "desc").
}

// TaskList holds a paginated list of tasks.
type TaskList struct {
	Object  string  `json:"object"`
	Data    []*Task `json:"data"`
	HasMore bool    `json:"has_more"`
	FirstID string  `json:"first_id"`
	LastID  string  `json:"last_id"`
}

// Store handles persistence of tasks. Lookups are not owner-scoped; the
// authorization layer decides access after the record is loaded. Returns
// use the storage sentinel errors.
type Store interface {
	// SaveTask persists a new task. Returns storage.ErrConflict if a task
	// with the same ID already exists.
	SaveTask(ctx context.Context, t *Task) error

	// GetTask retrieves a task by ID. Returns storage.ErrNotFound if it
	// does not exist.
	GetTask(ctx context.Context, id string) (*Task, error)

	// UpdateTask replaces a task's mutable fields. Returns
	// storage.ErrNotFound if it does not exist.
	UpdateTask(ctx context.Context, t *Task) error

	// DeleteTask removes a task. Returns storage.ErrNotFound if it does
	// not exist.
	DeleteTask(ctx context.Context, id string) error

	// ListTasks returns a paginated list of tasks matching the options.
	ListTasks(ctx context.Context, opts ListOptions) (*TaskList, error)
}
