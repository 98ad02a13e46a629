// Package task defines the task resource guarded by the authorization
// policy, and the Store interface its storage adapters implement.
//
// Tasks record the owning principal's ID at creation. The ownership
// decision itself lives in pkg/auth; handlers load a task, then evaluate
// the ownership predicate against its OwnerID.
package task

import (
	"time"

	"github.com/mkirkeby/opgave/pkg/api"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Valid reports whether the status is one of the enumerated values.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is a tracked work item owned by a principal.
type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New creates a task with a fresh ID owned by the given principal.
func New(ownerID, title, description string, status Status) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:          api.NewTaskID(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply copies the non-nil fields of a validated update request onto the
// task and bumps UpdatedAt.
func (t *Task) Apply(req *api.UpdateTaskRequest) {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = Status(*req.Status)
	}
	t.UpdatedAt = time.Now().UTC()
}
