package integration

import (
	"net/http"
	"testing"

	"github.com/mkirkeby/opgave/pkg/api"
	"github.com/mkirkeby/opgave/pkg/task"
)

func createTask(t *testing.T, bearer, title string) task.Task {
	t.Helper()
	resp := doJSON(t, http.MethodPost, testEnv.BaseURL()+"/tasks", map[string]string{
		"title": title,
	}, bearer)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task: status %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var tk task.Task
	decodeJSON(t, resp, &tk)
	return tk
}

func TestTaskLifecycle(t *testing.T) {
	user := registerUser(t, "Worker", "worker-lifecycle@example.com", "task-password")

	created := createTask(t, user.Token, "write quarterly report")
	if created.OwnerID != user.Principal.ID {
		t.Errorf("owner = %s, want the creator %s", created.OwnerID, user.Principal.ID)
	}
	if created.Status != task.StatusOpen {
		t.Errorf("status = %q, want open by default", created.Status)
	}

	// Read it back.
	resp := doJSON(t, http.MethodGet, testEnv.BaseURL()+"/tasks/"+created.ID, nil, user.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get task: status %d: %s", resp.StatusCode, readBody(t, resp))
	}
	resp.Body.Close()

	// Move it through the workflow.
	resp = doJSON(t, http.MethodPatch, testEnv.BaseURL()+"/tasks/"+created.ID, map[string]string{
		"status": "in_progress",
	}, user.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch task: status %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var updated task.Task
	decodeJSON(t, resp, &updated)
	if updated.Status != task.StatusInProgress {
		t.Errorf("status = %q, want in_progress", updated.Status)
	}

	// List shows it.
	resp = doJSON(t, http.MethodGet, testEnv.BaseURL()+"/tasks?status=in_progress", nil, user.Token)
	var list task.TaskList
	decodeJSON(t, resp, &list)
	found := false
	for _, item := range list.Data {
		if item.ID == created.ID {
			found = true
		}
		if item.OwnerID != user.Principal.ID {
			t.Errorf("listing leaked task %s owned by %s", item.ID, item.OwnerID)
		}
	}
	if !found {
		t.Error("updated task missing from the status-filtered listing")
	}

	// Delete it.
	resp = doJSON(t, http.MethodDelete, testEnv.BaseURL()+"/tasks/"+created.ID, nil, user.Token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete task: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, testEnv.BaseURL()+"/tasks/"+created.ID, nil, user.Token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 after delete", resp.StatusCode)
	}
}

func TestTaskOwnershipMasking(t *testing.T) {
	owner := registerUser(t, "Owner", "owner-mask@example.com", "owner-password")
	intruder := registerUser(t, "Intruder", "intruder-mask@example.com", "intruder-password")

	secret := createTask(t, owner.Token, "confidential plan")

	// Another user's access attempts all yield 404, not 403: the response
	// must not confirm the task exists.
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp := doJSON(t, method, testEnv.BaseURL()+"/tasks/"+secret.ID, nil, intruder.Token)
		body := readBody(t, resp)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s as intruder: status = %d, want 404 (body: %s)", method, resp.StatusCode, body)
		}
	}
	resp := doJSON(t, http.MethodPatch, testEnv.BaseURL()+"/tasks/"+secret.ID, map[string]string{
		"title": "hijacked",
	}, intruder.Token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("PATCH as intruder: status = %d, want 404", resp.StatusCode)
	}

	// The intruder's own listing never includes it.
	resp = doJSON(t, http.MethodGet, testEnv.BaseURL()+"/tasks", nil, intruder.Token)
	var list task.TaskList
	decodeJSON(t, resp, &list)
	for _, item := range list.Data {
		if item.ID == secret.ID {
			t.Error("another owner's task appeared in the listing")
		}
	}

	// The owner still has it.
	resp = doJSON(t, http.MethodGet, testEnv.BaseURL()+"/tasks/"+secret.ID, nil, owner.Token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner access: status = %d, want 200", resp.StatusCode)
	}
}

func TestAdminBypassesOwnership(t *testing.T) {
	owner := registerUser(t, "Owner", "owner-admin@example.com", "owner-password")
	adminAcct := registerUser(t, "Admin", "admin-bypass@example.com", "admin-password")
	promoteToAdmin(t, adminAcct.Principal.ID)
	// Re-login so subsequent requests resolve the updated role.
	resp := doJSON(t, http.MethodPost, testEnv.BaseURL()+"/auth/login", map[string]string{
		"email":    "admin-bypass@example.com",
		"password": "admin-password",
	}, "")
	var admin struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp, &admin)

	tk := createTask(t, owner.Token, "visible to admins")

	resp = doJSON(t, http.MethodGet, testEnv.BaseURL()+"/tasks/"+tk.ID, nil, admin.Token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin get: status = %d, want 200", resp.StatusCode)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	user := registerUser(t, "Validator", "validator-task@example.com", "valid-password")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing title", map[string]string{}},
		{"blank title", map[string]string{"title": "   "}},
		{"bad status", map[string]string{"title": "ok", "status": "someday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, testEnv.BaseURL()+"/tasks", tt.body, user.Token)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			var errResp api.ErrorResponse
			decodeJSON(t, resp, &errResp)
			if errResp.Error.Type != api.ErrorTypeInvalidRequest {
				t.Errorf("error.type = %q, want invalid_request", errResp.Error.Type)
			}
		})
	}
}

func TestUpdateTaskRequiresAField(t *testing.T) {
	user := registerUser(t, "Empty", "empty-patch@example.com", "patch-password")
	tk := createTask(t, user.Token, "unchanging")

	resp := doJSON(t, http.MethodPatch, testEnv.BaseURL()+"/tasks/"+tk.ID, map[string]string{}, user.Token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an empty update", resp.StatusCode)
	}
}

func TestMalformedTaskID(t *testing.T) {
	user := registerUser(t, "IDs", "ids-task@example.com", "ids-password")

	resp := doJSON(t, http.MethodGet, testEnv.BaseURL()+"/tasks/not-a-task-id", nil, user.Token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a malformed ID", resp.StatusCode)
	}
}
