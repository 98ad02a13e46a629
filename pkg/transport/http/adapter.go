package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mkirkeby/opgave/pkg/api"
	"github.com/mkirkeby/opgave/pkg/auth"
	"github.com/mkirkeby/opgave/pkg/identity"
	"github.com/mkirkeby/opgave/pkg/observability"
	"github.com/mkirkeby/opgave/pkg/storage"
	"github.com/mkirkeby/opgave/pkg/task"
	"github.com/mkirkeby/opgave/pkg/transport"
)

// TokenIssuer issues bearer tokens for authenticated principals.
// Implemented by token.Service.
type TokenIssuer interface {
	Issue(principalID string) (string, error)
}

// HealthChecker reports whether the backing store is reachable.
// Implemented by both store adapters.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Adapter serves the opgave API over HTTP.
// It routes requests to the identity service and task store and
// serializes responses as JSON.
type Adapter struct {
	identity   *identity.Service
	tasks      task.Store
	tokens     TokenIssuer
	health     HealthChecker
	mux        *http.ServeMux
	config     Config
	validation api.ValidationConfig
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
	}
}

// NewAdapter creates an HTTP adapter over the given services. The health
// checker is optional; when nil, /readyz always reports ready.
func NewAdapter(svc *identity.Service, tasks task.Store, tokens TokenIssuer, health HealthChecker, cfg Config) *Adapter {
	a := &Adapter{
		identity:   svc,
		tasks:      tasks,
		tokens:     tokens,
		health:     health,
		mux:        http.NewServeMux(),
		config:     cfg,
		validation: api.DefaultValidationConfig(),
	}

	adminOnly := auth.Require(auth.RequireRole(identity.RoleAdmin))

	a.mux.HandleFunc("POST /auth/register", a.handleRegister)
	a.mux.HandleFunc("POST /auth/login", a.handleLogin)
	a.mux.HandleFunc("GET /auth/me", a.handleMe)

	a.mux.Handle("GET /users", adminOnly(http.HandlerFunc(a.handleListUsers)))
	a.mux.Handle("PATCH /users/{id}/role", adminOnly(http.HandlerFunc(a.handleSetRole)))

	a.mux.HandleFunc("POST /tasks", a.handleCreateTask)
	a.mux.HandleFunc("GET /tasks", a.handleListTasks)
	a.mux.HandleFunc("GET /tasks/{id}", a.handleGetTask)
	a.mux.HandleFunc("PATCH /tasks/{id}", a.handleUpdateTask)
	a.mux.HandleFunc("DELETE /tasks/{id}", a.handleDeleteTask)

	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)

	return a
}

// Handler returns the http.Handler for this adapter. The authentication
// gate and other middleware are applied by the caller; see Server.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// decodeBody validates the content type, limits the body size, and decodes
// JSON into dst. On failure it writes the error response and returns false.
func (a *Adapter) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}
	return true
}

// handleRegister handles POST /auth/register.
func (a *Adapter) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	if apiErr := api.ValidateRegisterRequest(&req, a.validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	p, err := a.identity.Register(r.Context(), req.Name, req.Email, req.Password, identity.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidRole):
			transport.WriteAPIError(w, api.NewInvalidRequestError("role", "role must be 'user' or 'admin'"))
		case errors.Is(err, identity.ErrDuplicateEmail):
			transport.WriteAPIError(w, api.NewConflictError("email", "an account with this email already exists"))
		default:
			transport.WriteAPIError(w, api.NewServerError("registration failed"))
		}
		return
	}

	token, err := a.tokens.Issue(p.ID)
	if err != nil {
		transport.WriteAPIError(w, api.NewServerError("token issuance failed"))
		return
	}

	observability.RegistrationsTotal.Inc()
	transport.WriteJSON(w, http.StatusCreated, AuthResponse{Principal: p, Token: token})
}

// handleLogin handles POST /auth/login.
func (a *Adapter) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	if apiErr := api.ValidateLoginRequest(&req); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	p, err := a.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			observability.LoginsTotal.WithLabelValues("failure").Inc()
			transport.WriteAPIError(w, api.NewUnauthenticatedError())
			return
		}
		transport.WriteAPIError(w, api.NewServerError("login failed"))
		return
	}

	token, err := a.tokens.Issue(p.ID)
	if err != nil {
		transport.WriteAPIError(w, api.NewServerError("token issuance failed"))
		return
	}

	observability.LoginsTotal.WithLabelValues("success").Inc()
	transport.WriteJSON(w, http.StatusOK, AuthResponse{Principal: p, Token: token})
}

// handleMe handles GET /auth/me.
func (a *Adapter) handleMe(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		transport.WriteAPIError(w, api.NewUnauthenticatedError())
		return
	}
	transport.WriteJSON(w, http.StatusOK, p)
}

// handleListUsers handles GET /users. Admin only.
func (a *Adapter) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := identity.ListOptions{After: q.Get("after")}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			transport.WriteAPIError(w, api.NewInvalidRequestError("limit", "limit must be a positive integer"))
			return
		}
		opts.Limit = limit
	}

	list, err := a.identity.List(r.Context(), opts)
	if err != nil {
		transport.WriteAPIError(w, api.NewServerError("listing users failed"))
		return
	}
	transport.WriteJSON(w, http.StatusOK, list)
}

// handleSetRole handles PATCH /users/{id}/role. Admin only.
func (a *Adapter) handleSetRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !api.ValidatePrincipalID(id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed principal ID"))
		return
	}

	var req api.SetRoleRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	p, err := a.identity.SetRole(r.Context(), id, identity.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidRole):
			transport.WriteAPIError(w, api.NewInvalidRequestError("role", "role must be 'user' or 'admin'"))
		case errors.Is(err, storage.ErrNotFound):
			transport.WriteAPIError(w, api.NewNotFoundError("principal "+id+" not found"))
		default:
			transport.WriteAPIError(w, api.NewServerError("updating role failed"))
		}
		return
	}
	transport.WriteJSON(w, http.StatusOK, p)
}

// handleCreateTask handles POST /tasks.
func (a *Adapter) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		transport.WriteAPIError(w, api.NewUnauthenticatedError())
		return
	}

	var req api.CreateTaskRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	if apiErr := api.ValidateCreateTaskRequest(&req, a.validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	status := task.StatusOpen
	if req.Status != "" {
		status = task.Status(req.Status)
		if !status.Valid() {
			transport.WriteAPIError(w, api.NewInvalidRequestError("status", "status must be 'open', 'in_progress', or 'done'"))
			return
		}
	}

	t := task.New(p.ID, req.Title, req.Description, status)
	if err := a.tasks.SaveTask(r.Context(), t); err != nil {
		transport.WriteAPIError(w, api.NewServerError("creating task failed"))
		return
	}
	transport.WriteJSON(w, http.StatusCreated, t)
}

// handleListTasks handles GET /tasks. Regular users see only their own
// tasks; admins may list any owner's tasks via the owner query parameter,
// or all tasks when it is omitted.
func (a *Adapter) handleListTasks(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		transport.WriteAPIError(w, api.NewUnauthenticatedError())
		return
	}

	opts, apiErr := parseTaskListOptions(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	if p.Role != identity.RoleAdmin {
		opts.Owner = p.ID
	}

	list, err := a.tasks.ListTasks(r.Context(), opts)
	if err != nil {
		transport.WriteAPIError(w, api.NewServerError("listing tasks failed"))
		return
	}
	transport.WriteJSON(w, http.StatusOK, list)
}

// fetchOwnedTask loads a task and checks that the caller may access it.
// A task owned by someone else is reported as not found rather than
// forbidden, so its existence is not revealed to other users.
func (a *Adapter) fetchOwnedTask(w http.ResponseWriter, r *http.Request) (*task.Task, bool) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		transport.WriteAPIError(w, api.NewUnauthenticatedError())
		return nil, false
	}

	id := r.PathValue("id")
	if !api.ValidateTaskID(id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed task ID"))
		return nil, false
	}

	t, err := a.tasks.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("task "+id+" not found"))
		} else {
			transport.WriteAPIError(w, api.NewServerError("loading task failed"))
		}
		return nil, false
	}

	if err := auth.Evaluate(p, auth.RequireOwnerOrRole(t.OwnerID, identity.RoleAdmin)); err != nil {
		transport.WriteAPIError(w, api.NewNotFoundError("task "+id+" not found"))
		return nil, false
	}

	return t, true
}

// handleGetTask handles GET /tasks/{id}.
func (a *Adapter) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.fetchOwnedTask(w, r)
	if !ok {
		return
	}
	transport.WriteJSON(w, http.StatusOK, t)
}

// handleUpdateTask handles PATCH /tasks/{id}.
func (a *Adapter) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.fetchOwnedTask(w, r)
	if !ok {
		return
	}

	var req api.UpdateTaskRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	if apiErr := api.ValidateUpdateTaskRequest(&req, a.validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	if req.Status != nil && !task.Status(*req.Status).Valid() {
		transport.WriteAPIError(w, api.NewInvalidRequestError("status", "status must be 'open', 'in_progress', or 'done'"))
		return
	}

	t.Apply(&req)
	if err := a.tasks.UpdateTask(r.Context(), t); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("task "+t.ID+" not found"))
		} else {
			transport.WriteAPIError(w, api.NewServerError("updating task failed"))
		}
		return
	}
	transport.WriteJSON(w, http.StatusOK, t)
}

// handleDeleteTask handles DELETE /tasks/{id}.
func (a *Adapter) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.fetchOwnedTask(w, r)
	if !ok {
		return
	}

	if err := a.tasks.DeleteTask(r.Context(), t.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("task "+t.ID+" not found"))
		} else {
			transport.WriteAPIError(w, api.NewServerError("deleting task failed"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealthz handles GET /healthz. Liveness only.
func (a *Adapter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReadyz handles GET /readyz. Checks the backing store.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health.HealthCheck(r.Context()); err != nil {
			transport.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	transport.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// parseTaskListOptions extracts filter and pagination parameters from the
// query string.
func parseTaskListOptions(r *http.Request) (task.ListOptions, *api.APIError) {
	q := r.URL.Query()
	opts := task.ListOptions{
		Owner: q.Get("owner"),
		After: q.Get("after"),
		Order: q.Get("order"),
	}

	if status := q.Get("status"); status != "" {
		s := task.Status(status)
		if !s.Valid() {
			return opts, api.NewInvalidRequestError("status", "status must be 'open', 'in_progress', or 'done'")
		}
		opts.Status = s
	}

	if opts.Order != "" && opts.Order != "asc" && opts.Order != "desc" {
		return opts, api.NewInvalidRequestError("order", "order must be 'asc' or 'desc'")
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return opts, api.NewInvalidRequestError("limit", "limit must be a positive integer")
		}
		opts.Limit = limit
	}

	return opts, nil
}
