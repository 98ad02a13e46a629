// Package transport defines the middleware chain and error serialization
// helpers for the opgave HTTP transport layer.
//
// The transport layer bridges external clients and opgave's service layer.
// It deserializes incoming requests into the wire types defined in pkg/api,
// dispatches them to the identity and task services, and serializes
// responses back to the client as JSON.
//
// # Middleware
//
// Middleware wraps http.Handler with cross-cutting concerns. Built-in
// middleware provides panic recovery, request ID assignment (X-Request-ID),
// and structured logging via log/slog. The authentication gate lives in
// pkg/auth and composes with the middleware defined here.
package transport
