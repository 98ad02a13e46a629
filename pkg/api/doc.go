// Package api defines the wire types for the opgave HTTP API: request and
// response bodies for the auth, user, and task endpoints, the structured
// error envelope, and ID generation helpers.
//
// Types in this package are serialization-only. Business rules live in
// pkg/identity and pkg/task; this package carries no behavior beyond
// validation of inbound request shapes.
package api
