// Package storage provides utilities shared across storage adapter
// implementations, including the sentinel errors the adapters translate
// database outcomes into.
//
// Storage adapters (memory, postgres) implement the identity.Store and
// task.Store interfaces defined alongside their domain types. This package
// contains only shared helpers, not the interfaces themselves.
package storage
