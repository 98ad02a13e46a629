// Package identity owns principal records and the credential operations
// over them: registration with an atomic email-uniqueness guarantee,
// login verification, and role management.
//
// The package defines the Store interface that storage adapters implement
// and a Service that layers password hashing and the credential policy on
// top of a Store. Password digests never leave this package in serialized
// form; the Principal type excludes them from JSON output.
package identity
