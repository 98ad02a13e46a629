// Package auth provides the authentication gate and authorization policy
// for opgave.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (principal resolved), No
// (credentials invalid), or Abstain (can't handle the credential type). A
// configurable default voter decides when all authenticators abstain. The
// gate runs as HTTP middleware, evaluated exactly once per request, and
// attaches the resolved principal to the request context.
//
// Authorization is a separate step: composable predicates (role
// membership, resource ownership) evaluated against the already-resolved
// principal by short-circuit conjunction. The first failing predicate
// determines the rejection.
package auth
