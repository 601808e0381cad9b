// Package identity holds the durable account model and its persistence
// boundary: the identity record, the reserved-handle policy, typed store
// errors, and the Postgres-backed store.
//
// Credential material (hash + salt) passes through this package opaquely;
// hashing and verification live in cmd/security/password.
package identity
