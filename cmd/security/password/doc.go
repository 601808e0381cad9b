// Package password is the credential engine: per-account salt generation,
// Argon2id password hashing, and constant-time verification.
//
// Plaintext passwords enter this package and only the derived hash leaves it.
// Callers persist the (hash, salt) pair; neither is ever sent to a client.
package password
