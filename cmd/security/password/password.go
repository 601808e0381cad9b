package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

// GenerateSalt returns a fresh per-account salt as a base64url string.
// The raw bytes come from crypto/rand; collisions are not a practical concern
// at the configured length.
func (c Config) GenerateSalt() (string, error) {
	n := c.Params.SaltLength
	if n < 8 {
		n = 16
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash derives an Argon2id key from password and salt and returns it base64url
// encoded. The salt is treated as an opaque string: the same (password, salt)
// pair always yields the same hash.
func (c Config) Hash(password, salt string) string {
	key := argon2.IDKey(
		[]byte(password),
		[]byte(salt),
		c.Params.Iterations,
		c.Params.MemoryKiB,
		c.Params.Parallelism,
		c.Params.KeyLength,
	)
	return base64.RawURLEncoding.EncodeToString(key)
}

// HashNew generates a fresh salt and hashes password with it.
// This is the registration path.
func (c Config) HashNew(password string) (hash, salt string, err error) {
	salt, err = c.GenerateSalt()
	if err != nil {
		return "", "", err
	}
	return c.Hash(password, salt), salt, nil
}

// Verify recomputes the hash for candidate and compares it to storedHash in
// constant time. An empty stored hash never verifies; seeded accounts without
// credentials stay unloginable.
func (c Config) Verify(candidate, storedHash, storedSalt string) bool {
	if storedHash == "" {
		return false
	}

	computed := c.Hash(candidate, storedSalt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
