package app

import (
	"errors"

	"lodge/cmd/security/cookie"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// Fail-fast is intentional: serving sessions signed with a missing or weak
// key would silently issue forgeable identities, so the process refuses to
// boot instead.
func ValidateSecurityConfig() error {
	// Minimum 32 bytes for an HMAC-SHA256 key, measured in bytes because the
	// key is used as raw bytes.
	if _, err := cookie.KeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, cookie.ErrKeyMissing):
			return errors.New("security policy: " + cookie.KeyEnv + " is not set")
		case errors.Is(err, cookie.ErrKeyTooShort):
			return errors.New("security policy: " + cookie.KeyEnv + " is too short (min 32 bytes)")
		default:
			return err
		}
	}
	return nil
}
