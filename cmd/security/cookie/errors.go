package cookie

import "errors"

var (
	ErrKeyMissing   = errors.New("cookie signing key missing")
	ErrKeyTooShort  = errors.New("cookie signing key too short")
	ErrInvalidToken = errors.New("invalid session token")
)
