package cookie

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Name is the session cookie name. The value is a signed token, not a
	// bare id; clients cannot mint or alter it.
	Name = "user_id"

	// KeyEnv is the env var holding the HMAC signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	KeyEnv = "LODGE_COOKIE_KEY"

	issuer = "lodge"
)

// KeyFromEnv returns the signing key bytes (trimmed), enforcing a minimum
// byte length. Missing/blank -> ErrKeyMissing; too short -> ErrKeyTooShort.
func KeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(KeyEnv))
	if raw == "" {
		return nil, ErrKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrKeyTooShort
	}
	return b, nil
}

// Codec issues and verifies signed session cookie values.
type Codec struct {
	key []byte
}

// NewCodec constructs a Codec. The key must be non-empty; length policy is
// enforced at startup via KeyFromEnv.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, ErrKeyMissing
	}
	return &Codec{key: key}, nil
}

// Issue returns a signed token whose subject is the decimal identity id.
// The token carries no expiry: session lifetime is whatever the cookie
// transport enforces, and logout clears it.
func (c *Codec) Issue(userID int64, now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:   issuer,
		Subject:  strconv.FormatInt(userID, 10),
		IssuedAt: jwt.NewNumericDate(now),
	})
	return tok.SignedString(c.key)
}

// Decode verifies value and returns the identity id it was issued for.
// Any parse, signature, or claim failure yields ErrInvalidToken.
func (c *Codec) Decode(value string) (int64, error) {
	claims := &jwt.RegisteredClaims{}

	tok, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil || !tok.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id < 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Set writes the session cookie for userID onto the response.
func (c *Codec) Set(w http.ResponseWriter, userID int64, now time.Time) error {
	value, err := c.Issue(userID, now)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie. Safe to call when no cookie was present.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest decodes the session cookie on r, if any.
// A missing or invalid cookie yields (0, false), never an error: the guard
// layer treats that as an anonymous visitor.
func (c *Codec) FromRequest(r *http.Request) (int64, bool) {
	ck, err := r.Cookie(Name)
	if err != nil {
		return 0, false
	}
	v := strings.TrimSpace(ck.Value)
	if v == "" {
		return 0, false
	}

	id, err := c.Decode(v)
	if err != nil {
		return 0, false
	}
	return id, true
}
