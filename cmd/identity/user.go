package identity

import (
	"strconv"
	"strings"
	"time"
)

const (
	// RootUserID is the organization's root/admin account. Its tier is never
	// changed by a non-elevated edit.
	RootUserID int64 = 0

	// DefaultGroupID is the group every new identity joins at registration.
	DefaultGroupID int64 = 0

	// HandleMaxLen bounds the short lookup handle.
	HandleMaxLen = 39

	// MmostMaxLen bounds the external-messaging handle.
	MmostMaxLen = 22
)

// TierElevated is the threshold above which an identity is admin-capable.
// Tier 0 is a standard member.
const TierElevated = 1

// User is the durable account record. PasswordHash and Salt never leave the
// server: they are excluded from every client-facing serialization.
type User struct {
	ID           int64     `json:"id"`
	RealName     string    `json:"real_name"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email"`
	Mmost        string    `json:"mmost"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	Bio          string    `json:"bio"`
	Active       bool      `json:"active"`
	Tier         int       `json:"tier"`
	JoinedOn     time.Time `json:"joined_on"`
}

// Elevated reports whether the identity may perform administrative actions.
func (u User) Elevated() bool { return u.Tier > TierElevated }

// NewUser is the registration input. The caller has already hashed the
// password; tier and active are fixed at insertion (0, true).
type NewUser struct {
	RealName     string
	Handle       string
	Email        string
	Mmost        string
	PasswordHash string
	Salt         string
}

// UpdateUser is the edit input. The caller decides whether PasswordHash/Salt
// carry fresh credentials or the existing ones; JoinedOn is immutable and has
// no field here.
type UpdateUser struct {
	RealName     string
	Handle       string
	Email        string
	Mmost        string
	PasswordHash string
	Salt         string
	Bio          string
	Active       bool
	Tier         int
}

// reservedHandles are names that can never be registered, matched
// case-insensitively. Loaded once; never mutated at runtime.
var reservedHandles = map[string]bool{
	"new":   true,
	"start": true,
	"edit":  true,
	"admin": true,
	"lodge": true,
}

// IsReservedHandle reports whether handle may not be used as an account
// handle: either it is on the reserved list or it parses as a plain
// non-negative integer. Integer handles would be ambiguous with numeric
// identity lookups in profile URLs.
func IsReservedHandle(handle string) bool {
	h := strings.ToLower(strings.TrimSpace(handle))
	if reservedHandles[h] {
		return true
	}
	if _, err := strconv.ParseUint(h, 10, 64); err == nil {
		return true
	}
	return false
}
