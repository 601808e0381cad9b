package identity

import "context"

// Store is the identity persistence boundary.
//
// CreateUser and Update surface uniqueness violations as ConflictError with
// the conflicting logical field, so the HTTP layer can translate them into
// form errors even when two registrations race past the pre-checks.
type Store interface {
	// CreateUser inserts a new identity (tier 0, active) together with its
	// default group membership, atomically.
	CreateUser(ctx context.Context, in NewUser) (User, error)

	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByHandle(ctx context.Context, handle string) (User, error)

	EmailTaken(ctx context.Context, email string) (bool, error)
	HandleTaken(ctx context.Context, handle string) (bool, error)
	MmostTaken(ctx context.Context, mmost string) (bool, error)

	// Update overwrites the mutable fields of an identity. Authorization
	// (owner-or-elevated, tier rules) is the caller's responsibility;
	// JoinedOn is never touched.
	Update(ctx context.Context, id int64, up UpdateUser) error

	// Delete removes an identity and, through the schema's cascade, its
	// group memberships.
	Delete(ctx context.Context, id int64) error

	// List returns identities ordered by id, optionally filtered by a
	// case-insensitive substring match on name, email, or handle.
	List(ctx context.Context, search string) ([]User, error)
}
