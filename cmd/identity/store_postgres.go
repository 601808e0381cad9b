package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Uniqueness is enforced by the schema's unique constraints; violations are
//   classified back into ConflictError so check-then-insert races still end
//   in the right user-facing outcome.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const userColumns = `id, real_name, handle, email, mmost, password_hash, salt, bio, active, tier, joined_on`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.RealName, &u.Handle, &u.Email, &u.Mmost,
		&u.PasswordHash, &u.Salt, &u.Bio, &u.Active, &u.Tier, &u.JoinedOn,
	)
	return u, err
}

// CreateUser inserts the identity and its default group membership in one
// transaction. JoinedOn is assigned by the database at insertion.
func (s *PostgresStore) CreateUser(ctx context.Context, in NewUser) (User, error) {
	const op = "identity.CreateUser"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	email := strings.TrimSpace(in.Email)
	handle := strings.TrimSpace(in.Handle)
	mmost := strings.TrimSpace(in.Mmost)

	if email == "" || handle == "" || mmost == "" {
		return User{}, pgInvalid(op, "email, handle and mmost are required")
	}
	if in.PasswordHash == "" || in.Salt == "" {
		return User{}, pgInvalid(op, "credentials are required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u := User{
		RealName:     strings.TrimSpace(in.RealName),
		Handle:       handle,
		Email:        email,
		Mmost:        mmost,
		PasswordHash: in.PasswordHash,
		Salt:         in.Salt,
		Active:       true,
		Tier:         0,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO users (
		     real_name, handle, email, mmost, password_hash, salt, bio, active, tier
		   ) VALUES ($1, $2, $3, $4, $5, $6, '', TRUE, 0)
		   RETURNING id, joined_on`,
		u.RealName, u.Handle, u.Email, u.Mmost, u.PasswordHash, u.Salt,
	).Scan(&u.ID, &u.JoinedOn)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO group_memberships (group_id, user_id) VALUES ($1, $2)`,
		DefaultGroupID, u.ID,
	)
	if err != nil {
		// An FK failure here means the default group is missing, which is a
		// schema/seed inconsistency, not a user error.
		return User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}

	return u, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (User, error) {
	const op = "identity.GetByID"
	return s.getBy(ctx, op, "id = $1", id)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetByEmail"
	return s.getBy(ctx, op, "email = $1", strings.TrimSpace(email))
}

func (s *PostgresStore) GetByHandle(ctx context.Context, handle string) (User, error) {
	const op = "identity.GetByHandle"
	return s.getBy(ctx, op, "lower(handle) = lower($1)", strings.TrimSpace(handle))
}

func (s *PostgresStore) getBy(ctx context.Context, op, where string, arg any) (User, error) {
	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}

	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.taken(ctx, "email = $1", strings.TrimSpace(email))
}

func (s *PostgresStore) HandleTaken(ctx context.Context, handle string) (bool, error) {
	return s.taken(ctx, "lower(handle) = lower($1)", strings.TrimSpace(handle))
}

func (s *PostgresStore) MmostTaken(ctx context.Context, mmost string) (bool, error) {
	return s.taken(ctx, "mmost = $1", strings.TrimSpace(mmost))
}

func (s *PostgresStore) taken(ctx context.Context, where string, arg any) (bool, error) {
	if s == nil || s.pool == nil {
		return false, OpError{Op: "identity.taken", Kind: ErrInvalidInput, Msg: "nil store"}
	}

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE `+where+`)`, arg).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Update overwrites the mutable identity fields. joined_on is deliberately
// absent from the statement.
func (s *PostgresStore) Update(ctx context.Context, id int64, up UpdateUser) error {
	const op = "identity.Update"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}

	ct, err := s.pool.Exec(ctx,
		`UPDATE users
		    SET real_name = $1, handle = $2, email = $3, mmost = $4,
		        password_hash = $5, salt = $6, bio = $7, active = $8, tier = $9
		  WHERE id = $10`,
		strings.TrimSpace(up.RealName), strings.TrimSpace(up.Handle),
		strings.TrimSpace(up.Email), strings.TrimSpace(up.Mmost),
		up.PasswordHash, up.Salt, up.Bio, up.Active, up.Tier, id,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// Delete removes the identity; group memberships go with it via the schema's
// ON DELETE CASCADE.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	const op = "identity.Delete"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}

	ct, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, search string) ([]User, error) {
	const op = "identity.List"

	if s == nil || s.pool == nil {
		return nil, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}

	var (
		rows pgx.Rows
		err  error
	)
	search = strings.TrimSpace(search)
	if search == "" {
		rows, err = s.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY id`)
	} else {
		term := "%" + search + "%"
		rows, err = s.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users
			  WHERE real_name ILIKE $1 OR email ILIKE $1 OR handle ILIKE $1
			  ORDER BY id`, term)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// pgInvalid standardizes invalid input errors.
func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

// pgClassifyUniqueViolation maps a Postgres unique violation to the logical
// field it protects. Prefers stable constraint names, with a substring
// fallback for renamed constraints.
func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_users_email":
		return "email", true
	case "uq_users_handle":
		return "handle", true
	case "uq_users_mmost":
		return "mmost", true
	default:
		switch {
		case strings.Contains(c, "email"):
			return "email", true
		case strings.Contains(c, "handle"):
			return "handle", true
		case strings.Contains(c, "mmost"):
			return "mmost", true
		default:
			return "unique", true
		}
	}
}
