package identity

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are opt-in and require LODGE_DATABASE_URL. Each test runs
// in a throwaway schema so parallel runs cannot interfere.

func mustOpenTestPool(t *testing.T, schema string) *pgxpool.Pool {
	t.Helper()

	url := strings.TrimSpace(os.Getenv("LODGE_DATABASE_URL"))
	if url == "" {
		t.Skip("LODGE_DATABASE_URL not set; skipping integration test")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		t.Fatalf("parse database url: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	return pool
}

func mustApplySchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA %s`, schema),
		`CREATE TABLE users (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			real_name TEXT NOT NULL DEFAULT '',
			handle VARCHAR(39) NOT NULL,
			email TEXT NOT NULL,
			mmost VARCHAR(22) NOT NULL,
			password_hash TEXT NOT NULL,
			salt TEXT NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			tier INTEGER NOT NULL DEFAULT 0,
			joined_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT uq_users_handle UNIQUE (handle),
			CONSTRAINT uq_users_email UNIQUE (email),
			CONSTRAINT uq_users_mmost UNIQUE (mmost)
		)`,
		`CREATE TABLE groups (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id BIGINT REFERENCES users (id) ON DELETE SET NULL,
			location TEXT
		)`,
		`CREATE TABLE group_memberships (
			group_id BIGINT NOT NULL REFERENCES groups (id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			PRIMARY KEY (group_id, user_id)
		)`,
		`INSERT INTO users (id, real_name, handle, email, mmost, password_hash, salt, tier)
		 VALUES (0, 'Administrator', 'lodge-admin', 'admin@localhost', 'lodge-admin', '', '', 2)`,
		`INSERT INTO groups (id, name, owner_id) VALUES (0, 'members', 0)`,
	}

	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			t.Fatalf("apply schema: %v\n%s", err, s)
		}
	}
}

func dropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = pool.Exec(ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %s CASCADE`, schema))
}

func testSchema(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("lodge_test_%d", time.Now().UnixNano())
}

func newUserInput(tag string) NewUser {
	return NewUser{
		RealName:     "Test " + tag,
		Handle:       "handle-" + tag,
		Email:        tag + "@example.com",
		Mmost:        "mm-" + tag,
		PasswordHash: "hash-" + tag,
		Salt:         "salt-" + tag,
	}
}

func TestPostgresStore_CreateAndLookup(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	pool := mustOpenTestPool(t, schema)
	defer pool.Close()
	mustApplySchema(t, pool, schema)
	t.Cleanup(func() { dropSchema(t, pool, schema) })

	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, err := s.CreateUser(ctx, newUserInput("alice"))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", created.ID)
	}
	if created.Tier != 0 || !created.Active {
		t.Fatalf("new identity must be tier 0 and active: %+v", created)
	}
	if created.JoinedOn.IsZero() {
		t.Fatalf("expected joined_on to be set")
	}

	byEmail, err := s.GetByEmail(ctx, "alice@example.com")
	if err != nil || byEmail.ID != created.ID {
		t.Fatalf("get by email: %v (id=%d)", err, byEmail.ID)
	}
	byHandle, err := s.GetByHandle(ctx, "HANDLE-ALICE")
	if err != nil || byHandle.ID != created.ID {
		t.Fatalf("get by handle: %v (id=%d)", err, byHandle.ID)
	}
	byID, err := s.GetByID(ctx, created.ID)
	if err != nil || byID.Email != created.Email {
		t.Fatalf("get by id: %v", err)
	}

	// Registration must also create the default membership.
	var n int
	err = pool.QueryRow(ctx,
		`SELECT count(*) FROM group_memberships WHERE group_id = $1 AND user_id = $2`,
		DefaultGroupID, created.ID).Scan(&n)
	if err != nil || n != 1 {
		t.Fatalf("expected default membership, err=%v n=%d", err, n)
	}
}

func TestPostgresStore_CreateUser_Conflicts(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	pool := mustOpenTestPool(t, schema)
	defer pool.Close()
	mustApplySchema(t, pool, schema)
	t.Cleanup(func() { dropSchema(t, pool, schema) })

	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := s.CreateUser(ctx, newUserInput("bob")); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dupEmail := newUserInput("bob2")
	dupEmail.Email = "bob@example.com"
	_, err = s.CreateUser(ctx, dupEmail)
	if field, ok := ConflictField(err); !ok || field != "email" {
		t.Fatalf("expected email conflict, got %v", err)
	}

	dupHandle := newUserInput("bob3")
	dupHandle.Handle = "handle-bob"
	_, err = s.CreateUser(ctx, dupHandle)
	if field, ok := ConflictField(err); !ok || field != "handle" {
		t.Fatalf("expected handle conflict, got %v", err)
	}

	dupMmost := newUserInput("bob4")
	dupMmost.Mmost = "mm-bob"
	_, err = s.CreateUser(ctx, dupMmost)
	if field, ok := ConflictField(err); !ok || field != "mmost" {
		t.Fatalf("expected mmost conflict, got %v", err)
	}
}

func TestPostgresStore_UpdateAndDelete(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	pool := mustOpenTestPool(t, schema)
	defer pool.Close()
	mustApplySchema(t, pool, schema)
	t.Cleanup(func() { dropSchema(t, pool, schema) })

	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, err := s.CreateUser(ctx, newUserInput("carol"))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	up := UpdateUser{
		RealName:     "Carol Q.",
		Handle:       created.Handle,
		Email:        created.Email,
		Mmost:        created.Mmost,
		PasswordHash: created.PasswordHash,
		Salt:         created.Salt,
		Bio:          "hello",
		Active:       true,
		Tier:         2,
	}
	if err := s.Update(ctx, created.ID, up); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.RealName != "Carol Q." || got.Tier != 2 || got.Bio != "hello" {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.JoinedOn.Equal(created.JoinedOn) {
		t.Fatalf("joined_on must be immutable: %v vs %v", got.JoinedOn, created.JoinedOn)
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByID(ctx, created.ID); !IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	// Memberships cascade with the identity.
	var n int
	err = pool.QueryRow(ctx,
		`SELECT count(*) FROM group_memberships WHERE user_id = $1`, created.ID).Scan(&n)
	if err != nil || n != 0 {
		t.Fatalf("expected cascaded membership removal, err=%v n=%d", err, n)
	}

	if err := s.Delete(ctx, created.ID); !IsNotFound(err) {
		t.Fatalf("expected not found on double delete, got %v", err)
	}
}

func TestPostgresStore_ListAndSearch(t *testing.T) {
	t.Parallel()

	schema := testSchema(t)
	pool := mustOpenTestPool(t, schema)
	defer pool.Close()
	mustApplySchema(t, pool, schema)
	t.Cleanup(func() { dropSchema(t, pool, schema) })

	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, tag := range []string{"dave", "dina", "erin"} {
		if _, err := s.CreateUser(ctx, newUserInput(tag)); err != nil {
			t.Fatalf("create %s: %v", tag, err)
		}
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Seeded root identity plus the three created above.
	if len(all) != 4 {
		t.Fatalf("expected 4 identities, got %d", len(all))
	}

	ds, err := s.List(ctx, "Test D")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("expected 2 matches for %q, got %d", "Test D", len(ds))
	}
}
