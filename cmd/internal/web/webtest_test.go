package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"lodge/cmd/identity"
	"lodge/cmd/security/cookie"
	"lodge/cmd/security/password"

	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory identity.Store with the same conflict semantics
// as the Postgres implementation.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]identity.User

	// failWith makes every call return an infrastructure error.
	failWith error
	// conflictOnCreate simulates a lost check-then-insert race: CreateUser
	// fails with a conflict on this field even when the pre-checks passed.
	conflictOnCreate string
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, users: map[int64]identity.User{}}
}

func (f *fakeStore) seed(u identity.User) identity.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID >= f.nextID {
		f.nextID = u.ID + 1
	}
	if u.JoinedOn.IsZero() {
		u.JoinedOn = time.Now().UTC()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) CreateUser(_ context.Context, in identity.NewUser) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return identity.User{}, f.failWith
	}
	if f.conflictOnCreate != "" {
		return identity.User{}, identity.ConflictError{Op: "fake.CreateUser", Field: f.conflictOnCreate}
	}
	for _, u := range f.users {
		switch {
		case strings.EqualFold(u.Email, in.Email):
			return identity.User{}, identity.ConflictError{Op: "fake.CreateUser", Field: "email"}
		case strings.EqualFold(u.Handle, in.Handle):
			return identity.User{}, identity.ConflictError{Op: "fake.CreateUser", Field: "handle"}
		case strings.EqualFold(u.Mmost, in.Mmost):
			return identity.User{}, identity.ConflictError{Op: "fake.CreateUser", Field: "mmost"}
		}
	}

	u := identity.User{
		ID:           f.nextID,
		RealName:     in.RealName,
		Handle:       in.Handle,
		Email:        in.Email,
		Mmost:        in.Mmost,
		PasswordHash: in.PasswordHash,
		Salt:         in.Salt,
		Active:       true,
		JoinedOn:     time.Now().UTC(),
	}
	f.nextID++
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return identity.User{}, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return identity.User{}, identity.NotFoundError{Op: "fake.GetByID", Resource: "user"}
	}
	return u, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return identity.User{}, f.failWith
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return identity.User{}, identity.NotFoundError{Op: "fake.GetByEmail", Resource: "user"}
}

func (f *fakeStore) GetByHandle(_ context.Context, handle string) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return identity.User{}, f.failWith
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Handle, handle) {
			return u, nil
		}
	}
	return identity.User{}, identity.NotFoundError{Op: "fake.GetByHandle", Resource: "user"}
}

func (f *fakeStore) EmailTaken(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) HandleTaken(_ context.Context, handle string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Handle, handle) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) MmostTaken(_ context.Context, mmost string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Mmost, mmost) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, up identity.UpdateUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return identity.NotFoundError{Op: "fake.Update", Resource: "user"}
	}
	for oid, other := range f.users {
		if oid == id {
			continue
		}
		switch {
		case strings.EqualFold(other.Email, up.Email):
			return identity.ConflictError{Op: "fake.Update", Field: "email"}
		case strings.EqualFold(other.Handle, up.Handle):
			return identity.ConflictError{Op: "fake.Update", Field: "handle"}
		case strings.EqualFold(other.Mmost, up.Mmost):
			return identity.ConflictError{Op: "fake.Update", Field: "mmost"}
		}
	}

	u.RealName = up.RealName
	u.Handle = up.Handle
	u.Email = up.Email
	u.Mmost = up.Mmost
	u.PasswordHash = up.PasswordHash
	u.Salt = up.Salt
	u.Bio = up.Bio
	u.Active = up.Active
	u.Tier = up.Tier
	f.users[id] = u
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.users[id]; !ok {
		return identity.NotFoundError{Op: "fake.Delete", Resource: "user"}
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) List(_ context.Context, search string) ([]identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	var out []identity.User
	needle := strings.ToLower(search)
	for _, u := range f.users {
		if needle == "" ||
			strings.Contains(strings.ToLower(u.RealName), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle) ||
			strings.Contains(strings.ToLower(u.Handle), needle) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeCounters struct {
	mu      sync.Mutex
	signups int
	logins  map[string]int
}

func (c *fakeCounters) CountSignup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signups++
}

func (c *fakeCounters) CountLogin(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logins == nil {
		c.logins = map[string]int{}
	}
	c.logins[outcome]++
}

// cheapPasswords keeps Argon2 fast enough for unit tests.
func cheapPasswords() password.Config {
	return password.Config{Params: password.Argon2idParams{
		MemoryKiB:   8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}}
}

type testSite struct {
	h        *Handler
	mux      *http.ServeMux
	store    *fakeStore
	codec    *cookie.Codec
	counters *fakeCounters
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()

	codec, err := cookie.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	store := newFakeStore()
	counters := &fakeCounters{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h, err := NewHandler(log, store, nil, cheapPasswords(), codec, counters)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)

	return &testSite{h: h, mux: mux, store: store, codec: codec, counters: counters}
}

// seedUser registers an identity directly in the fake store with a real
// password hash so login flows can verify it.
func (s *testSite) seedUser(t *testing.T, id int64, handle, email, mmost, pass string, tier int) identity.User {
	t.Helper()

	hash, salt, err := cheapPasswords().HashNew(pass)
	require.NoError(t, err)

	return s.store.seed(identity.User{
		ID:           id,
		RealName:     "User " + handle,
		Handle:       handle,
		Email:        email,
		Mmost:        mmost,
		PasswordHash: hash,
		Salt:         salt,
		Active:       true,
		Tier:         tier,
	})
}

func (s *testSite) sessionCookie(t *testing.T, id int64) *http.Cookie {
	t.Helper()
	token, err := s.codec.Issue(id, time.Now())
	require.NoError(t, err)
	return &http.Cookie{Name: cookie.Name, Value: token}
}

// do runs one request through the full route table.
func (s *testSite) do(t *testing.T, method, target string, form url.Values, c *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if c != nil {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func signupForm(email, pass, repeat, name, handle, mmost string) url.Values {
	return url.Values{
		"email":           {email},
		"password":        {pass},
		"password_repeat": {repeat},
		"real_name":       {name},
		"handle":          {handle},
		"mmost":           {mmost},
	}
}
