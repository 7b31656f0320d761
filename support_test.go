package auth_test

import (
	"context"
	"sync"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	auth "github.com/ledgerly/go-auth"
)

// fakeClock is a manually advanced clock shared across the auth components
// under test.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{cur: at}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cur = f.cur.Add(d)
}

func testConfig() auth.Config {
	return auth.Config{
		SecretKey: "0123456789abcdef0123456789abcdef",
		Issuer:    "auth-tests",
		Audience:  []string{"api"},
	}
}

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// memUsers is an in-memory UserStore with the same version-guard contract as
// the bun repository.
type memUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*auth.User{}}
}

func notFound(criteria string) error {
	return repository.NewRecordNotFound().WithMetadata(map[string]any{
		"criteria": criteria,
	})
}

func cloneUser(u *auth.User) *auth.User {
	c := *u
	return &c
}

func (m *memUsers) find(match func(*auth.User) bool, criteria string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, notFound(criteria)
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return u.Email == email }, "email")
}

func (m *memUsers) FindByMobile(_ context.Context, mobile string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return u.Mobile == mobile }, "mobile")
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return u.ID == id }, "id")
}

func (m *memUsers) FindByRefreshToken(_ context.Context, token string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return u.RefreshToken == token }, "refresh_token")
}

func (m *memUsers) Create(_ context.Context, user *auth.User) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Version == 0 {
		user.Version = 1
	}

	m.byID[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (m *memUsers) Update(_ context.Context, user *auth.User) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[user.ID]
	if !ok {
		return nil, notFound("id")
	}
	if stored.Version != user.Version {
		return nil, auth.ErrVersionConflict
	}

	user.Version++
	m.byID[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

var _ auth.UserStore = (*memUsers)(nil)

// fixedResolver returns a canned access set regardless of user.
type fixedResolver struct {
	access *auth.AccessSet
	err    error
}

func (f *fixedResolver) ResolveAccess(context.Context, uuid.UUID) (*auth.AccessSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.access == nil {
		return &auth.AccessSet{}, nil
	}
	return f.access, nil
}

func (f *fixedResolver) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	access, err := f.ResolveAccess(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range access.Permissions {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

var _ auth.AccessResolver = (*fixedResolver)(nil)

// recordingGranter captures default-role grants.
type recordingGranter struct {
	mu     sync.Mutex
	grants []string
}

func (r *recordingGranter) GrantRole(_ context.Context, userID uuid.UUID, roleName string) (*auth.UserRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants = append(r.grants, roleName)
	return &auth.UserRole{
		ID:       uuid.New(),
		UserID:   userID,
		IsActive: true,
	}, nil
}

var _ auth.RoleGranter = (*recordingGranter)(nil)

// countingHasher wraps the real bcrypt hasher and counts verifications, so
// tests can assert that locked accounts never reach the hash.
type countingHasher struct {
	mu       sync.Mutex
	compares int
}

func (h *countingHasher) HashPassword(password string) (string, error) {
	return auth.HashPassword(password)
}

func (h *countingHasher) ComparePasswordAndHash(password, hash string) error {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	return auth.ComparePasswordAndHash(password, hash)
}

func (h *countingHasher) Compares() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compares
}

var _ auth.PasswordHasher = (*countingHasher)(nil)
