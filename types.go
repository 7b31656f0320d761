package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time. Inject a fake in tests to drive lock and
// token expiry deterministically.
type Clock func() time.Time

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// UserStore is the persistence contract the auth core consumes. Absence is
// reported as a typed not-found error, never as a nil record with nil error.
// Update is version-guarded: a concurrent modification surfaces as a
// VERSION_CONFLICT error instead of silently overwriting.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByMobile(ctx context.Context, mobile string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByRefreshToken(ctx context.Context, token string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
}

// RoleStore exposes the role/permission reference data needed to resolve a
// user's effective access. Rows are filtered for the active flag at the
// store level; assignment expiry is evaluated by the resolver's clock.
type RoleStore interface {
	GetActiveRoleAssignments(ctx context.Context, userID uuid.UUID) ([]*UserRole, error)
	GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*Permission, error)
}

// RoleGranter creates role assignments. Used by the optional default-role
// registration policy and by admin seeding.
type RoleGranter interface {
	GrantRole(ctx context.Context, userID uuid.UUID, roleName string) (*UserRole, error)
}

// AccessSet is the resolved authorization state for one user: distinct role
// names and the distinct union of permission names across those roles.
type AccessSet struct {
	Roles       []string
	Permissions []string
}

// AccessResolver recomputes the effective access set. It is called on every
// token mint; results are never cached across requests.
type AccessResolver interface {
	ResolveAccess(ctx context.Context, userID uuid.UUID) (*AccessSet, error)
	HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// AccessTokenResult is the ephemeral product of a token mint. Never persisted.
type AccessTokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenValidationResult reports the outcome of an out-of-band bearer token
// check. Invalid tokens carry no partial claims.
type TokenValidationResult struct {
	IsValid   bool       `json:"is_valid"`
	SubjectID string     `json:"subject_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// AuthResult is the success payload shared by Register, Login, and Refresh.
type AuthResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Roles        []string  `json:"roles"`
	Permissions  []string  `json:"permissions"`
	User         *User     `json:"user,omitempty"`
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
