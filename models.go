package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity aggregate. It owns its own lock, session, and
// refresh-token state; roles and permissions are shared reference data
// reached through UserRole assignments.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID          uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email       string    `bun:"email,nullzero,unique" json:"email,omitempty"`
	Mobile      string    `bun:"mobile,nullzero,unique" json:"mobile,omitempty"`
	IdentityRef string    `bun:"identity_ref,nullzero" json:"identity_ref,omitempty"`
	SessionID   string    `bun:"session_id,nullzero" json:"session_id,omitempty"`

	PasswordHash       string     `bun:"password_hash,nullzero" json:"-"`
	RefreshToken       string     `bun:"refresh_token,nullzero" json:"-"`
	RefreshTokenExpiry *time.Time `bun:"refresh_token_expiry,nullzero" json:"-"`

	IsLocked            bool       `bun:"is_locked" json:"is_locked,omitempty"`
	LockedUntil         *time.Time `bun:"locked_until,nullzero" json:"locked_until,omitempty"`
	FailedLoginAttempts int        `bun:"failed_login_attempts" json:"failed_login_attempts,omitempty"`

	EmailVerified    bool       `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	EmailVerifiedAt  *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	MobileVerified   bool       `bun:"is_mobile_verified" json:"is_mobile_verified,omitempty"`
	MobileVerifiedAt *time.Time `bun:"mobile_verified_at,nullzero" json:"mobile_verified_at,omitempty"`
	UserVerified     bool       `bun:"is_user_verified" json:"is_user_verified,omitempty"`
	UserVerifiedAt   *time.Time `bun:"user_verified_at,nullzero" json:"user_verified_at,omitempty"`

	Version   int64      `bun:"version" json:"version,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	CreatedBy string     `bun:"created_by,nullzero" json:"created_by,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	UpdatedBy string     `bun:"updated_by,nullzero" json:"updated_by,omitempty"`
}

// NewUser constructs a user, enforcing that at least one identity handle is
// present. Emails are stored lowercase so lookups stay case-insensitive.
func NewUser(email, mobile, identityRef string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	mobile = strings.TrimSpace(mobile)
	identityRef = strings.TrimSpace(identityRef)

	if email == "" && mobile == "" && identityRef == "" {
		return nil, ErrMissingIdentifier
	}

	return &User{
		Email:       email,
		Mobile:      mobile,
		IdentityRef: identityRef,
	}, nil
}

// HasPassword reports whether a credential hash is set. Users created through
// external identities may have none.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// SetRefreshToken stores a freshly rotated refresh token with its expiry.
// The previous token stops resolving the moment this record is persisted.
func (u *User) SetRefreshToken(token string, expiry time.Time) {
	u.RefreshToken = token
	u.RefreshTokenExpiry = &expiry
}

// ClearRefreshToken revokes the outstanding refresh token.
func (u *User) ClearRefreshToken() {
	u.RefreshToken = ""
	u.RefreshTokenExpiry = nil
}

// RefreshTokenValidAt reports whether the stored refresh token is present
// and unexpired at the given instant.
func (u *User) RefreshTokenValidAt(now time.Time) bool {
	return u.RefreshToken != "" &&
		u.RefreshTokenExpiry != nil &&
		u.RefreshTokenExpiry.After(now)
}

// VerifyEmail marks the email address as confirmed.
func (u *User) VerifyEmail(now time.Time) {
	u.EmailVerified = true
	u.EmailVerifiedAt = &now
}

// VerifyMobile marks the mobile number as confirmed.
func (u *User) VerifyMobile(now time.Time) {
	u.MobileVerified = true
	u.MobileVerifiedAt = &now
}

// VerifyUser marks the external identity as confirmed.
func (u *User) VerifyUser(now time.Time) {
	u.UserVerified = true
	u.UserVerifiedAt = &now
}

// UnverifyEmail clears email confirmation, e.g. after an address change.
func (u *User) UnverifyEmail() {
	u.EmailVerified = false
	u.EmailVerifiedAt = nil
}

// UnverifyMobile clears mobile confirmation.
func (u *User) UnverifyMobile() {
	u.MobileVerified = false
	u.MobileVerifiedAt = nil
}

// IsFullyVerified reports whether every verification flag is set.
func (u *User) IsFullyVerified() bool {
	return u.EmailVerified && u.MobileVerified && u.UserVerified
}

// Role is shared reference data, seeded once and rarely mutated. Removal is
// deactivation, never deletion.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name      string     `bun:"name,notnull,unique" json:"name,omitempty"`
	IsActive  bool       `bun:"is_active" json:"is_active,omitempty"`
	Version   int64      `bun:"version" json:"version,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Permission names a resource+action pair.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:per"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name      string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Resource  string     `bun:"resource,notnull" json:"resource,omitempty"`
	Action    string     `bun:"action,notnull" json:"action,omitempty"`
	IsActive  bool       `bun:"is_active" json:"is_active,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserRole links a user to a role. An assignment contributes to resolution
// only while it is active, unexpired, and its role is active.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	ID         uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID     uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	RoleID     uuid.UUID  `bun:"role_id,notnull,type:uuid" json:"role_id,omitempty"`
	Role       *Role      `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	AssignedAt *time.Time `bun:"assigned_at,nullzero,default:current_timestamp" json:"assigned_at,omitempty"`
	ExpiresAt  *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	IsActive   bool       `bun:"is_active" json:"is_active,omitempty"`
}

// ValidAt applies the assignment half of the validity rule: active and not
// expired. Role activity is checked separately because the role row is shared.
func (a *UserRole) ValidAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

// RolePermission links a role to a permission. Same validity rule as
// UserRole minus expiry.
type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	ID           uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	RoleID       uuid.UUID   `bun:"role_id,notnull,type:uuid" json:"role_id,omitempty"`
	PermissionID uuid.UUID   `bun:"permission_id,notnull,type:uuid" json:"permission_id,omitempty"`
	Permission   *Permission `bun:"rel:belongs-to,join:permission_id=id" json:"permission,omitempty"`
	IsActive     bool        `bun:"is_active" json:"is_active,omitempty"`
}
