package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the fixed claim set carried by every access token:
// registered claims plus role names, permission names, and verification
// status. Fields are explicit so serialization stays deterministic.
type AccessClaims struct {
	jwt.RegisteredClaims
	Roles          []string `json:"roles,omitempty"`
	Permissions    []string `json:"permission,omitempty"`
	EmailVerified  bool     `json:"email_verified"`
	MobileVerified bool     `json:"mobile_verified"`
	UserVerified   bool     `json:"user_verified"`
}

// SubjectID returns the token subject, the user id as issued.
func (c *AccessClaims) SubjectID() string {
	return c.RegisteredClaims.Subject
}

// HasRole checks membership in the role claim.
func (c *AccessClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission checks membership in the permission claim.
func (c *AccessClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Expires returns the expiration time, zero when absent.
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAtTime returns the issuance time, zero when absent.
func (c *AccessClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
