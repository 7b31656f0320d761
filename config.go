package auth

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Config carries every tunable the token and lockout machinery needs. It is
// passed explicitly into constructors; there is no ambient signing key.
type Config struct {
	SecretKey                    string   `json:"secret_key"`
	Issuer                       string   `json:"issuer"`
	Audience                     []string `json:"audience"`
	AccessTokenExpirationMinutes int      `json:"access_token_expiration_minutes"`
	RefreshTokenExpirationDays   int      `json:"refresh_token_expiration_days"`
	ClockSkewMinutes             int      `json:"clock_skew_minutes"`
	LockoutThreshold             int      `json:"lockout_threshold"`
	LockoutDurationMinutes       int      `json:"lockout_duration_minutes"`
	Algorithm                    string   `json:"algorithm"`
}

const (
	defaultAccessTokenExpirationMinutes = 60
	defaultRefreshTokenExpirationDays   = 30
	defaultClockSkewMinutes             = 5
	defaultLockoutThreshold             = 5
	defaultLockoutDurationMinutes       = 30
	defaultAlgorithm                    = "HS256"

	minSecretKeyLength = 32
)

// Validate rejects configurations that would issue unverifiable or trivially
// forgeable tokens.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SecretKey, validation.Required, validation.Length(minSecretKeyLength, 0)),
		validation.Field(&c.Issuer, validation.Required),
		validation.Field(&c.AccessTokenExpirationMinutes, validation.Min(0)),
		validation.Field(&c.RefreshTokenExpirationDays, validation.Min(0)),
		validation.Field(&c.ClockSkewMinutes, validation.Min(0)),
		validation.Field(&c.LockoutThreshold, validation.Min(0)),
		validation.Field(&c.LockoutDurationMinutes, validation.Min(0)),
		validation.Field(&c.Algorithm, validation.In("", defaultAlgorithm)),
	)
}

func (c Config) withDefaults() Config {
	if c.AccessTokenExpirationMinutes == 0 {
		c.AccessTokenExpirationMinutes = defaultAccessTokenExpirationMinutes
	}
	if c.RefreshTokenExpirationDays == 0 {
		c.RefreshTokenExpirationDays = defaultRefreshTokenExpirationDays
	}
	if c.ClockSkewMinutes == 0 {
		c.ClockSkewMinutes = defaultClockSkewMinutes
	}
	if c.LockoutThreshold == 0 {
		c.LockoutThreshold = defaultLockoutThreshold
	}
	if c.LockoutDurationMinutes == 0 {
		c.LockoutDurationMinutes = defaultLockoutDurationMinutes
	}
	if c.Algorithm == "" {
		c.Algorithm = defaultAlgorithm
	}
	return c
}

// AccessTokenTTL is the validity window of freshly minted access tokens.
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpirationMinutes) * time.Minute
}

// RefreshTokenTTL is the validity window of freshly minted refresh tokens.
func (c Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpirationDays) * 24 * time.Hour
}

// ClockSkew is the leeway applied when validating token lifetimes.
func (c Config) ClockSkew() time.Duration {
	return time.Duration(c.ClockSkewMinutes) * time.Minute
}

// LockoutDuration is the cool-down applied when the failure threshold is hit.
func (c Config) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutDurationMinutes) * time.Minute
}
