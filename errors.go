package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	textCodeAccountLocked       = "ACCOUNT_LOCKED"
	textCodeWeakPassword        = "WEAK_PASSWORD"
	textCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	textCodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	textCodeRefreshTokenExpired = "REFRESH_TOKEN_EXPIRED"
	textCodeUserNotFound        = "USER_NOT_FOUND"
	textCodeVersionConflict     = "VERSION_CONFLICT"
	textCodeInvalidIdentifier   = "INVALID_IDENTIFIER"
)

// ErrInvalidCredentials is returned for unknown identifiers and for wrong
// passwords alike, so callers cannot enumerate accounts from the response.
var ErrInvalidCredentials = goerrors.New("invalid identifier or password", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrWeakPassword is returned when a password fails the strength policy.
var ErrWeakPassword = goerrors.New(
	"password must be at least 8 characters long and contain uppercase, lowercase, digit, and special characters",
	goerrors.CategoryValidation).
	WithTextCode(textCodeWeakPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidRefreshToken is returned when the presented refresh token is
// malformed, unknown, or already rotated away.
var ErrInvalidRefreshToken = goerrors.New("invalid refresh token", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidRefreshToken).
	WithCode(goerrors.CodeBadRequest)

// ErrRefreshTokenExpired is returned when the stored refresh token has passed
// its expiry and a full login is required.
var ErrRefreshTokenExpired = goerrors.New("refresh token has expired", goerrors.CategoryAuth).
	WithTextCode(textCodeRefreshTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrVersionConflict signals a lost optimistic-concurrency race on a
// version-guarded update. Callers retry the whole attempt once.
var ErrVersionConflict = goerrors.New("record was modified concurrently", goerrors.CategoryConflict).
	WithTextCode(textCodeVersionConflict).
	WithCode(goerrors.CodeConflict)

// ErrMissingIdentifier rejects users constructed without any identity handle.
var ErrMissingIdentifier = goerrors.New(
	"at least one of email, mobile, or external identity must be provided",
	goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidIdentifier).
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString rejects empty plaintext passwords at the hashing boundary.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the normalized verification failure for
// wrong passwords and malformed stored hashes.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// accountLockedError carries the retry-after timestamp so the boundary can
// convey when the cool-down lapses.
func accountLockedError(until time.Time) *goerrors.Error {
	return goerrors.New("account is locked due to repeated authentication failures", goerrors.CategoryAuth).
		WithTextCode(textCodeAccountLocked).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{
			"locked_until": until.UTC(),
		})
}

func duplicateEmailError(email string) *goerrors.Error {
	return goerrors.New("email address is already registered", goerrors.CategoryConflict).
		WithTextCode(textCodeDuplicateEmail).
		WithCode(goerrors.CodeConflict).
		WithMetadata(map[string]any{
			"email": email,
		})
}

func userNotFoundError(id string) *goerrors.Error {
	return goerrors.New("user not found", goerrors.CategoryNotFound).
		WithTextCode(textCodeUserNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{
			"user_id": id,
		})
}

func hasTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

// IsInvalidCredentials reports whether err is the normalized credential
// failure.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsAccountLocked reports whether err is a lockout rejection. The second
// return value is the lock expiry when present.
func IsAccountLocked(err error) (bool, time.Time) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != textCodeAccountLocked {
		return false, time.Time{}
	}
	if until, ok := richErr.Metadata["locked_until"].(time.Time); ok {
		return true, until
	}
	return true, time.Time{}
}

// IsWeakPassword reports whether err is a password-policy rejection.
func IsWeakPassword(err error) bool {
	return hasTextCode(err, textCodeWeakPassword)
}

// IsDuplicateEmail reports whether err is a registration email collision.
func IsDuplicateEmail(err error) bool {
	return hasTextCode(err, textCodeDuplicateEmail)
}

// IsInvalidRefreshToken reports whether err is a refresh-token rejection.
func IsInvalidRefreshToken(err error) bool {
	return hasTextCode(err, textCodeInvalidRefreshToken)
}

// IsRefreshTokenExpired reports whether err is a stale refresh token.
func IsRefreshTokenExpired(err error) bool {
	return hasTextCode(err, textCodeRefreshTokenExpired)
}

// IsUserNotFound reports whether err addresses a missing user id.
func IsUserNotFound(err error) bool {
	return hasTextCode(err, textCodeUserNotFound)
}

// IsVersionConflict reports whether err is a lost optimistic-concurrency race.
func IsVersionConflict(err error) bool {
	return hasTextCode(err, textCodeVersionConflict)
}
