package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Credentials composes the user store, access resolver, hasher, token
// issuer/validator, and lockout machine into the four credential flows.
// It is safe for concurrent use across users; writes to a single user are
// version-guarded by the store.
type Credentials struct {
	cfg         Config
	users       UserStore
	resolver    AccessResolver
	hasher      PasswordHasher
	issuer      *TokenIssuer
	validator   *TokenValidator
	lockout     *LockoutMachine
	granter     RoleGranter
	defaultRole string
	logger      Logger
	now         Clock
}

// CredentialsOption customizes orchestrator construction.
type CredentialsOption func(*Credentials)

// WithLogger overrides the orchestrator's logger.
func WithLogger(logger Logger) CredentialsOption {
	return func(c *Credentials) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock injects a custom clock shared by the issuer, validator, and
// lockout machine (useful for tests).
func WithClock(clock Clock) CredentialsOption {
	return func(c *Credentials) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithPasswordHasher swaps the bcrypt default for a custom hasher.
func WithPasswordHasher(hasher PasswordHasher) CredentialsOption {
	return func(c *Credentials) {
		if hasher != nil {
			c.hasher = hasher
		}
	}
}

// WithDefaultRole enables the registration policy that grants every new user
// the named role. Left unset, new users start with no roles and their first
// tokens carry empty role/permission claims.
func WithDefaultRole(granter RoleGranter, roleName string) CredentialsOption {
	return func(c *Credentials) {
		c.granter = granter
		c.defaultRole = roleName
	}
}

// NewCredentials builds the orchestrator. The configuration is validated
// once here; the issuer, validator, and lockout machine all derive from it
// and share the same clock.
func NewCredentials(cfg Config, users UserStore, resolver AccessResolver, opts ...CredentialsOption) (*Credentials, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid auth configuration")
	}
	cfg = cfg.withDefaults()

	c := &Credentials{
		cfg:      cfg,
		users:    users,
		resolver: resolver,
		hasher:   Hasher{},
		logger:   defLogger{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	issuer, err := NewTokenIssuer(cfg, WithIssuerClock(c.now), WithIssuerLogger(c.logger))
	if err != nil {
		return nil, err
	}

	validator, err := NewTokenValidator(cfg, WithValidatorClock(c.now), WithValidatorLogger(c.logger))
	if err != nil {
		return nil, err
	}

	c.issuer = issuer
	c.validator = validator
	c.lockout = NewLockoutMachine(cfg, WithLockoutClock(c.now))

	return c, nil
}

// Issuer exposes the token issuer for callers that mint out-of-band tokens.
func (c *Credentials) Issuer() *TokenIssuer {
	return c.issuer
}

// Validator exposes the token validator for middleware-style callers.
func (c *Credentials) Validator() *TokenValidator {
	return c.validator
}

// RegisterRequest is the registration payload. At least one of Email or
// Mobile must be set.
type RegisterRequest struct {
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Mobile, validation.By(func(any) error {
			if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Mobile) == "" {
				return ErrMissingIdentifier
			}
			return nil
		})),
	)
}

// Register creates a new user and returns their first token bundle. Email
// collisions are rejected case-insensitively; the password must satisfy the
// strength policy before it is hashed.
func (c *Credentials) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithCode(goerrors.CodeBadRequest)
	}

	email := NormalizeEmail(req.Email)
	c.logger.Info("registration attempt", "email", email)

	var mobile string
	if strings.TrimSpace(req.Mobile) != "" {
		var err error
		if mobile, err = NormalizeMobile(req.Mobile); err != nil {
			return nil, err
		}
	}

	if email != "" {
		if _, err := c.users.FindByEmail(ctx, email); err == nil {
			c.logger.Warn("registration rejected, email already claimed", "email", email)
			return nil, duplicateEmailError(email)
		} else if !repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}
	}

	if err := ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	hash, err := c.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user, err := NewUser(email, mobile, "")
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	created, err := c.users.Create(ctx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}

	access := &AccessSet{}
	if c.defaultRole != "" && c.granter != nil {
		if _, err := c.granter.GrantRole(ctx, created.ID, c.defaultRole); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to grant default role")
		}
		if access, err = c.resolver.ResolveAccess(ctx, created.ID); err != nil {
			return nil, err
		}
	}

	result, err := c.finishSession(ctx, created, access)
	if err != nil {
		return nil, err
	}

	c.logger.Info("registration successful", "user_id", created.ID.String())
	return result, nil
}

// Login authenticates an identifier/password pair and returns a fresh token
// bundle. The identifier is an email when it contains '@', otherwise an
// international-format mobile number. A lost concurrency race on the user
// row retries the whole attempt once.
func (c *Credentials) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	result, err := c.login(ctx, identifier, password)
	if err != nil && IsVersionConflict(err) {
		c.logger.Warn("login raced a concurrent update, retrying once")
		return c.login(ctx, identifier, password)
	}
	return result, err
}

func (c *Credentials) login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	user, err := c.lookupByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	// Lock check comes first: a locked account never reaches the hash, so
	// hammering cannot reset or extend the cool-down.
	if locked, until := c.lockout.Locked(user); locked {
		c.logger.Warn("login rejected, account locked", "user_id", user.ID.String())
		return nil, accountLockedError(until)
	}

	if err := c.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		nowLocked := c.lockout.RegisterFailure(user)
		if _, uerr := c.users.Update(ctx, user); uerr != nil {
			if IsVersionConflict(uerr) {
				return nil, uerr
			}
			c.logger.Error("failed to persist login failure", "user_id", user.ID.String(), "error", uerr)
		}
		c.logger.Warn("login failed, invalid password",
			"user_id", user.ID.String(),
			"attempts", user.FailedLoginAttempts,
			"locked", nowLocked,
		)
		return nil, ErrInvalidCredentials
	}

	c.lockout.RegisterSuccess(user)

	access, err := c.resolver.ResolveAccess(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	result, err := c.finishSession(ctx, user, access)
	if err != nil {
		return nil, err
	}

	c.logger.Info("login successful", "user_id", user.ID.String())
	return result, nil
}

// Refresh exchanges a stored refresh token for a new token bundle. Lookup is
// by token, not presumed identity, so a token cannot be replayed against a
// different account. Both tokens rotate: the presented refresh token stops
// resolving the moment the new one persists.
func (c *Credentials) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	user, err := c.users.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			c.logger.Warn("refresh rejected, token unknown or already rotated")
			return nil, ErrInvalidRefreshToken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up refresh token")
	}

	if !user.RefreshTokenValidAt(c.now()) {
		c.logger.Warn("refresh rejected, token expired", "user_id", user.ID.String())
		return nil, ErrRefreshTokenExpired
	}

	if locked, until := c.lockout.Locked(user); locked {
		c.logger.Warn("refresh rejected, account locked", "user_id", user.ID.String())
		return nil, accountLockedError(until)
	}

	// Roles may have changed since the original login; always re-resolve.
	access, err := c.resolver.ResolveAccess(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	result, err := c.finishSession(ctx, user, access)
	if err != nil {
		return nil, err
	}

	c.logger.Info("refresh successful", "user_id", user.ID.String())
	return result, nil
}

// ChangePassword replaces the credential after verifying the current one.
// Outstanding access tokens stay valid until natural expiry; they are
// short-lived by design.
func (c *Credentials) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return userNotFoundError(userID.String())
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if !user.HasPassword() {
		return ErrInvalidCredentials
	}
	if err := c.hasher.ComparePasswordAndHash(currentPassword, user.PasswordHash); err != nil {
		c.logger.Warn("password change rejected, current password incorrect", "user_id", userID.String())
		return ErrInvalidCredentials
	}

	if newPassword == currentPassword {
		return goerrors.New("new password must differ from the current password", goerrors.CategoryValidation).
			WithTextCode(textCodeWeakPassword).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := c.hasher.HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user.PasswordHash = hash
	if _, err := c.users.Update(ctx, user); err != nil {
		return err
	}

	c.logger.Info("password changed", "user_id", userID.String())
	return nil
}

// Unlock is the administrative escape hatch: it clears the lock flag,
// timestamp, and failure counter unconditionally.
func (c *Credentials) Unlock(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, userNotFoundError(userID.String())
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	c.lockout.Unlock(user)

	updated, err := c.users.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	c.logger.Info("account unlocked", "user_id", userID.String())
	return updated, nil
}

// ValidateAccessToken checks a bearer token out-of-band. Forged, malformed,
// and expired tokens all report as invalid without error.
func (c *Credentials) ValidateAccessToken(token string) TokenValidationResult {
	return c.validator.ValidateAccessToken(token)
}

func (c *Credentials) lookupByIdentifier(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)

	var user *User
	var err error

	if strings.Contains(identifier, "@") {
		user, err = c.users.FindByEmail(ctx, NormalizeEmail(identifier))
	} else {
		mobile, merr := NormalizeMobile(identifier)
		if merr != nil {
			// An unparseable identifier is indistinguishable from an unknown
			// one; both normalize to the generic credential failure.
			return nil, ErrInvalidCredentials
		}
		user, err = c.users.FindByMobile(ctx, mobile)
	}

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user")
	}

	return user, nil
}

// finishSession mints the token bundle, rotates the refresh token, stamps a
// new session id, and persists the user in a single version-guarded write.
func (c *Credentials) finishSession(ctx context.Context, user *User, access *AccessSet) (*AuthResult, error) {
	if access == nil {
		access = &AccessSet{}
	}

	accessToken, err := c.issuer.IssueAccessToken(user, access.Roles, access.Permissions)
	if err != nil {
		return nil, err
	}

	refreshToken, err := c.issuer.IssueRefreshToken()
	if err != nil {
		return nil, err
	}

	user.SessionID = uuid.NewString()
	user.SetRefreshToken(refreshToken, c.now().Add(c.issuer.RefreshTokenTTL()))

	updated, err := c.users.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:  accessToken.Token,
		RefreshToken: refreshToken,
		ExpiresAt:    accessToken.ExpiresAt,
		Roles:        access.Roles,
		Permissions:  access.Permissions,
		User:         updated,
	}, nil
}
