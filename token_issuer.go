package auth

import (
	"crypto/rand"
	"encoding/base64"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// refreshTokenEntropyBytes is the raw entropy behind each opaque refresh
// token before base64 encoding.
const refreshTokenEntropyBytes = 64

// TokenIssuer mints HMAC-SHA256 access tokens and opaque refresh tokens. It
// is stateless: persisting refresh tokens against users is the
// orchestrator's job.
type TokenIssuer struct {
	cfg        Config
	signingKey []byte
	now        Clock
	logger     Logger
}

// TokenIssuerOption customizes issuer construction.
type TokenIssuerOption func(*TokenIssuer)

// WithIssuerClock injects a custom clock (useful for tests).
func WithIssuerClock(clock Clock) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		if clock != nil {
			ti.now = clock
		}
	}
}

// WithIssuerLogger overrides the issuer's logger.
func WithIssuerLogger(logger Logger) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		if logger != nil {
			ti.logger = logger
		}
	}
}

// NewTokenIssuer creates an issuer from the given configuration.
func NewTokenIssuer(cfg Config, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid token configuration")
	}
	cfg = cfg.withDefaults()

	ti := &TokenIssuer{
		cfg:        cfg,
		signingKey: []byte(cfg.SecretKey),
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ti)
		}
	}

	return ti, nil
}

// IssueAccessToken signs a claim set for the user with the given resolved
// roles and permissions. No storage is touched.
func (ti *TokenIssuer) IssueAccessToken(user *User, roles, permissions []string) (AccessTokenResult, error) {
	if user == nil {
		return AccessTokenResult{}, goerrors.New("user must not be nil", goerrors.CategoryBadInput)
	}

	now := ti.now()
	expiresAt := now.Add(ti.cfg.AccessTokenTTL())

	var aud jwt.ClaimStrings
	if len(ti.cfg.Audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ti.cfg.Audience))
		copy(aud, ti.cfg.Audience)
	}

	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.cfg.Issuer,
			Subject:   user.ID.String(),
			Audience:  aud,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Roles:          sortedCopy(roles),
		Permissions:    sortedCopy(permissions),
		EmailVerified:  user.EmailVerified,
		MobileVerified: user.MobileVerified,
		UserVerified:   user.UserVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ti.signingKey)
	if err != nil {
		return AccessTokenResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}

	return AccessTokenResult{
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// IssueRefreshToken produces a cryptographically random opaque token. The
// caller persists it against the owning user together with an expiry of
// now + Config.RefreshTokenTTL.
func (ti *TokenIssuer) IssueRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate refresh token entropy")
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// RefreshTokenTTL exposes the configured refresh-token validity window.
func (ti *TokenIssuer) RefreshTokenTTL() time.Duration {
	return ti.cfg.RefreshTokenTTL()
}

// sortedCopy keeps claim ordering deterministic across mints.
func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
