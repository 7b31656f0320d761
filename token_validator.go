package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenValidator verifies access tokens minted with the same configuration.
// It is side-effect free and safe to call on every request.
type TokenValidator struct {
	cfg        Config
	signingKey []byte
	now        Clock
	logger     Logger
}

// TokenValidatorOption customizes validator construction.
type TokenValidatorOption func(*TokenValidator)

// WithValidatorClock injects a custom clock (useful for tests).
func WithValidatorClock(clock Clock) TokenValidatorOption {
	return func(tv *TokenValidator) {
		if clock != nil {
			tv.now = clock
		}
	}
}

// WithValidatorLogger overrides the validator's logger.
func WithValidatorLogger(logger Logger) TokenValidatorOption {
	return func(tv *TokenValidator) {
		if logger != nil {
			tv.logger = logger
		}
	}
}

// NewTokenValidator creates a validator from the given configuration.
func NewTokenValidator(cfg Config, opts ...TokenValidatorOption) (*TokenValidator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid token configuration")
	}
	cfg = cfg.withDefaults()

	tv := &TokenValidator{
		cfg:        cfg,
		signingKey: []byte(cfg.SecretKey),
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(tv)
		}
	}

	return tv, nil
}

// Validate parses and verifies a token string, returning structured claims.
// Signature, signing method, issuer, audience, and lifetime (with the
// configured clock-skew leeway) are all enforced.
func (tv *TokenValidator) Validate(tokenString string) (*AccessClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{tv.cfg.Algorithm}),
		jwt.WithLeeway(tv.cfg.ClockSkew()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tv.now),
	}
	if tv.cfg.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(tv.cfg.Issuer))
	}
	if len(tv.cfg.Audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(tv.cfg.Audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tv.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "access token has expired").
				WithCode(goerrors.CodeUnauthorized)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "invalid access token").
			WithCode(goerrors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		tv.logger.Error("token validator could not decode claims")
		return nil, goerrors.New("invalid access token", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	return claims, nil
}

// ValidateAccessToken is the boundary-facing query: it never returns an
// error for forged, malformed, or expired input, only an invalid result
// carrying no partial claims.
func (tv *TokenValidator) ValidateAccessToken(tokenString string) TokenValidationResult {
	claims, err := tv.Validate(tokenString)
	if err != nil {
		return TokenValidationResult{IsValid: false}
	}

	var expiresAt *time.Time
	if exp := claims.Expires(); !exp.IsZero() {
		expiresAt = &exp
	}

	return TokenValidationResult{
		IsValid:   true,
		SubjectID: claims.SubjectID(),
		ExpiresAt: expiresAt,
	}
}
