// Package grant mints and validates the signed capability tokens behind
// campaign invites and encounter sharing.
//
// A grant is a compact HS256 JWS wrapping an action-scoped claim. Validity is
// solely a function of signature correctness and expiry; there is no
// server-side revocation list. Replay protection, where it exists, lives in
// the consuming endpoint (the one-time invite record for campaign joins).
package grant

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
)

// DefaultTTL is the grant lifetime fixed at issuance.
const DefaultTTL = 7 * 24 * time.Hour

// Config defines how grants are signed and verified.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// normalize fills config defaults and reports whether the config is usable.
func (c Config) normalize() (Config, error) {
	if len(c.Secret) == 0 {
		return Config{}, errors.New("grant signer is not configured")
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}

// sign produces a compact HS256 token for claims.
func sign(cfg Config, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeGrantInvalid, "sign grant", err)
	}
	return signed, nil
}

// parse verifies the signature and decodes claims without validating
// registered claims; expiry is checked by callers against cfg.Now so clocks
// stay injectable in tests.
func parse(cfg Config, token string, claims jwt.Claims) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.New(apperrors.CodeGrantMissing, "grant is required")
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return mapJWTError(err)
	}
	return nil
}

// checkTimes requires exp and compares it against the configured clock.
func checkTimes(cfg Config, registered jwt.RegisteredClaims) error {
	if registered.ExpiresAt == nil {
		return apperrors.New(apperrors.CodeGrantInvalid, "grant exp is required")
	}
	now := cfg.Now().UTC()
	if !registered.ExpiresAt.Time.UTC().After(now) {
		return apperrors.New(apperrors.CodeGrantExpired, "grant is expired")
	}
	return nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeGrantInvalid, "grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeGrantInvalid, "grant alg is invalid")
	}
	return apperrors.Wrap(apperrors.CodeGrantInvalid, "grant is invalid", err)
}
