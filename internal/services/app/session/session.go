// Package session resolves the authenticated user identity for app requests.
//
// Login and account flows live with the external identity provider; the app
// only sees a signed session token, carried as a bearer header or cookie.
// Session tokens use a distinct audience so they never validate as capability
// grants despite sharing the HS256 signing scheme.
package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
)

// CookieName is the session cookie carrying the raw session token.
const CookieName = "tl_session"

// Audience marks a token as a session token rather than a capability grant.
const Audience = "torchlight-session"

// DefaultTTL is the session lifetime fixed at issuance.
const DefaultTTL = 30 * 24 * time.Hour

// Config defines how session tokens are signed and verified.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (c Config) normalize() (Config, error) {
	if len(c.Secret) == 0 {
		return Config{}, errors.New("session verifier is not configured")
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c, nil
}

// Issue mints a session token for userID.
func Issue(cfg Config, userID string) (string, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return "", err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", apperrors.New(apperrors.CodeInvalidRequest, "user is required")
	}

	now := cfg.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
	})
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnauthenticated, "sign session token", err)
	}
	return signed, nil
}

// Verify checks a session token and returns the embedded user id.
func Verify(cfg Config, token string) (string, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return "", err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "session token is required")
	}

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnauthenticated, "session token is invalid", err)
	}

	if !audienceContains(claims.Audience, Audience) {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "session token audience mismatch")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.UTC().After(cfg.Now().UTC()) {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "session token is expired")
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "session token subject is empty")
	}
	return userID, nil
}

// FromRequest resolves the user id from the Authorization header or the
// session cookie. A missing or failed resolution yields the empty user id;
// handlers that require identity turn that into an unauthenticated error.
func FromRequest(cfg Config, r *http.Request) string {
	if token := bearerToken(r); token != "" {
		if userID, err := Verify(cfg, token); err == nil {
			return userID
		}
		return ""
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	userID, err := Verify(cfg, cookie.Value)
	if err != nil {
		return ""
	}
	return userID
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
