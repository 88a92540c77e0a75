package grant

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
)

// ShareClaims captures a validated encounter share grant.
type ShareClaims struct {
	Encounter int64
	User      string
}

// shareGrantClaims is the wire shape for share grants. Unlike join grants,
// the encounter and user fields live at the top level; the two schemas are
// versioned independently and share only the signing secret.
type shareGrantClaims struct {
	jwt.RegisteredClaims
	Encounter *int64  `json:"encounter"`
	User      *string `json:"user"`
}

// IssueShare mints a signed share grant for claims with a one-week expiry.
//
// Share grants are reusable read-only capabilities: nothing is persisted at
// issuance and redemption does not consume them.
func IssueShare(cfg Config, claims ShareClaims) (string, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return "", err
	}
	if claims.Encounter <= 0 {
		return "", apperrors.New(apperrors.CodeInvalidRequest, "encounter is required")
	}
	user := strings.TrimSpace(claims.User)
	if user == "" {
		return "", apperrors.New(apperrors.CodeInvalidRequest, "user is required")
	}

	now := cfg.Now().UTC()
	encounter := claims.Encounter
	return sign(cfg, shareGrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
		Encounter: &encounter,
		User:      &user,
	})
}

// ValidateShare verifies a share grant and returns its claims.
func ValidateShare(cfg Config, token string) (ShareClaims, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return ShareClaims{}, err
	}

	var parsed shareGrantClaims
	if err := parse(cfg, token, &parsed); err != nil {
		return ShareClaims{}, err
	}
	if err := checkTimes(cfg, parsed.RegisteredClaims); err != nil {
		return ShareClaims{}, err
	}

	if parsed.Encounter == nil || *parsed.Encounter <= 0 {
		return ShareClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"share grant encounter is missing",
			map[string]string{"Field": "encounter"},
		)
	}
	if parsed.User == nil || strings.TrimSpace(*parsed.User) == "" {
		return ShareClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"share grant user is missing",
			map[string]string{"Field": "user"},
		)
	}

	return ShareClaims{
		Encounter: *parsed.Encounter,
		User:      strings.TrimSpace(*parsed.User),
	}, nil
}
