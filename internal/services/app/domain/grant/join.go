package grant

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
)

// JoinClaims captures a validated campaign join grant.
type JoinClaims struct {
	Campaign int64
	Role     string
	User     string
}

// joinGrantClaims is the wire shape for join grants. The campaign, role, and
// user live nested under a data field; pointers distinguish absent fields
// from zero values so validation rejects instead of coercing.
type joinGrantClaims struct {
	jwt.RegisteredClaims
	Data joinGrantData `json:"data"`
}

type joinGrantData struct {
	Campaign *int64  `json:"campaign"`
	Role     *string `json:"role"`
	User     *string `json:"user"`
}

// IssueJoin mints a signed join grant for claims with a one-week expiry.
func IssueJoin(cfg Config, claims JoinClaims) (string, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return "", err
	}
	if claims.Campaign <= 0 {
		return "", apperrors.New(apperrors.CodeInvalidRequest, "campaign is required")
	}
	role := strings.TrimSpace(claims.Role)
	if role == "" {
		return "", apperrors.New(apperrors.CodeInvalidRequest, "role is required")
	}
	user := strings.TrimSpace(claims.User)
	if user == "" {
		return "", apperrors.New(apperrors.CodeInvalidRequest, "user is required")
	}

	now := cfg.Now().UTC()
	campaign := claims.Campaign
	return sign(cfg, joinGrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
		Data: joinGrantData{
			Campaign: &campaign,
			Role:     &role,
			User:     &user,
		},
	})
}

// ValidateJoin verifies a join grant and returns its claims.
//
// Validation is strict: the payload must carry data.campaign as a number and
// data.role/data.user as non-empty strings. Malformed or differently shaped
// payloads are rejected, never coerced.
func ValidateJoin(cfg Config, token string) (JoinClaims, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return JoinClaims{}, err
	}

	var parsed joinGrantClaims
	if err := parse(cfg, token, &parsed); err != nil {
		return JoinClaims{}, err
	}
	if err := checkTimes(cfg, parsed.RegisteredClaims); err != nil {
		return JoinClaims{}, err
	}

	if parsed.Data.Campaign == nil || *parsed.Data.Campaign <= 0 {
		return JoinClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"join grant campaign is missing",
			map[string]string{"Field": "campaign"},
		)
	}
	if parsed.Data.Role == nil || strings.TrimSpace(*parsed.Data.Role) == "" {
		return JoinClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"join grant role is missing",
			map[string]string{"Field": "role"},
		)
	}
	if parsed.Data.User == nil || strings.TrimSpace(*parsed.Data.User) == "" {
		return JoinClaims{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"join grant user is missing",
			map[string]string{"Field": "user"},
		)
	}

	return JoinClaims{
		Campaign: *parsed.Data.Campaign,
		Role:     strings.TrimSpace(*parsed.Data.Role),
		User:     strings.TrimSpace(*parsed.Data.User),
	}, nil
}
