package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

// PutJoinInvite persists a one-time invite record keyed by its grant token.
func (s *Store) PutJoinInvite(ctx context.Context, invite storage.JoinInvite) (storage.JoinInvite, error) {
	invite.Token = strings.TrimSpace(invite.Token)
	if invite.Token == "" {
		return storage.JoinInvite{}, apperrors.New(apperrors.CodeInvalidRequest, "invite token is required")
	}

	now := time.Now().UTC()
	invite.CreatedAt = now
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO join_campaign (token, campaign, role, user, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		invite.Token, invite.Campaign, invite.Role, invite.User, toMillis(now),
	)
	if err != nil {
		return storage.JoinInvite{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "insert invite", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.JoinInvite{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "invite id", err)
	}
	invite.ID = id
	return invite, nil
}

// GetJoinInviteByToken loads an unredeemed invite record by token.
func (s *Store) GetJoinInviteByToken(ctx context.Context, token string) (storage.JoinInvite, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, token, campaign, role, user, created_at
		 FROM join_campaign WHERE token = ?`, strings.TrimSpace(token),
	)
	var invite storage.JoinInvite
	var createdAt int64
	if err := row.Scan(&invite.ID, &invite.Token, &invite.Campaign, &invite.Role, &invite.User, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return storage.JoinInvite{}, apperrors.New(apperrors.CodeNotFound, "invite not found")
		}
		return storage.JoinInvite{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "get invite", err)
	}
	invite.CreatedAt = fromMillis(createdAt)
	return invite, nil
}

// AcceptInvite redeems a one-time invite: it inserts the team membership and
// deletes the invite record in one transaction. The row deletion is the sole
// replay prevention for join grants; a second acceptance of the same token
// finds no row and fails with not-found.
func (s *Store) AcceptInvite(ctx context.Context, token string, user string) (storage.TeamMember, error) {
	token = strings.TrimSpace(token)
	user = strings.TrimSpace(user)
	if token == "" || user == "" {
		return storage.TeamMember{}, apperrors.New(apperrors.CodeInvalidRequest, "token and user are required")
	}

	var member storage.TeamMember
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT id, campaign, role, user FROM join_campaign WHERE token = ?`, token,
		)
		var inviteID int64
		var campaign int64
		var role, invitedUser string
		if err := row.Scan(&inviteID, &campaign, &role, &invitedUser); err != nil {
			if err == sql.ErrNoRows {
				return apperrors.New(apperrors.CodeNotFound, "invite not found")
			}
			return apperrors.Wrap(apperrors.CodeUpstreamFailure, "load invite", err)
		}
		if invitedUser != user {
			return apperrors.New(apperrors.CodeUnauthorized, "invite belongs to a different user")
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team (campaign, role, user, added_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(campaign, user) DO UPDATE SET role = excluded.role`,
			campaign, role, user, toMillis(now),
		); err != nil {
			return apperrors.Wrap(apperrors.CodeUpstreamFailure, "insert membership", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM join_campaign WHERE id = ?`, inviteID,
		); err != nil {
			return apperrors.Wrap(apperrors.CodeUpstreamFailure, "delete invite", err)
		}

		memberRow := tx.QueryRowContext(ctx,
			`SELECT id, campaign, role, user, added_at FROM team WHERE campaign = ? AND user = ?`,
			campaign, user,
		)
		var addedAt int64
		if err := memberRow.Scan(&member.ID, &member.Campaign, &member.Role, &member.User, &addedAt); err != nil {
			return apperrors.Wrap(apperrors.CodeUpstreamFailure, "load membership", err)
		}
		member.AddedAt = fromMillis(addedAt)
		return nil
	})
	if err != nil {
		return storage.TeamMember{}, err
	}
	return member, nil
}
