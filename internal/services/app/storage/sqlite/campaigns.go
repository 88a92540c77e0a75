package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

// CreateCampaign inserts a campaign and seats the owner on its team as DM in
// one transaction.
func (s *Store) CreateCampaign(ctx context.Context, campaign storage.Campaign) (storage.Campaign, error) {
	campaign.Name = strings.TrimSpace(campaign.Name)
	if campaign.Name == "" {
		return storage.Campaign{}, apperrors.New(apperrors.CodeCampaignNameEmpty, "campaign name is required")
	}
	campaign.Owner = strings.TrimSpace(campaign.Owner)
	if campaign.Owner == "" {
		return storage.Campaign{}, apperrors.New(apperrors.CodeInvalidRequest, "campaign owner is required")
	}

	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO campaigns (name, description, owner, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			campaign.Name, campaign.Description, campaign.Owner, toMillis(now), toMillis(now),
		)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeUpstreamFailure, "insert campaign", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return apperrors.Wrap(apperrors.CodeUpstreamFailure, "campaign id", err)
		}
		campaign.ID = id

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team (campaign, role, user, added_at) VALUES (?, ?, ?, ?)`,
			campaign.ID, storage.RoleDM, campaign.Owner, toMillis(now),
		); err != nil {
			return apperrors.Wrap(apperrors.CodeUpstreamFailure, "insert owner membership", err)
		}
		return nil
	})
	if err != nil {
		return storage.Campaign{}, err
	}
	return campaign, nil
}

// GetCampaign loads a campaign by id.
func (s *Store) GetCampaign(ctx context.Context, id int64) (storage.Campaign, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, description, owner, created_at, updated_at
		 FROM campaigns WHERE id = ?`, id,
	)
	campaign, err := scanCampaign(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Campaign{}, apperrors.New(apperrors.CodeNotFound, "campaign not found")
		}
		return storage.Campaign{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "get campaign", err)
	}
	return campaign, nil
}

// ListCampaignsForUser returns the campaigns where user holds a team seat.
func (s *Store) ListCampaignsForUser(ctx context.Context, user string) ([]storage.Campaign, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT c.id, c.name, c.description, c.owner, c.created_at, c.updated_at
		 FROM campaigns c
		 JOIN team t ON t.campaign = c.id
		 WHERE t.user = ?
		 ORDER BY c.created_at DESC`, user,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "list campaigns", err)
	}
	defer rows.Close()

	var campaigns []storage.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "scan campaign", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "iterate campaigns", err)
	}
	return campaigns, nil
}

// DeleteCampaign removes a campaign; team seats, invites, sheets, and notes
// cascade with it.
func (s *Store) DeleteCampaign(ctx context.Context, id int64) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamFailure, "delete campaign", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamFailure, "delete campaign result", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "campaign not found")
	}
	return nil
}

// ListTeam returns the team roster for a campaign.
func (s *Store) ListTeam(ctx context.Context, campaign int64) ([]storage.TeamMember, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, campaign, role, user, added_at
		 FROM team WHERE campaign = ? ORDER BY added_at ASC`, campaign,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "list team", err)
	}
	defer rows.Close()

	var members []storage.TeamMember
	for rows.Next() {
		var member storage.TeamMember
		var addedAt int64
		if err := rows.Scan(&member.ID, &member.Campaign, &member.Role, &member.User, &addedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "scan team member", err)
		}
		member.AddedAt = fromMillis(addedAt)
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "iterate team", err)
	}
	return members, nil
}

// IsTeamMember reports whether user currently holds a seat on the campaign.
func (s *Store) IsTeamMember(ctx context.Context, campaign int64, user string) (bool, error) {
	var found int
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM team WHERE campaign = ? AND user = ?`, campaign, user,
	)
	if err := row.Scan(&found); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.CodeUpstreamFailure, "check membership", err)
	}
	return true, nil
}

// RemoveTeamMember drops a user's seat from the campaign.
func (s *Store) RemoveTeamMember(ctx context.Context, campaign int64, user string) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM team WHERE campaign = ? AND user = ?`, campaign, user,
	)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamFailure, "remove team member", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamFailure, "remove team member result", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "team member not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (storage.Campaign, error) {
	var campaign storage.Campaign
	var createdAt, updatedAt int64
	if err := row.Scan(&campaign.ID, &campaign.Name, &campaign.Description, &campaign.Owner, &createdAt, &updatedAt); err != nil {
		return storage.Campaign{}, err
	}
	campaign.CreatedAt = fromMillis(createdAt)
	campaign.UpdatedAt = fromMillis(updatedAt)
	return campaign, nil
}
