package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

// CreateEncounter inserts an initiative sheet.
func (s *Store) CreateEncounter(ctx context.Context, encounter storage.Encounter) (storage.Encounter, error) {
	encounter.Title = strings.TrimSpace(encounter.Title)
	if encounter.Title == "" {
		return storage.Encounter{}, apperrors.New(apperrors.CodeEncounterTitleEmpty, "encounter title is required")
	}
	if encounter.Round <= 0 {
		encounter.Round = 1
	}

	rowsJSON, err := marshalCombatants(encounter.Combatants)
	if err != nil {
		return storage.Encounter{}, err
	}

	now := time.Now().UTC()
	encounter.CreatedAt = now
	encounter.UpdatedAt = now
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO initiative_sheets (campaign, created_by, title, round, turn, rows_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		encounter.Campaign, encounter.CreatedBy, encounter.Title,
		encounter.Round, encounter.Turn, rowsJSON, toMillis(now), toMillis(now),
	)
	if err != nil {
		return storage.Encounter{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "insert encounter", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Encounter{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "encounter id", err)
	}
	encounter.ID = id
	return encounter, nil
}

// GetEncounter loads an initiative sheet by id.
func (s *Store) GetEncounter(ctx context.Context, id int64) (storage.Encounter, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, campaign, created_by, title, round, turn, rows_json, created_at, updated_at
		 FROM initiative_sheets WHERE id = ?`, id,
	)
	encounter, err := scanEncounter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Encounter{}, apperrors.New(apperrors.CodeNotFound, "encounter not found")
		}
		return storage.Encounter{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "get encounter", err)
	}
	return encounter, nil
}

// ListEncounters returns the campaign's initiative sheets, newest first.
func (s *Store) ListEncounters(ctx context.Context, campaign int64) ([]storage.Encounter, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, campaign, created_by, title, round, turn, rows_json, created_at, updated_at
		 FROM initiative_sheets WHERE campaign = ? ORDER BY created_at DESC`, campaign,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "list encounters", err)
	}
	defer rows.Close()

	var encounters []storage.Encounter
	for rows.Next() {
		encounter, err := scanEncounter(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "scan encounter", err)
		}
		encounters = append(encounters, encounter)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "iterate encounters", err)
	}
	return encounters, nil
}

// UpdateEncounter rewrites an initiative sheet's mutable fields.
func (s *Store) UpdateEncounter(ctx context.Context, encounter storage.Encounter) (storage.Encounter, error) {
	encounter.Title = strings.TrimSpace(encounter.Title)
	if encounter.Title == "" {
		return storage.Encounter{}, apperrors.New(apperrors.CodeEncounterTitleEmpty, "encounter title is required")
	}

	rowsJSON, err := marshalCombatants(encounter.Combatants)
	if err != nil {
		return storage.Encounter{}, err
	}

	now := time.Now().UTC()
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE initiative_sheets
		 SET title = ?, round = ?, turn = ?, rows_json = ?, updated_at = ?
		 WHERE id = ?`,
		encounter.Title, encounter.Round, encounter.Turn, rowsJSON, toMillis(now), encounter.ID,
	)
	if err != nil {
		return storage.Encounter{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "update encounter", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Encounter{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "update encounter result", err)
	}
	if affected == 0 {
		return storage.Encounter{}, apperrors.New(apperrors.CodeNotFound, "encounter not found")
	}
	encounter.UpdatedAt = now
	return encounter, nil
}

// DeleteEncounter removes an initiative sheet.
func (s *Store) DeleteEncounter(ctx context.Context, id int64) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM initiative_sheets WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamFailure, "delete encounter", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamFailure, "delete encounter result", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "encounter not found")
	}
	return nil
}

// AdvanceTurn moves the initiative cursor to the next combatant, rolling the
// round over past the last row. Sheets without combatants keep their cursor.
func (s *Store) AdvanceTurn(ctx context.Context, id int64) (storage.Encounter, error) {
	var encounter storage.Encounter
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT id, campaign, created_by, title, round, turn, rows_json, created_at, updated_at
			 FROM initiative_sheets WHERE id = ?`, id,
		)
		var err error
		encounter, err = scanEncounter(row)
		if err != nil {
			if err == sql.ErrNoRows {
				return apperrors.New(apperrors.CodeNotFound, "encounter not found")
			}
			return apperrors.Wrap(apperrors.CodeUpstreamFailure, "load encounter", err)
		}

		if len(encounter.Combatants) > 0 {
			encounter.Turn++
			if encounter.Turn >= len(encounter.Combatants) {
				encounter.Turn = 0
				encounter.Round++
			}
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE initiative_sheets SET round = ?, turn = ?, updated_at = ? WHERE id = ?`,
			encounter.Round, encounter.Turn, toMillis(now), encounter.ID,
		); err != nil {
			return apperrors.Wrap(apperrors.CodeUpstreamFailure, "advance turn", err)
		}
		encounter.UpdatedAt = now
		return nil
	})
	if err != nil {
		return storage.Encounter{}, err
	}
	return encounter, nil
}

// EncounterSnapshot loads an encounter together with its owning campaign and
// the current team roster, the unit returned by share redemption.
func (s *Store) EncounterSnapshot(ctx context.Context, id int64) (storage.EncounterSnapshot, error) {
	encounter, err := s.GetEncounter(ctx, id)
	if err != nil {
		return storage.EncounterSnapshot{}, err
	}
	campaign, err := s.GetCampaign(ctx, encounter.Campaign)
	if err != nil {
		return storage.EncounterSnapshot{}, err
	}
	team, err := s.ListTeam(ctx, encounter.Campaign)
	if err != nil {
		return storage.EncounterSnapshot{}, err
	}
	return storage.EncounterSnapshot{
		Encounter: encounter,
		Campaign:  campaign,
		Team:      team,
	}, nil
}

func marshalCombatants(combatants []storage.Combatant) (string, error) {
	if combatants == nil {
		combatants = []storage.Combatant{}
	}
	data, err := json.Marshal(combatants)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidRequest, "encode combatants", err)
	}
	return string(data), nil
}

func scanEncounter(row rowScanner) (storage.Encounter, error) {
	var encounter storage.Encounter
	var rowsJSON string
	var createdAt, updatedAt int64
	if err := row.Scan(
		&encounter.ID, &encounter.Campaign, &encounter.CreatedBy, &encounter.Title,
		&encounter.Round, &encounter.Turn, &rowsJSON, &createdAt, &updatedAt,
	); err != nil {
		return storage.Encounter{}, err
	}
	if err := json.Unmarshal([]byte(rowsJSON), &encounter.Combatants); err != nil {
		return storage.Encounter{}, err
	}
	encounter.CreatedAt = fromMillis(createdAt)
	encounter.UpdatedAt = fromMillis(updatedAt)
	return encounter, nil
}
