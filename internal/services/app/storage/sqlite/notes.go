package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

// CreateNote inserts a campaign note.
func (s *Store) CreateNote(ctx context.Context, note storage.Note) (storage.Note, error) {
	note.Title = strings.TrimSpace(note.Title)
	if note.Title == "" {
		return storage.Note{}, apperrors.New(apperrors.CodeInvalidRequest, "note title is required")
	}

	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now
	result, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO notes (campaign, author, title, body, shared, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.Campaign, note.Author, note.Title, note.Body, boolToInt(note.Shared), toMillis(now), toMillis(now),
	)
	if err != nil {
		return storage.Note{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "insert note", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Note{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "note id", err)
	}
	note.ID = id
	return note, nil
}

// GetNote loads a note by id.
func (s *Store) GetNote(ctx context.Context, id int64) (storage.Note, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, campaign, author, title, body, shared, created_at, updated_at
		 FROM notes WHERE id = ?`, id,
	)
	note, err := scanNote(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return storage.Note{}, apperrors.New(apperrors.CodeNotFound, "note not found")
		}
		return storage.Note{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, "get note", err)
	}
	return note, nil
}

// ListNotes returns the campaign notes visible to viewer: shared notes plus
// the viewer's own private ones.
func (s *Store) ListNotes(ctx context.Context, campaign int64, viewer string) ([]storage.Note, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, campaign, author, title, body, shared, created_at, updated_at
		 FROM notes
		 WHERE campaign = ? AND (shared = 1 OR author = ?)
		 ORDER BY created_at DESC`, campaign, viewer,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "list notes", err)
	}
	defer rows.Close()

	var notes []storage.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "scan note", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, "iterate notes", err)
	}
	return notes, nil
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, id int64) error {
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamFailure, "delete note", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamFailure, "delete note result", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "note not found")
	}
	return nil
}

func scanNote(row rowScanner) (storage.Note, error) {
	var note storage.Note
	var shared int64
	var createdAt, updatedAt int64
	if err := row.Scan(&note.ID, &note.Campaign, &note.Author, &note.Title, &note.Body, &shared, &createdAt, &updatedAt); err != nil {
		return storage.Note{}, err
	}
	note.Shared = shared != 0
	note.CreatedAt = fromMillis(createdAt)
	note.UpdatedAt = fromMillis(updatedAt)
	return note, nil
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
