package app

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

type noteResponse struct {
	ID        int64  `json:"id"`
	Campaign  int64  `json:"campaign"`
	Author    string `json:"author"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Shared    bool   `json:"shared"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type createNoteRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Shared bool   `json:"shared"`
}

func toNoteResponse(n storage.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		Campaign:  n.Campaign,
		Author:    n.Author,
		Title:     n.Title,
		Body:      n.Body,
		Shared:    n.Shared,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// handleCampaignNotes lists or creates notes under a campaign. Listing only
// surfaces shared notes plus the viewer's own private ones.
func (h *handler) handleCampaignNotes(w http.ResponseWriter, r *http.Request, campaign int64, user string) {
	if _, err := h.requireCampaignMember(r, campaign, user); err != nil {
		writeError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		notes, err := h.store.ListNotes(r.Context(), campaign, user)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]noteResponse, 0, len(notes))
		for _, n := range notes {
			out = append(out, toNoteResponse(n))
		}
		writeJSON(w, http.StatusOK, map[string]any{"notes": out})
	case http.MethodPost:
		var req createNoteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		note, err := h.store.CreateNote(r.Context(), storage.Note{
			Campaign: campaign,
			Author:   user,
			Title:    req.Title,
			Body:     req.Body,
			Shared:   req.Shared,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toNoteResponse(note))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "method not allowed"))
	}
}

// handleNoteSubtree routes /notes/{id}.
func (h *handler) handleNoteSubtree(w http.ResponseWriter, r *http.Request) {
	user := h.userID(r)
	if user == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "sign in required"))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/notes/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 1 {
		http.NotFound(w, r)
		return
	}
	id, err := pathID(parts[0])
	if err != nil {
		writeError(w, err)
		return
	}

	note, err := h.store.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if err := h.authorizeNoteRead(r, note, user); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toNoteResponse(note))
	case http.MethodDelete:
		if err := h.authorizeNoteDelete(r, note, user); err != nil {
			writeError(w, err)
			return
		}
		if err := h.store.DeleteNote(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "method not allowed"))
	}
}

// authorizeNoteRead lets the author read any of their notes, and campaign
// team members read shared ones.
func (h *handler) authorizeNoteRead(r *http.Request, note storage.Note, user string) error {
	if note.Author == user {
		return nil
	}
	if !note.Shared {
		return apperrors.New(apperrors.CodeUnauthorized, "note is private")
	}
	member, err := h.store.IsTeamMember(r.Context(), note.Campaign, user)
	if err != nil {
		return err
	}
	if !member {
		return apperrors.New(apperrors.CodeUnauthorized, "not a member of this campaign")
	}
	return nil
}

// authorizeNoteDelete restricts deletion to the author or the campaign owner.
func (h *handler) authorizeNoteDelete(r *http.Request, note storage.Note, user string) error {
	if note.Author == user {
		return nil
	}
	campaign, err := h.store.GetCampaign(r.Context(), note.Campaign)
	if err != nil {
		return err
	}
	if campaign.Owner != user {
		return apperrors.New(apperrors.CodeUnauthorized, "only the author or campaign owner can delete a note")
	}
	return nil
}
