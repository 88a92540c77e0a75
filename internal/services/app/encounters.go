package app

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

type encounterResponse struct {
	ID         int64               `json:"id"`
	Campaign   int64               `json:"campaign"`
	CreatedBy  string              `json:"created_by"`
	Title      string              `json:"title"`
	Round      int                 `json:"round"`
	Turn       int                 `json:"turn"`
	Combatants []storage.Combatant `json:"combatants"`
	CreatedAt  string              `json:"created_at"`
	UpdatedAt  string              `json:"updated_at"`
}

type encounterRequest struct {
	Title      string              `json:"title"`
	Combatants []storage.Combatant `json:"combatants"`
}

func toEncounterResponse(e storage.Encounter) encounterResponse {
	combatants := e.Combatants
	if combatants == nil {
		combatants = []storage.Combatant{}
	}
	return encounterResponse{
		ID:         e.ID,
		Campaign:   e.Campaign,
		CreatedBy:  e.CreatedBy,
		Title:      e.Title,
		Round:      e.Round,
		Turn:       e.Turn,
		Combatants: combatants,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// handleCampaignEncounters lists or creates encounters under a campaign.
func (h *handler) handleCampaignEncounters(w http.ResponseWriter, r *http.Request, campaign int64, user string) {
	if _, err := h.requireCampaignMember(r, campaign, user); err != nil {
		writeError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		encounters, err := h.store.ListEncounters(r.Context(), campaign)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]encounterResponse, 0, len(encounters))
		for _, e := range encounters {
			out = append(out, toEncounterResponse(e))
		}
		writeJSON(w, http.StatusOK, map[string]any{"encounters": out})
	case http.MethodPost:
		var req encounterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		encounter, err := h.store.CreateEncounter(r.Context(), storage.Encounter{
			Campaign:   campaign,
			CreatedBy:  user,
			Title:      req.Title,
			Combatants: req.Combatants,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEncounterResponse(encounter))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "method not allowed"))
	}
}

// handleEncounterSubtree routes /encounters/{id}[/next-turn].
func (h *handler) handleEncounterSubtree(w http.ResponseWriter, r *http.Request) {
	user := h.userID(r)
	if user == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "sign in required"))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/encounters/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id, err := pathID(parts[0])
	if err != nil {
		writeError(w, err)
		return
	}

	encounter, err := h.store.GetEncounter(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.authorizeEncounterAccess(r, encounter, user); err != nil {
		writeError(w, err)
		return
	}

	switch {
	case len(parts) == 1:
		h.handleEncounterDetail(w, r, encounter, user)
	case len(parts) == 2 && parts[1] == "next-turn":
		h.handleEncounterNextTurn(w, r, encounter.ID)
	default:
		http.NotFound(w, r)
	}
}

func (h *handler) handleEncounterDetail(w http.ResponseWriter, r *http.Request, encounter storage.Encounter, user string) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toEncounterResponse(encounter))
	case http.MethodPut:
		var req encounterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		encounter.Title = req.Title
		encounter.Combatants = req.Combatants
		updated, err := h.store.UpdateEncounter(r.Context(), encounter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEncounterResponse(updated))
	case http.MethodDelete:
		if err := h.authorizeEncounterDelete(r, encounter, user); err != nil {
			writeError(w, err)
			return
		}
		if err := h.store.DeleteEncounter(r.Context(), encounter.ID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "method not allowed"))
	}
}

func (h *handler) handleEncounterNextTurn(w http.ResponseWriter, r *http.Request, id int64) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	encounter, err := h.store.AdvanceTurn(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEncounterResponse(encounter))
}

// authorizeEncounterDelete restricts deletion to the creator or the campaign
// owner.
func (h *handler) authorizeEncounterDelete(r *http.Request, encounter storage.Encounter, user string) error {
	if user == encounter.CreatedBy {
		return nil
	}
	campaign, err := h.store.GetCampaign(r.Context(), encounter.Campaign)
	if err != nil {
		return err
	}
	if campaign.Owner != user {
		return apperrors.New(apperrors.CodeUnauthorized, "only the creator or campaign owner can delete an encounter")
	}
	return nil
}
