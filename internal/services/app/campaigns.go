package app

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

type campaignResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type createCampaignRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toCampaignResponse(c storage.Campaign) campaignResponse {
	return campaignResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Owner:       c.Owner,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toMemberResponses(team []storage.TeamMember) []memberResponse {
	out := make([]memberResponse, 0, len(team))
	for _, m := range team {
		out = append(out, memberResponse{
			Campaign: m.Campaign,
			Role:     m.Role,
			User:     m.User,
			AddedAt:  m.AddedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// handleCampaigns lists the requester's campaigns or creates a new one.
func (h *handler) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	user := h.userID(r)
	if user == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "sign in required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		campaigns, err := h.store.ListCampaignsForUser(r.Context(), user)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]campaignResponse, 0, len(campaigns))
		for _, c := range campaigns {
			out = append(out, toCampaignResponse(c))
		}
		writeJSON(w, http.StatusOK, map[string]any{"campaigns": out})
	case http.MethodPost:
		var req createCampaignRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		campaign, err := h.store.CreateCampaign(r.Context(), storage.Campaign{
			Name:        req.Name,
			Description: req.Description,
			Owner:       user,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toCampaignResponse(campaign))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "method not allowed"))
	}
}

// handleCampaignSubtree routes /campaigns/{id}[/team[/{user}]|/encounters|/notes].
func (h *handler) handleCampaignSubtree(w http.ResponseWriter, r *http.Request) {
	user := h.userID(r)
	if user == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "sign in required"))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/campaigns/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id, err := pathID(parts[0])
	if err != nil {
		writeError(w, err)
		return
	}

	switch {
	case len(parts) == 1:
		h.handleCampaignDetail(w, r, id, user)
	case len(parts) == 2 && parts[1] == "team":
		h.handleCampaignTeam(w, r, id, user)
	case len(parts) == 3 && parts[1] == "team":
		h.handleCampaignTeamMember(w, r, id, user, parts[2])
	case len(parts) == 2 && parts[1] == "encounters":
		h.handleCampaignEncounters(w, r, id, user)
	case len(parts) == 2 && parts[1] == "notes":
		h.handleCampaignNotes(w, r, id, user)
	default:
		http.NotFound(w, r)
	}
}

func (h *handler) handleCampaignDetail(w http.ResponseWriter, r *http.Request, id int64, user string) {
	switch r.Method {
	case http.MethodGet:
		campaign, err := h.requireCampaignMember(r, id, user)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCampaignResponse(campaign))
	case http.MethodDelete:
		campaign, err := h.store.GetCampaign(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if campaign.Owner != user {
			writeError(w, apperrors.New(apperrors.CodeUnauthorized, "only the owner can delete a campaign"))
			return
		}
		if err := h.store.DeleteCampaign(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "method not allowed"))
	}
}

func (h *handler) handleCampaignTeam(w http.ResponseWriter, r *http.Request, id int64, user string) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if _, err := h.requireCampaignMember(r, id, user); err != nil {
		writeError(w, err)
		return
	}
	team, err := h.store.ListTeam(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": toMemberResponses(team)})
}

func (h *handler) handleCampaignTeamMember(w http.ResponseWriter, r *http.Request, id int64, user, target string) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}
	campaign, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	// Members can leave on their own; removing anyone else is owner-only.
	if target != user && campaign.Owner != user {
		writeError(w, apperrors.New(apperrors.CodeUnauthorized, "only the owner can remove team members"))
		return
	}
	if target == campaign.Owner {
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "the owner cannot be removed"))
		return
	}
	if err := h.store.RemoveTeamMember(r.Context(), id, target); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireCampaignMember loads the campaign and checks the user sits on its
// team.
func (h *handler) requireCampaignMember(r *http.Request, id int64, user string) (storage.Campaign, error) {
	campaign, err := h.store.GetCampaign(r.Context(), id)
	if err != nil {
		return storage.Campaign{}, err
	}
	member, err := h.store.IsTeamMember(r.Context(), id, user)
	if err != nil {
		return storage.Campaign{}, err
	}
	if !member {
		return storage.Campaign{}, apperrors.New(apperrors.CodeUnauthorized, "not a member of this campaign")
	}
	return campaign, nil
}
