package app

import (
	"net/http"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/domain/grant"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
	"github.com/torchlightrpg/torchlight/internal/services/app/templates"
)

type shareIssueRequest struct {
	Encounter int64 `json:"encounter"`
}

type snapshotResponse struct {
	Encounter encounterResponse `json:"encounter"`
	Campaign  campaignResponse  `json:"campaign"`
	Team      []memberResponse  `json:"team"`
}

// handleEncounterShare issues share grants on POST and redeems them on GET.
func (h *handler) handleEncounterShare(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.issueEncounterShare(w, r)
	case http.MethodGet:
		h.redeemEncounterShare(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "method not allowed"))
	}
}

// issueEncounterShare mints a share grant bound to the requester. Only users
// who can already see the encounter may share it.
func (h *handler) issueEncounterShare(w http.ResponseWriter, r *http.Request) {
	requester := h.userID(r)
	if requester == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "sign in to share an encounter"))
		return
	}

	var req shareIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Encounter <= 0 {
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "encounter is required"))
		return
	}

	encounter, err := h.store.GetEncounter(r.Context(), req.Encounter)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.authorizeEncounterAccess(r, encounter, requester); err != nil {
		writeError(w, err)
		return
	}

	token, err := grant.IssueShare(h.grantCfg, grant.ShareClaims{
		Encounter: encounter.ID,
		User:      requester,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// redeemEncounterShare resolves a share token into an encounter snapshot.
// Authorization is re-checked at redemption time against the user baked into
// the token: a token outlives its usefulness once that user loses access to
// the encounter. Browser requests that fail are bounced to the home page
// instead of surfacing an error body.
func (h *handler) redeemEncounterShare(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.resolveShare(r)
	if err != nil {
		if wantsHTML(r) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		writeError(w, err)
		return
	}

	if wantsHTML(r) {
		h.renderPage(w, r, templates.SharePage(snapshot))
		return
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		Encounter: toEncounterResponse(snapshot.Encounter),
		Campaign:  toCampaignResponse(snapshot.Campaign),
		Team:      toMemberResponses(snapshot.Team),
	})
}

func (h *handler) resolveShare(r *http.Request) (storage.EncounterSnapshot, error) {
	claims, err := grant.ValidateShare(h.grantCfg, r.URL.Query().Get("token"))
	if err != nil {
		return storage.EncounterSnapshot{}, err
	}

	snapshot, err := h.store.EncounterSnapshot(r.Context(), claims.Encounter)
	if err != nil {
		return storage.EncounterSnapshot{}, err
	}

	if !snapshotAllows(snapshot, claims.User) {
		return storage.EncounterSnapshot{}, apperrors.New(apperrors.CodeUnauthorized, "sharer no longer has access to this encounter")
	}
	return snapshot, nil
}

// snapshotAllows reports whether user may currently see the snapshot's
// encounter: its creator, or a present team member of its campaign.
func snapshotAllows(snapshot storage.EncounterSnapshot, user string) bool {
	if user == snapshot.Encounter.CreatedBy {
		return true
	}
	for _, member := range snapshot.Team {
		if member.User == user {
			return true
		}
	}
	return false
}

// authorizeEncounterAccess checks that user may see encounter.
func (h *handler) authorizeEncounterAccess(r *http.Request, encounter storage.Encounter, user string) error {
	if user == encounter.CreatedBy {
		return nil
	}
	member, err := h.store.IsTeamMember(r.Context(), encounter.Campaign, user)
	if err != nil {
		return err
	}
	if !member {
		return apperrors.New(apperrors.CodeUnauthorized, "not a member of this campaign")
	}
	return nil
}
