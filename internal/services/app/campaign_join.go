package app

import (
	"net/http"
	"time"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/domain/grant"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

type joinIssueRequest struct {
	Campaign int64  `json:"campaign"`
	Role     string `json:"role"`
	User     string `json:"user"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type joinClaimsResponse struct {
	Campaign int64  `json:"campaign"`
	Role     string `json:"role"`
	User     string `json:"user"`
}

type memberResponse struct {
	Campaign int64  `json:"campaign"`
	Role     string `json:"role"`
	User     string `json:"user"`
	AddedAt  string `json:"added_at"`
}

// handleCampaignJoin issues a join grant for an invited user and records the
// matching one-time invite.
func (h *handler) handleCampaignJoin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	issuer := h.userID(r)
	if issuer == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "sign in to invite users"))
		return
	}

	var req joinIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Campaign <= 0 || req.User == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidRequest, "campaign and user are required"))
		return
	}
	if !storage.ValidRole(req.Role) {
		writeError(w, apperrors.New(apperrors.CodeTeamRoleInvalid, "unknown team role"))
		return
	}

	member, err := h.store.IsTeamMember(r.Context(), req.Campaign, issuer)
	if err != nil {
		writeError(w, err)
		return
	}
	if !member {
		writeError(w, apperrors.New(apperrors.CodeUnauthorized, "only team members can invite"))
		return
	}

	token, err := grant.IssueJoin(h.grantCfg, grant.JoinClaims{
		Campaign: req.Campaign,
		Role:     req.Role,
		User:     req.User,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.store.PutJoinInvite(r.Context(), storage.JoinInvite{
		Token:    token,
		Campaign: req.Campaign,
		Role:     req.Role,
		User:     req.User,
	}); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleCampaignValidateJoin verifies a join grant without consuming it.
func (h *handler) handleCampaignValidateJoin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	claims, err := grant.ValidateJoin(h.grantCfg, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, joinClaimsResponse{
		Campaign: claims.Campaign,
		Role:     claims.Role,
		User:     claims.User,
	})
}

// handleCampaignAcceptInvite redeems a join grant. The token must verify,
// name the requester, and still have a live invite record; redemption deletes
// that record so the token cannot be replayed.
func (h *handler) handleCampaignAcceptInvite(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	requester := h.userID(r)
	if requester == "" {
		writeError(w, apperrors.New(apperrors.CodeUnauthenticated, "sign in to accept an invite"))
		return
	}

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	claims, err := grant.ValidateJoin(h.grantCfg, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	if claims.User != requester {
		writeError(w, apperrors.New(apperrors.CodeUnauthorized, "invite was issued to a different user"))
		return
	}

	member, err := h.store.AcceptInvite(r.Context(), req.Token, requester)
	if err != nil {
		// A verified token with no live invite record means the invite was
		// already redeemed or revoked.
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			err = apperrors.New(apperrors.CodeUnauthorized, "invite is no longer valid")
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, memberResponse{
		Campaign: member.Campaign,
		Role:     member.Role,
		User:     member.User,
		AddedAt:  member.AddedAt.UTC().Format(time.RFC3339),
	})
}
