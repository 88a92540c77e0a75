package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

func shareToken(t *testing.T, h http.Handler, user string, encounter int64) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/encounter/share", user, shareIssueRequest{Encounter: encounter})
	if rec.Code != http.StatusOK {
		t.Fatalf("share issue status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var issued struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &issued)
	return issued.Token
}

func TestEncounterShareRoundTrip(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	campaign := seedCampaign(t, store, "gm", "Sunless Citadel")
	encounter := seedEncounter(t, store, campaign.ID, "gm", "Goblin Ambush", []storage.Combatant{
		{Name: "Meepo", Initiative: 12},
		{Name: "Goblin", Initiative: 9},
	})
	h := newTestHandler(t, testConfig(), store)

	token := shareToken(t, h, "gm", encounter.ID)

	rec := doJSON(t, h, http.MethodGet, "/encounter/share?token="+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var snapshot snapshotResponse
	decodeBody(t, rec, &snapshot)
	if snapshot.Encounter.ID != encounter.ID {
		t.Fatalf("snapshot encounter = %d, want %d", snapshot.Encounter.ID, encounter.ID)
	}
	if snapshot.Campaign.ID != campaign.ID {
		t.Fatalf("snapshot campaign = %d, want %d", snapshot.Campaign.ID, campaign.ID)
	}
	if len(snapshot.Team) != 1 || snapshot.Team[0].User != "gm" {
		t.Fatalf("snapshot team = %+v", snapshot.Team)
	}
	if len(snapshot.Encounter.Combatants) != 2 {
		t.Fatalf("snapshot combatants = %d, want 2", len(snapshot.Encounter.Combatants))
	}
}

func TestEncounterShareRendersHTML(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	campaign := seedCampaign(t, store, "gm", "Sunless Citadel")
	encounter := seedEncounter(t, store, campaign.ID, "gm", "Goblin Ambush", nil)
	h := newTestHandler(t, testConfig(), store)

	token := shareToken(t, h, "gm", encounter.ID)

	req := httptest.NewRequest(http.MethodGet, "/encounter/share?token="+token, nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Goblin Ambush") {
		t.Fatalf("page does not include the encounter title: %s", rec.Body)
	}
}

func TestEncounterShareIssueRequiresEncounter(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig(), nil)

	rec := doJSON(t, h, http.MethodPost, "/encounter/share", "gm", shareIssueRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body)
	}
	assertErrorCode(t, rec, apperrors.CodeInvalidRequest)
}

func TestEncounterShareIssueRequiresAccess(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	campaign := seedCampaign(t, store, "gm", "Sunless Citadel")
	encounter := seedEncounter(t, store, campaign.ID, "gm", "Goblin Ambush", nil)
	h := newTestHandler(t, testConfig(), store)

	rec := doJSON(t, h, http.MethodPost, "/encounter/share", "stranger", shareIssueRequest{Encounter: encounter.ID})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	assertErrorCode(t, rec, apperrors.CodeUnauthorized)
}

// A share link stops working once the sharer loses access to the encounter.
func TestEncounterShareRevokedWithMembership(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	campaign := seedCampaign(t, store, "gm", "Sunless Citadel")
	encounter := seedEncounter(t, store, campaign.ID, "gm", "Goblin Ambush", nil)
	store.team[campaign.ID] = append(store.team[campaign.ID], storage.TeamMember{
		Campaign: campaign.ID, Role: storage.RolePlayer, User: "meepo",
	})
	h := newTestHandler(t, testConfig(), store)

	token := shareToken(t, h, "meepo", encounter.ID)

	if err := store.RemoveTeamMember(context.Background(), campaign.ID, "meepo"); err != nil {
		t.Fatalf("RemoveTeamMember: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/encounter/share?token="+token, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusForbidden, rec.Body)
	}
	assertErrorCode(t, rec, apperrors.CodeUnauthorized)
}

// Browser clients get bounced home on a bad token instead of an error body.
func TestEncounterShareHTMLFailureRedirectsHome(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/encounter/share?token=garbage", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Fatalf("Location = %q, want %q", got, "/")
	}
}

func TestEncounterShareRejectsJoinToken(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	campaign := seedCampaign(t, store, "gm", "Sunless Citadel")
	h := newTestHandler(t, testConfig(), store)

	issue := doJSON(t, h, http.MethodPost, "/campaign/join", "gm", joinIssueRequest{
		Campaign: campaign.ID, Role: storage.RolePlayer, User: "meepo",
	})
	var issued struct {
		Token string `json:"token"`
	}
	decodeBody(t, issue, &issued)

	rec := doJSON(t, h, http.MethodGet, "/encounter/share?token="+issued.Token, "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	assertErrorCode(t, rec, apperrors.CodeGrantInvalid)
}
