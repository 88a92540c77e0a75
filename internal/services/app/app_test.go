package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/session"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
)

var testSecret = []byte("test-secret")

func testConfig() Config {
	return Config{
		GrantSecret:   testSecret,
		SessionSecret: testSecret,
	}
}

func newTestHandler(t *testing.T, cfg Config, store storage.Store) http.Handler {
	t.Helper()
	if store == nil {
		store = newFakeStore()
	}
	return NewHandler(cfg, store)
}

func sessionToken(t *testing.T, user string) string {
	t.Helper()
	token, err := session.Issue(session.Config{Secret: testSecret}, user)
	if err != nil {
		t.Fatalf("issue session token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, h http.Handler, method, target, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken(t, user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code apperrors.Code) {
	t.Helper()
	var body errorBody
	decodeBody(t, rec, &body)
	if body.Error.Code != string(code) {
		t.Fatalf("error code = %q, want %q", body.Error.Code, code)
	}
}

// fakeStore is an in-memory storage.Store for handler tests.
type fakeStore struct {
	campaigns  map[int64]storage.Campaign
	team       map[int64][]storage.TeamMember
	invites    map[string]storage.JoinInvite
	encounters map[int64]storage.Encounter
	notes      map[int64]storage.Note
	nextID     int64
}

var _ storage.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns:  make(map[int64]storage.Campaign),
		team:       make(map[int64][]storage.TeamMember),
		invites:    make(map[string]storage.JoinInvite),
		encounters: make(map[int64]storage.Encounter),
		notes:      make(map[int64]storage.Note),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateCampaign(ctx context.Context, campaign storage.Campaign) (storage.Campaign, error) {
	if campaign.Name == "" {
		return storage.Campaign{}, apperrors.New(apperrors.CodeCampaignNameEmpty, "campaign name is required")
	}
	campaign.ID = f.id()
	campaign.CreatedAt = time.Now()
	campaign.UpdatedAt = campaign.CreatedAt
	f.campaigns[campaign.ID] = campaign
	f.team[campaign.ID] = append(f.team[campaign.ID], storage.TeamMember{
		ID: f.id(), Campaign: campaign.ID, Role: storage.RoleDM, User: campaign.Owner, AddedAt: campaign.CreatedAt,
	})
	return campaign, nil
}

func (f *fakeStore) GetCampaign(ctx context.Context, id int64) (storage.Campaign, error) {
	campaign, ok := f.campaigns[id]
	if !ok {
		return storage.Campaign{}, apperrors.New(apperrors.CodeNotFound, "campaign not found")
	}
	return campaign, nil
}

func (f *fakeStore) ListCampaignsForUser(ctx context.Context, user string) ([]storage.Campaign, error) {
	var out []storage.Campaign
	for id, campaign := range f.campaigns {
		for _, m := range f.team[id] {
			if m.User == user {
				out = append(out, campaign)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteCampaign(ctx context.Context, id int64) error {
	if _, ok := f.campaigns[id]; !ok {
		return apperrors.New(apperrors.CodeNotFound, "campaign not found")
	}
	delete(f.campaigns, id)
	delete(f.team, id)
	return nil
}

func (f *fakeStore) ListTeam(ctx context.Context, campaign int64) ([]storage.TeamMember, error) {
	return f.team[campaign], nil
}

func (f *fakeStore) IsTeamMember(ctx context.Context, campaign int64, user string) (bool, error) {
	for _, m := range f.team[campaign] {
		if m.User == user {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) RemoveTeamMember(ctx context.Context, campaign int64, user string) error {
	members := f.team[campaign]
	for i, m := range members {
		if m.User == user {
			f.team[campaign] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return apperrors.New(apperrors.CodeNotFound, "team member not found")
}

func (f *fakeStore) PutJoinInvite(ctx context.Context, invite storage.JoinInvite) (storage.JoinInvite, error) {
	invite.ID = f.id()
	invite.CreatedAt = time.Now()
	f.invites[invite.Token] = invite
	return invite, nil
}

func (f *fakeStore) GetJoinInviteByToken(ctx context.Context, token string) (storage.JoinInvite, error) {
	invite, ok := f.invites[token]
	if !ok {
		return storage.JoinInvite{}, apperrors.New(apperrors.CodeNotFound, "invite not found")
	}
	return invite, nil
}

func (f *fakeStore) AcceptInvite(ctx context.Context, token string, user string) (storage.TeamMember, error) {
	invite, ok := f.invites[token]
	if !ok {
		return storage.TeamMember{}, apperrors.New(apperrors.CodeNotFound, "invite not found")
	}
	if invite.User != user {
		return storage.TeamMember{}, apperrors.New(apperrors.CodeUnauthorized, "invite was issued to a different user")
	}
	delete(f.invites, token)
	member := storage.TeamMember{
		ID: f.id(), Campaign: invite.Campaign, Role: invite.Role, User: invite.User, AddedAt: time.Now(),
	}
	f.team[invite.Campaign] = append(f.team[invite.Campaign], member)
	return member, nil
}

func (f *fakeStore) CreateEncounter(ctx context.Context, encounter storage.Encounter) (storage.Encounter, error) {
	if encounter.Title == "" {
		return storage.Encounter{}, apperrors.New(apperrors.CodeEncounterTitleEmpty, "encounter title is required")
	}
	encounter.ID = f.id()
	if encounter.Round == 0 {
		encounter.Round = 1
	}
	encounter.CreatedAt = time.Now()
	encounter.UpdatedAt = encounter.CreatedAt
	f.encounters[encounter.ID] = encounter
	return encounter, nil
}

func (f *fakeStore) GetEncounter(ctx context.Context, id int64) (storage.Encounter, error) {
	encounter, ok := f.encounters[id]
	if !ok {
		return storage.Encounter{}, apperrors.New(apperrors.CodeNotFound, "encounter not found")
	}
	return encounter, nil
}

func (f *fakeStore) ListEncounters(ctx context.Context, campaign int64) ([]storage.Encounter, error) {
	var out []storage.Encounter
	for _, e := range f.encounters {
		if e.Campaign == campaign {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateEncounter(ctx context.Context, encounter storage.Encounter) (storage.Encounter, error) {
	if _, ok := f.encounters[encounter.ID]; !ok {
		return storage.Encounter{}, apperrors.New(apperrors.CodeNotFound, "encounter not found")
	}
	encounter.UpdatedAt = time.Now()
	f.encounters[encounter.ID] = encounter
	return encounter, nil
}

func (f *fakeStore) DeleteEncounter(ctx context.Context, id int64) error {
	if _, ok := f.encounters[id]; !ok {
		return apperrors.New(apperrors.CodeNotFound, "encounter not found")
	}
	delete(f.encounters, id)
	return nil
}

func (f *fakeStore) AdvanceTurn(ctx context.Context, id int64) (storage.Encounter, error) {
	encounter, ok := f.encounters[id]
	if !ok {
		return storage.Encounter{}, apperrors.New(apperrors.CodeNotFound, "encounter not found")
	}
	if len(encounter.Combatants) > 0 {
		encounter.Turn++
		if encounter.Turn >= len(encounter.Combatants) {
			encounter.Turn = 0
			encounter.Round++
		}
	}
	encounter.UpdatedAt = time.Now()
	f.encounters[id] = encounter
	return encounter, nil
}

func (f *fakeStore) EncounterSnapshot(ctx context.Context, id int64) (storage.EncounterSnapshot, error) {
	encounter, err := f.GetEncounter(ctx, id)
	if err != nil {
		return storage.EncounterSnapshot{}, err
	}
	campaign, err := f.GetCampaign(ctx, encounter.Campaign)
	if err != nil {
		return storage.EncounterSnapshot{}, err
	}
	return storage.EncounterSnapshot{
		Encounter: encounter,
		Campaign:  campaign,
		Team:      f.team[encounter.Campaign],
	}, nil
}

func (f *fakeStore) CreateNote(ctx context.Context, note storage.Note) (storage.Note, error) {
	note.ID = f.id()
	note.CreatedAt = time.Now()
	note.UpdatedAt = note.CreatedAt
	f.notes[note.ID] = note
	return note, nil
}

func (f *fakeStore) GetNote(ctx context.Context, id int64) (storage.Note, error) {
	note, ok := f.notes[id]
	if !ok {
		return storage.Note{}, apperrors.New(apperrors.CodeNotFound, "note not found")
	}
	return note, nil
}

func (f *fakeStore) ListNotes(ctx context.Context, campaign int64, viewer string) ([]storage.Note, error) {
	var out []storage.Note
	for _, n := range f.notes {
		if n.Campaign == campaign && (n.Shared || n.Author == viewer) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteNote(ctx context.Context, id int64) error {
	if _, ok := f.notes[id]; !ok {
		return apperrors.New(apperrors.CodeNotFound, "note not found")
	}
	delete(f.notes, id)
	return nil
}

// seedCampaign creates a campaign owned by owner directly in the fake store.
func seedCampaign(t *testing.T, store *fakeStore, owner, name string) storage.Campaign {
	t.Helper()
	campaign, err := store.CreateCampaign(context.Background(), storage.Campaign{Name: name, Owner: owner})
	if err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	return campaign
}

func seedEncounter(t *testing.T, store *fakeStore, campaign int64, creator, title string, combatants []storage.Combatant) storage.Encounter {
	t.Helper()
	encounter, err := store.CreateEncounter(context.Background(), storage.Encounter{
		Campaign:   campaign,
		CreatedBy:  creator,
		Title:      title,
		Combatants: combatants,
	})
	if err != nil {
		t.Fatalf("seed encounter: %v", err)
	}
	return encounter
}
