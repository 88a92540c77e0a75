// Package storage defines the persistence contract for the tracker app.
package storage

import (
	"context"
	"time"
)

// Team roles. The role travels inside join grants as a plain string and is
// validated at the edges.
const (
	RoleDM     = "dm"
	RolePlayer = "player"
)

// ValidRole reports whether role is one of the known team roles.
func ValidRole(role string) bool {
	return role == RoleDM || role == RolePlayer
}

// Campaign is a tracked campaign. Campaign and encounter ids are numeric;
// they appear verbatim inside capability grant payloads.
type Campaign struct {
	ID          int64
	Name        string
	Description string
	Owner       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TeamMember is a user's membership in a campaign's team.
type TeamMember struct {
	ID       int64
	Campaign int64
	Role     string
	User     string
	AddedAt  time.Time
}

// JoinInvite is the persisted one-time invite record. Its deletion during
// acceptance is the sole replay prevention for join grants.
type JoinInvite struct {
	ID        int64
	Token     string
	Campaign  int64
	Role      string
	User      string
	CreatedAt time.Time
}

// Combatant is one initiative row in an encounter.
type Combatant struct {
	Name       string   `json:"name"`
	Initiative int      `json:"initiative"`
	ArmorClass int      `json:"armor_class"`
	HitPoints  int      `json:"hit_points"`
	MaxHP      int      `json:"max_hp"`
	Conditions []string `json:"conditions,omitempty"`
}

// Encounter is a combat initiative sheet.
type Encounter struct {
	ID         int64
	Campaign   int64
	CreatedBy  string
	Title      string
	Round      int
	Turn       int
	Combatants []Combatant
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EncounterSnapshot bundles an encounter with its owning campaign and the
// current team roster, the unit returned by share redemption.
type EncounterSnapshot struct {
	Encounter Encounter
	Campaign  Campaign
	Team      []TeamMember
}

// Note is a campaign note, visible to the team when shared.
type Note struct {
	ID        int64
	Campaign  int64
	Author    string
	Title     string
	Body      string
	Shared    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence surface consumed by the app handlers.
type Store interface {
	// CreateCampaign inserts a campaign and seats the owner on its team as DM.
	CreateCampaign(ctx context.Context, campaign Campaign) (Campaign, error)
	GetCampaign(ctx context.Context, id int64) (Campaign, error)
	ListCampaignsForUser(ctx context.Context, user string) ([]Campaign, error)
	DeleteCampaign(ctx context.Context, id int64) error

	ListTeam(ctx context.Context, campaign int64) ([]TeamMember, error)
	IsTeamMember(ctx context.Context, campaign int64, user string) (bool, error)
	RemoveTeamMember(ctx context.Context, campaign int64, user string) error

	PutJoinInvite(ctx context.Context, invite JoinInvite) (JoinInvite, error)
	GetJoinInviteByToken(ctx context.Context, token string) (JoinInvite, error)
	// AcceptInvite inserts the team membership and deletes the invite record
	// in one transaction; an observer never sees one without the other. A
	// second acceptance of the same token finds no invite row and fails with
	// a not-found error.
	AcceptInvite(ctx context.Context, token string, user string) (TeamMember, error)

	CreateEncounter(ctx context.Context, encounter Encounter) (Encounter, error)
	GetEncounter(ctx context.Context, id int64) (Encounter, error)
	ListEncounters(ctx context.Context, campaign int64) ([]Encounter, error)
	UpdateEncounter(ctx context.Context, encounter Encounter) (Encounter, error)
	DeleteEncounter(ctx context.Context, id int64) error
	// AdvanceTurn moves the initiative cursor, rolling the round over when
	// the cursor passes the last combatant.
	AdvanceTurn(ctx context.Context, id int64) (Encounter, error)
	EncounterSnapshot(ctx context.Context, id int64) (EncounterSnapshot, error)

	CreateNote(ctx context.Context, note Note) (Note, error)
	GetNote(ctx context.Context, id int64) (Note, error)
	ListNotes(ctx context.Context, campaign int64, viewer string) ([]Note, error)
	DeleteNote(ctx context.Context, id int64) error
}
