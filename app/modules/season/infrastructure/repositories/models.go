package seasondb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/pyramid-league/ladder-server/app/shared"
)

// SeasonStatus is the season lifecycle. Transitions are one-directional,
// draft to active to ended, and admin-triggered.
type SeasonStatus string

const (
	SeasonDraft  SeasonStatus = "draft"
	SeasonActive SeasonStatus = "active"
	SeasonEnded  SeasonStatus = "ended"
)

// Season holds one ladder competition and its scoring configuration.
type Season struct {
	bun.BaseModel `bun:"table:seasons,alias:s"`

	ID                   shared.SeasonID `bun:"id,pk,type:uuid"`
	ClubID               shared.ClubID   `bun:"club_id,notnull"`
	Name                 string          `bun:"name,notnull"`
	Status               SeasonStatus    `bun:"status,notnull"`
	BestOf               int             `bun:"best_of,notnull"`
	MatchDeadlineDays    int             `bun:"match_deadline_days,notnull"`
	ReminderDays         int             `bun:"reminder_days,notnull"`
	RequiresConfirmation bool            `bun:"requires_confirmation,notnull"`
	OpenEnrollment       bool            `bun:"open_enrollment,notnull"`
	MinTeamSize          int             `bun:"min_team_size,notnull"`
	MaxTeamSize          int             `bun:"max_team_size,notnull"`
	CreatedAt            time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

var _ bun.BeforeInsertHook = (*Season)(nil)

func (s *Season) BeforeInsert(ctx context.Context, _ *bun.InsertQuery) error {
	if s.ID == "" {
		s.ID = shared.SeasonID(uuid.NewString())
	}
	return nil
}

// Team is one enrolled side of the ladder. Opted-out teams keep their rows
// and their match history but stop appearing in challenge eligibility.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID        shared.TeamID     `bun:"id,pk,type:uuid"`
	SeasonID  shared.SeasonID   `bun:"season_id,notnull,type:uuid"`
	Name      string            `bun:"name,notnull"`
	Members   []shared.PlayerID `bun:"members,type:jsonb,notnull"`
	OptedOut  bool              `bun:"opted_out,notnull,default:false"`
	CreatedAt time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

var _ bun.BeforeInsertHook = (*Team)(nil)

func (t *Team) BeforeInsert(ctx context.Context, _ *bun.InsertQuery) error {
	if t.ID == "" {
		t.ID = shared.TeamID(uuid.NewString())
	}
	return nil
}

// HasMember reports whether the player belongs to the team.
func (t *Team) HasMember(playerID shared.PlayerID) bool {
	for _, member := range t.Members {
		if member == playerID {
			return true
		}
	}
	return false
}

// Unavailability is one player's blocked-out window. While a window is
// active the player's team can neither issue nor receive challenges.
type Unavailability struct {
	bun.BaseModel `bun:"table:unavailabilities,alias:u"`

	ID        int64           `bun:"id,pk,autoincrement"`
	PlayerID  shared.PlayerID `bun:"player_id,notnull"`
	StartsAt  time.Time       `bun:"starts_at,notnull"`
	EndsAt    time.Time       `bun:"ends_at,notnull"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
