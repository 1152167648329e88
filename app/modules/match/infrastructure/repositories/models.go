package matchdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// Match is one challenge and its lifecycle. Team1 is always the challenger,
// team2 the defender; the standings swap on completion depends on that
// convention. Matches are never deleted, terminal rows stay as history.
type Match struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID              shared.MatchID          `bun:"id,pk,type:uuid"`
	SeasonID        shared.SeasonID         `bun:"season_id,notnull,type:uuid"`
	Team1ID         shared.TeamID           `bun:"team1_id,notnull,type:uuid"`
	Team2ID         shared.TeamID           `bun:"team2_id,notnull,type:uuid"`
	Status          matchdomain.MatchStatus `bun:"status,notnull"`
	Scores          []matchdomain.SetScore  `bun:"scores,type:jsonb,nullzero"`
	WinnerTeamID    *shared.TeamID          `bun:"winner_team_id,nullzero,type:uuid"`
	GameAt          *time.Time              `bun:"game_at,nullzero"`
	ResultEnteredBy *shared.PlayerID        `bun:"result_entered_by,nullzero"`
	ConfirmedBy     *shared.PlayerID        `bun:"confirmed_by,nullzero"`
	CreatedAt       time.Time               `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

var _ bun.BeforeInsertHook = (*Match)(nil)

func (m *Match) BeforeInsert(ctx context.Context, _ *bun.InsertQuery) error {
	if m.ID == "" {
		m.ID = shared.MatchID(uuid.NewString())
	}
	return nil
}

// HasTeam reports whether the team plays in this match.
func (m *Match) HasTeam(teamID shared.TeamID) bool {
	return m.Team1ID == teamID || m.Team2ID == teamID
}

// Opponent returns the other side of the match.
func (m *Match) Opponent(teamID shared.TeamID) shared.TeamID {
	if m.Team1ID == teamID {
		return m.Team2ID
	}
	return m.Team1ID
}

// ProposalStatus is the lifecycle of a date proposal.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalDeclined  ProposalStatus = "declined"
	ProposalDismissed ProposalStatus = "dismissed"
)

// DateProposal is one suggested playing time for a match. Several proposals
// may be pending at once; accepting one dismisses the rest.
type DateProposal struct {
	bun.BaseModel `bun:"table:date_proposals,alias:dp"`

	ID           shared.ProposalID `bun:"id,pk,type:uuid"`
	MatchID      shared.MatchID    `bun:"match_id,notnull,type:uuid"`
	ProposedBy   shared.PlayerID   `bun:"proposed_by,notnull"`
	ProposedTime time.Time         `bun:"proposed_time,notnull"`
	Status       ProposalStatus    `bun:"status,notnull"`
	CreatedAt    time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

var _ bun.BeforeInsertHook = (*DateProposal)(nil)

func (p *DateProposal) BeforeInsert(ctx context.Context, _ *bun.InsertQuery) error {
	if p.ID == "" {
		p.ID = shared.ProposalID(uuid.NewString())
	}
	return nil
}
