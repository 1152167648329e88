package eventsdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/pyramid-league/ladder-server/app/shared"
)

// EventKind is the closed set of feed entry types.
type EventKind string

const (
	EventChallenge       EventKind = "challenge"
	EventChallenged      EventKind = "challenged"
	EventResult          EventKind = "result"
	EventResultEntered   EventKind = "result_entered"
	EventResultConfirmed EventKind = "result_confirmed"
	EventResultDisputed  EventKind = "result_disputed"
	EventWithdrawal      EventKind = "withdrawal"
	EventForfeit         EventKind = "forfeit"
	EventDateProposed    EventKind = "date_proposed"
	EventDateAccepted    EventKind = "date_accepted"
	EventUnavailable     EventKind = "unavailable"
	EventNewPlayer       EventKind = "new_player"
	EventMatchReminder   EventKind = "match_reminder"
)

// Event is one append-only feed entry. Rows without a target are public club
// feed items; rows with a target are personal notifications. Never mutated.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID        shared.EventID   `bun:"id,pk,type:uuid"`
	ClubID    shared.ClubID    `bun:"club_id,notnull"`
	SeasonID  *shared.SeasonID `bun:"season_id,nullzero,type:uuid"`
	MatchID   *shared.MatchID  `bun:"match_id,nullzero,type:uuid"`
	ActorID   *shared.PlayerID `bun:"actor_id,nullzero"`
	TargetID  *shared.PlayerID `bun:"target_id,nullzero"`
	Kind      EventKind        `bun:"kind,notnull"`
	Metadata  map[string]any   `bun:"metadata,type:jsonb,nullzero"`
	CreatedAt time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

var _ bun.BeforeInsertHook = (*Event)(nil)

func (e *Event) BeforeInsert(ctx context.Context, _ *bun.InsertQuery) error {
	if e.ID == "" {
		e.ID = shared.EventID(uuid.NewString())
	}
	return nil
}
