package eventsdb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/pyramid-league/ladder-server/app/shared"
)

var knownKinds = map[EventKind]struct{}{
	EventChallenge:       {},
	EventChallenged:      {},
	EventResult:          {},
	EventResultEntered:   {},
	EventResultConfirmed: {},
	EventResultDisputed:  {},
	EventWithdrawal:      {},
	EventForfeit:         {},
	EventDateProposed:    {},
	EventDateAccepted:    {},
	EventUnavailable:     {},
	EventNewPlayer:       {},
	EventMatchReminder:   {},
}

// Repository defines operations on the events table. Insert is write-once;
// there is no update or delete path, by construction.
type Repository interface {
	// Insert appends one event row.
	Insert(ctx context.Context, db bun.IDB, event *Event) error

	// ClubFeed retrieves the latest public events for a club, newest first.
	ClubFeed(ctx context.Context, db bun.IDB, clubID shared.ClubID, limit int) ([]Event, error)

	// PlayerFeed retrieves the latest personal notifications for a player,
	// newest first.
	PlayerFeed(ctx context.Context, db bun.IDB, clubID shared.ClubID, playerID shared.PlayerID, limit int) ([]Event, error)
}

// EventRepo implements Repository.
type EventRepo struct{}

func NewEventRepo() Repository {
	return &EventRepo{}
}

func (r *EventRepo) Insert(ctx context.Context, db bun.IDB, event *Event) error {
	if _, ok := knownKinds[event.Kind]; !ok {
		return fmt.Errorf("events.Insert %q: %w", event.Kind, ErrUnknownKind)
	}
	if _, err := db.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("events.Insert: %w", err)
	}
	return nil
}

func (r *EventRepo) ClubFeed(ctx context.Context, db bun.IDB, clubID shared.ClubID, limit int) ([]Event, error) {
	var events []Event
	q := db.NewSelect().
		Model(&events).
		Where("club_id = ?", clubID).
		Where("target_id IS NULL").
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("events.ClubFeed: %w", err)
	}
	return events, nil
}

func (r *EventRepo) PlayerFeed(ctx context.Context, db bun.IDB, clubID shared.ClubID, playerID shared.PlayerID, limit int) ([]Event, error) {
	var events []Event
	q := db.NewSelect().
		Model(&events).
		Where("club_id = ?", clubID).
		Where("target_id = ?", playerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("events.PlayerFeed: %w", err)
	}
	return events, nil
}
