package eventsservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// EventService appends feed entries and fans them out to the notification
// bus. Inserts run inside the caller's transaction; publishing happens after
// commit and is best-effort.
type EventService struct {
	repo   eventsdb.Repository
	bus    shared.EventBus
	logger *slog.Logger
	db     *bun.DB
}

// NewEventService creates a new EventService.
func NewEventService(repo eventsdb.Repository, bus shared.EventBus, logger *slog.Logger, db *bun.DB) *EventService {
	return &EventService{
		repo:   repo,
		bus:    bus,
		logger: logger,
		db:     db,
	}
}

// RecordPublic inserts a club-feed event inside the caller's transaction.
func (s *EventService) RecordPublic(ctx context.Context, db bun.IDB, event *eventsdb.Event) error {
	event.TargetID = nil
	if err := s.repo.Insert(ctx, db, event); err != nil {
		return fmt.Errorf("failed to record public event: %w", err)
	}
	return nil
}

// RecordPersonal inserts a notification for one player inside the caller's
// transaction.
func (s *EventService) RecordPersonal(ctx context.Context, db bun.IDB, event *eventsdb.Event, target shared.PlayerID) error {
	event.TargetID = &target
	if err := s.repo.Insert(ctx, db, event); err != nil {
		return fmt.Errorf("failed to record personal event: %w", err)
	}
	return nil
}

// PublishRecorded pushes an already-committed event to the bus. Failures are
// logged and swallowed: the row is the source of truth, the bus is only a
// delivery hint.
func (s *EventService) PublishRecorded(ctx context.Context, event *eventsdb.Event) {
	topic := "ladder.events." + string(event.Kind)
	if err := s.bus.Publish(ctx, topic, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			slog.String("topic", topic),
			slog.String("event_id", string(event.ID)),
			slog.Any("error", err),
		)
	}
}

// ClubFeed returns the latest public events for a club.
func (s *EventService) ClubFeed(ctx context.Context, clubID shared.ClubID, limit int) ([]eventsdb.Event, error) {
	events, err := s.repo.ClubFeed(ctx, s.db, clubID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get club feed: %w", err)
	}
	return events, nil
}

// PlayerFeed returns the latest personal notifications for a player.
func (s *EventService) PlayerFeed(ctx context.Context, clubID shared.ClubID, playerID shared.PlayerID, limit int) ([]eventsdb.Event, error) {
	events, err := s.repo.PlayerFeed(ctx, s.db, clubID, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get player feed: %w", err)
	}
	return events, nil
}
