package seasonservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	seasondomain "github.com/pyramid-league/ladder-server/app/modules/season/domain"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// SetUnavailability blocks out a window for a player. A team in the middle
// of an open challenge cannot duck it by going unavailable, so the window
// is rejected while one exists. The guard is advisory, a plain read: an
// unavailability window prevents state, it never corrupts it.
func (s *SeasonService) SetUnavailability(ctx context.Context, seasonID shared.SeasonID, playerID shared.PlayerID, startsAt, endsAt time.Time) error {
	if !seasondomain.ValidWindow(startsAt, endsAt) {
		return ErrInvalidDateRange
	}

	season, err := s.repo.GetSeason(ctx, s.db, seasonID)
	if err != nil {
		return fmt.Errorf("failed to set unavailability: %w", err)
	}

	team, err := s.repo.TeamOfPlayer(ctx, s.db, seasonID, playerID)
	if err != nil {
		return fmt.Errorf("failed to set unavailability: %w", err)
	}

	open, err := s.matches.TeamsWithOpenChallenge(ctx, s.db, seasonID)
	if err != nil {
		return fmt.Errorf("failed to set unavailability: %w", err)
	}
	if _, busy := open[team.ID]; busy {
		return ErrOpenChallenge
	}

	actor := playerID
	public := &eventsdb.Event{
		ClubID:   season.ClubID,
		SeasonID: &seasonID,
		ActorID:  &actor,
		Kind:     eventsdb.EventUnavailable,
		Metadata: map[string]any{"starts_at": startsAt, "ends_at": endsAt},
	}

	// Window row and its event commit together or not at all.
	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := s.repo.InsertUnavailability(ctx, tx, &seasondb.Unavailability{
			PlayerID: playerID,
			StartsAt: startsAt,
			EndsAt:   endsAt,
		}); err != nil {
			return err
		}
		return s.events.RecordPublic(ctx, tx, public)
	})
	if err != nil {
		return fmt.Errorf("failed to set unavailability: %w", err)
	}
	s.events.PublishRecorded(ctx, public)

	s.logger.InfoContext(ctx, "Unavailability recorded",
		slog.String("player_id", string(playerID)),
		slog.Time("starts_at", startsAt),
		slog.Time("ends_at", endsAt),
	)
	return nil
}
