package matchservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// Withdraw cancels an open challenge. Only a member of the challenging team
// may withdraw; the standings are untouched and both teams become free to
// challenge again.
func (s *MatchService) Withdraw(ctx context.Context, matchID shared.MatchID, playerID shared.PlayerID) error {
	match, err := s.repo.GetByID(ctx, s.db, matchID)
	if err != nil {
		return fmt.Errorf("failed to withdraw challenge: %w", err)
	}

	own, _, err := s.participantTeams(ctx, match, playerID)
	if err != nil {
		return err
	}
	if own.ID != match.Team1ID {
		return ErrNotChallenger
	}

	season, err := s.seasons.GetSeason(ctx, s.db, match.SeasonID)
	if err != nil {
		return fmt.Errorf("failed to withdraw challenge: %w", err)
	}

	var recorded []*eventsdb.Event

	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		result, err := s.repo.SetWithdrawn(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if result == matchdomain.TransitionConflict {
			return &StatusConflictError{MatchID: matchID, Transition: matchdomain.TransitionWithdraw}
		}

		public := &eventsdb.Event{
			ClubID:   season.ClubID,
			SeasonID: &match.SeasonID,
			MatchID:  &matchID,
			ActorID:  &playerID,
			Kind:     eventsdb.EventWithdrawal,
		}
		if err := s.events.RecordPublic(ctx, tx, public); err != nil {
			return err
		}
		recorded = append(recorded, public)
		return nil
	})
	if err != nil {
		var conflict *StatusConflictError
		if errors.As(err, &conflict) {
			s.metrics.TransitionConflict(string(conflict.Transition))
			return conflict
		}
		return fmt.Errorf("failed to withdraw challenge: %w", err)
	}

	for _, event := range recorded {
		s.events.PublishRecorded(ctx, event)
	}
	s.logger.InfoContext(ctx, "Challenge withdrawn",
		slog.String("match_id", string(matchID)),
	)
	return nil
}
