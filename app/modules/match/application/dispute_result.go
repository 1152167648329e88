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

// DisputeResult flags a pending result as contested. The match parks in
// disputed with no standings change; resolution happens outside the system.
func (s *MatchService) DisputeResult(ctx context.Context, matchID shared.MatchID, disputedBy shared.PlayerID, reason string) error {
	match, err := s.repo.GetByID(ctx, s.db, matchID)
	if err != nil {
		return fmt.Errorf("failed to dispute result: %w", err)
	}
	if _, _, err := s.participantTeams(ctx, match, disputedBy); err != nil {
		return err
	}
	if match.ResultEnteredBy != nil && *match.ResultEnteredBy == disputedBy {
		return ErrCannotConfirmOwnResult
	}

	season, err := s.seasons.GetSeason(ctx, s.db, match.SeasonID)
	if err != nil {
		return fmt.Errorf("failed to dispute result: %w", err)
	}

	var recorded []*eventsdb.Event

	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		result, err := s.repo.SetDisputed(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if result == matchdomain.TransitionConflict {
			return &StatusConflictError{MatchID: matchID, Transition: matchdomain.TransitionDisputeResult}
		}

		if match.ResultEnteredBy != nil {
			personal := &eventsdb.Event{
				ClubID:   season.ClubID,
				SeasonID: &match.SeasonID,
				MatchID:  &matchID,
				ActorID:  &disputedBy,
				Kind:     eventsdb.EventResultDisputed,
				Metadata: map[string]any{"reason": reason},
			}
			if err := s.events.RecordPersonal(ctx, tx, personal, *match.ResultEnteredBy); err != nil {
				return err
			}
			recorded = append(recorded, personal)
		}
		return nil
	})
	if err != nil {
		var conflict *StatusConflictError
		if errors.As(err, &conflict) {
			s.metrics.TransitionConflict(string(conflict.Transition))
			return conflict
		}
		return fmt.Errorf("failed to dispute result: %w", err)
	}

	for _, event := range recorded {
		s.events.PublishRecorded(ctx, event)
	}
	s.logger.InfoContext(ctx, "Result disputed",
		slog.String("match_id", string(matchID)),
		slog.String("disputed_by", string(disputedBy)),
	)
	return nil
}
