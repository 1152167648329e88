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

// Forfeit closes an open challenge in favour of the non-forfeiting team.
// The standings treat it like a played win: if the remaining team was the
// challenger it takes the forfeiting defender's slot, if it was the defender
// the ordering is unchanged. Either way a snapshot is appended so the match
// leaves its trace in the sequence.
func (s *MatchService) Forfeit(ctx context.Context, matchID shared.MatchID, forfeitedBy shared.PlayerID) error {
	preflight, err := s.repo.GetByID(ctx, s.db, matchID)
	if err != nil {
		return fmt.Errorf("failed to forfeit match: %w", err)
	}

	own, opponent, err := s.participantTeams(ctx, preflight, forfeitedBy)
	if err != nil {
		return err
	}

	season, err := s.seasons.GetSeason(ctx, s.db, preflight.SeasonID)
	if err != nil {
		return fmt.Errorf("failed to forfeit match: %w", err)
	}

	var recorded []*eventsdb.Event

	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := s.standings.AcquireSeasonLock(ctx, tx, preflight.SeasonID); err != nil {
			return err
		}

		result, err := s.repo.SetForfeited(ctx, tx, matchID, opponent.ID)
		if err != nil {
			return err
		}
		if result == matchdomain.TransitionConflict {
			return &StatusConflictError{MatchID: matchID, Transition: matchdomain.TransitionForfeit}
		}

		winnerWasChallenger := opponent.ID == preflight.Team1ID
		if err := s.standings.RecordMatchOutcomeInTx(ctx, tx, preflight.SeasonID, matchID, opponent.ID, own.ID, winnerWasChallenger); err != nil {
			return err
		}

		public := &eventsdb.Event{
			ClubID:   season.ClubID,
			SeasonID: &preflight.SeasonID,
			MatchID:  &matchID,
			ActorID:  &forfeitedBy,
			Kind:     eventsdb.EventForfeit,
			Metadata: map[string]any{
				"forfeiting_team_id": own.ID,
				"winner_team_id":     opponent.ID,
			},
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
		return fmt.Errorf("failed to forfeit match: %w", err)
	}

	for _, event := range recorded {
		s.events.PublishRecorded(ctx, event)
	}
	s.logger.InfoContext(ctx, "Match forfeited",
		slog.String("match_id", string(matchID)),
		slog.String("forfeiting_team_id", string(own.ID)),
	)
	return nil
}
