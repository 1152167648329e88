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

// EnterResult records a score sheet. Validation runs before any write, so a
// bad sheet leaves the match untouched. On success the match waits in
// pending_confirmation until the other side confirms or disputes; seasons
// that do not require confirmation complete immediately, applying the
// outcome to the standings in the same transaction.
func (s *MatchService) EnterResult(ctx context.Context, matchID shared.MatchID, enteredBy shared.PlayerID, sets []matchdomain.SetScore) error {
	match, err := s.repo.GetByID(ctx, s.db, matchID)
	if err != nil {
		return fmt.Errorf("failed to enter result: %w", err)
	}

	_, opponent, err := s.participantTeams(ctx, match, enteredBy)
	if err != nil {
		return err
	}

	season, err := s.seasons.GetSeason(ctx, s.db, match.SeasonID)
	if err != nil {
		return fmt.Errorf("failed to enter result: %w", err)
	}
	bestOf := season.BestOf
	if bestOf <= 0 {
		bestOf = s.cfg.DefaultBestOf
	}

	winnerSide, err := matchdomain.ValidateScores(sets, bestOf)
	if err != nil {
		return err
	}
	winner := match.Team1ID
	if winnerSide == 2 {
		winner = match.Team2ID
	}

	autoComplete := !season.RequiresConfirmation

	var (
		recorded  []*eventsdb.Event
		completed bool
	)

	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if autoComplete {
			if err := s.standings.AcquireSeasonLock(ctx, tx, match.SeasonID); err != nil {
				return err
			}
		}

		result, err := s.repo.SetResult(ctx, tx, matchID, sets, winner, enteredBy)
		if err != nil {
			return err
		}
		if result == matchdomain.TransitionConflict {
			return &StatusConflictError{MatchID: matchID, Transition: matchdomain.TransitionEnterResult}
		}

		for _, member := range opponent.Members {
			personal := &eventsdb.Event{
				ClubID:   season.ClubID,
				SeasonID: &match.SeasonID,
				MatchID:  &matchID,
				ActorID:  &enteredBy,
				Kind:     eventsdb.EventResultEntered,
				Metadata: map[string]any{"winner_team_id": winner},
			}
			if err := s.events.RecordPersonal(ctx, tx, personal, member); err != nil {
				return err
			}
			recorded = append(recorded, personal)
		}

		if !autoComplete {
			return nil
		}

		confirm, err := s.repo.SetConfirmed(ctx, tx, matchID, enteredBy)
		if err != nil {
			return err
		}
		if confirm == matchdomain.TransitionConflict {
			return &StatusConflictError{MatchID: matchID, Transition: matchdomain.TransitionConfirmResult}
		}

		loser := match.Opponent(winner)
		if err := s.standings.RecordMatchOutcomeInTx(ctx, tx, match.SeasonID, matchID, winner, loser, winner == match.Team1ID); err != nil {
			return err
		}

		public := &eventsdb.Event{
			ClubID:   season.ClubID,
			SeasonID: &match.SeasonID,
			MatchID:  &matchID,
			ActorID:  &enteredBy,
			Kind:     eventsdb.EventResult,
			Metadata: map[string]any{
				"winner_team_id": winner,
				"loser_team_id":  loser,
			},
		}
		if err := s.events.RecordPublic(ctx, tx, public); err != nil {
			return err
		}
		recorded = append(recorded, public)
		completed = true
		return nil
	})
	if err != nil {
		var conflict *StatusConflictError
		if errors.As(err, &conflict) {
			s.metrics.TransitionConflict(string(conflict.Transition))
			return conflict
		}
		return fmt.Errorf("failed to enter result: %w", err)
	}

	for _, event := range recorded {
		s.events.PublishRecorded(ctx, event)
	}
	if completed {
		s.metrics.MatchCompleted()
	}
	s.logger.InfoContext(ctx, "Result entered",
		slog.String("match_id", string(matchID)),
		slog.String("winner_team_id", string(winner)),
		slog.Bool("auto_completed", completed),
	)
	return nil
}
