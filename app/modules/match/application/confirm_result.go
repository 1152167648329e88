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

// ConfirmOutcome is what a successful confirmation settled.
type ConfirmOutcome struct {
	WinnerTeamID shared.TeamID
	Team1ID      shared.TeamID
	Team2ID      shared.TeamID
}

// ConfirmResult completes a match and applies its outcome to the standings,
// all in one transaction. The guarded transition to completed serializes
// double confirmations; the season lock serializes the snapshot append
// against every other standings write.
func (s *MatchService) ConfirmResult(ctx context.Context, matchID shared.MatchID, confirmedBy shared.PlayerID) (ConfirmOutcome, error) {
	preflight, err := s.repo.GetByID(ctx, s.db, matchID)
	if err != nil {
		return ConfirmOutcome{}, fmt.Errorf("failed to confirm result: %w", err)
	}
	if _, _, err := s.participantTeams(ctx, preflight, confirmedBy); err != nil {
		return ConfirmOutcome{}, err
	}

	season, err := s.seasons.GetSeason(ctx, s.db, preflight.SeasonID)
	if err != nil {
		return ConfirmOutcome{}, fmt.Errorf("failed to confirm result: %w", err)
	}

	var (
		outcome  ConfirmOutcome
		recorded []*eventsdb.Event
	)

	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := s.standings.AcquireSeasonLock(ctx, tx, preflight.SeasonID); err != nil {
			return err
		}

		// Re-read inside the lock: the enterer check must see the row that
		// the guarded update below will act on.
		match, err := s.repo.GetByID(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if match.ResultEnteredBy != nil && *match.ResultEnteredBy == confirmedBy {
			return ErrCannotConfirmOwnResult
		}

		result, err := s.repo.SetConfirmed(ctx, tx, matchID, confirmedBy)
		if err != nil {
			return err
		}
		if result == matchdomain.TransitionConflict {
			return &StatusConflictError{MatchID: matchID, Transition: matchdomain.TransitionConfirmResult}
		}

		if match.WinnerTeamID == nil {
			return fmt.Errorf("match %s is pending confirmation without a winner", matchID)
		}
		winner := *match.WinnerTeamID
		loser := match.Opponent(winner)
		winnerWasChallenger := winner == match.Team1ID

		if err := s.standings.RecordMatchOutcomeInTx(ctx, tx, match.SeasonID, matchID, winner, loser, winnerWasChallenger); err != nil {
			return err
		}

		outcome = ConfirmOutcome{
			WinnerTeamID: winner,
			Team1ID:      match.Team1ID,
			Team2ID:      match.Team2ID,
		}

		public := &eventsdb.Event{
			ClubID:   season.ClubID,
			SeasonID: &match.SeasonID,
			MatchID:  &matchID,
			ActorID:  &confirmedBy,
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

		if match.ResultEnteredBy != nil {
			personal := &eventsdb.Event{
				ClubID:   season.ClubID,
				SeasonID: &match.SeasonID,
				MatchID:  &matchID,
				ActorID:  &confirmedBy,
				Kind:     eventsdb.EventResultConfirmed,
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
			return ConfirmOutcome{}, conflict
		}
		if errors.Is(err, ErrCannotConfirmOwnResult) {
			return ConfirmOutcome{}, ErrCannotConfirmOwnResult
		}
		return ConfirmOutcome{}, fmt.Errorf("failed to confirm result: %w", err)
	}

	for _, event := range recorded {
		s.events.PublishRecorded(ctx, event)
	}
	s.metrics.MatchCompleted()
	s.logger.InfoContext(ctx, "Result confirmed",
		slog.String("match_id", string(matchID)),
		slog.String("winner_team_id", string(outcome.WinnerTeamID)),
	)
	return outcome, nil
}
