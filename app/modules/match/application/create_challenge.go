package matchservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
	standingsdomain "github.com/pyramid-league/ladder-server/app/modules/standings/domain"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// CreateChallengeCommand describes one challenge attempt.
type CreateChallengeCommand struct {
	SeasonID   shared.SeasonID
	Challenger shared.TeamID
	Defender   shared.TeamID
	ActorID    shared.PlayerID
}

// CreateChallenge validates eligibility on the read path, then creates the
// match under the season lock. The open-challenge set is re-read inside the
// lock: the cheap pre-checks only exist to fail fast, the locked re-check is
// what actually upholds the one-open-challenge-per-team invariant.
func (s *MatchService) CreateChallenge(ctx context.Context, cmd CreateChallengeCommand) (shared.MatchID, error) {
	season, err := s.activeSeason(ctx, s.db, cmd.SeasonID)
	if err != nil {
		return "", fmt.Errorf("failed to create challenge: %w", err)
	}

	challenger, err := s.seasons.GetTeam(ctx, s.db, cmd.Challenger)
	if err != nil {
		return "", fmt.Errorf("failed to create challenge: %w", err)
	}
	if !challenger.HasMember(cmd.ActorID) {
		return "", ErrNotParticipant
	}

	defender, err := s.seasons.GetTeam(ctx, s.db, cmd.Defender)
	if err != nil {
		return "", fmt.Errorf("failed to create challenge: %w", err)
	}

	if err := s.checkRankGap(ctx, cmd.SeasonID, cmd.Challenger, cmd.Defender); err != nil {
		return "", err
	}

	// Advisory only: an unavailability window can never corrupt state, so
	// this read stays outside the lock.
	unavailable, err := s.seasons.UnavailableTeamIDs(ctx, s.db, cmd.SeasonID, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to create challenge: %w", err)
	}
	for _, teamID := range unavailable {
		if teamID == cmd.Challenger || teamID == cmd.Defender {
			return "", ErrTeamUnavailable
		}
	}

	match := &matchdb.Match{
		SeasonID: cmd.SeasonID,
		Team1ID:  cmd.Challenger,
		Team2ID:  cmd.Defender,
		Status:   matchdomain.StatusChallenged,
	}
	var recorded []*eventsdb.Event

	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := s.standings.AcquireSeasonLock(ctx, tx, cmd.SeasonID); err != nil {
			return err
		}

		open, err := s.repo.TeamsWithOpenChallenge(ctx, tx, cmd.SeasonID)
		if err != nil {
			return err
		}
		if _, busy := open[cmd.Challenger]; busy {
			return &ChallengeConflictError{TeamID: cmd.Challenger}
		}
		if _, busy := open[cmd.Defender]; busy {
			return &ChallengeConflictError{TeamID: cmd.Defender}
		}

		if err := s.repo.Insert(ctx, tx, match); err != nil {
			return err
		}

		public := &eventsdb.Event{
			ClubID:   season.ClubID,
			SeasonID: &cmd.SeasonID,
			MatchID:  &match.ID,
			ActorID:  &cmd.ActorID,
			Kind:     eventsdb.EventChallenge,
			Metadata: map[string]any{
				"challenger_team_id": cmd.Challenger,
				"defender_team_id":   cmd.Defender,
			},
		}
		if err := s.events.RecordPublic(ctx, tx, public); err != nil {
			return err
		}
		recorded = append(recorded, public)

		for _, member := range defender.Members {
			personal := &eventsdb.Event{
				ClubID:   season.ClubID,
				SeasonID: &cmd.SeasonID,
				MatchID:  &match.ID,
				ActorID:  &cmd.ActorID,
				Kind:     eventsdb.EventChallenged,
			}
			if err := s.events.RecordPersonal(ctx, tx, personal, member); err != nil {
				return err
			}
			recorded = append(recorded, personal)
		}
		return nil
	})
	if err != nil {
		var conflict *ChallengeConflictError
		if errors.As(err, &conflict) {
			s.metrics.ChallengeConflict()
			return "", conflict
		}
		return "", fmt.Errorf("failed to create challenge: %w", err)
	}

	for _, event := range recorded {
		s.events.PublishRecorded(ctx, event)
	}
	s.metrics.ChallengeCreated()
	s.logger.InfoContext(ctx, "Challenge created",
		slog.String("match_id", string(match.ID)),
		slog.String("season_id", string(cmd.SeasonID)),
		slog.String("challenger_team_id", string(cmd.Challenger)),
		slog.String("defender_team_id", string(cmd.Defender)),
	)
	return match.ID, nil
}

// checkRankGap applies the reach rule against the latest snapshot.
func (s *MatchService) checkRankGap(ctx context.Context, seasonID shared.SeasonID, challenger, defender shared.TeamID) error {
	view, err := s.standings.Latest(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}

	challengerRank, defenderRank := 0, 0
	for _, entry := range view.Entries {
		switch entry.TeamID {
		case challenger:
			challengerRank = entry.Rank
		case defender:
			defenderRank = entry.Rank
		}
	}
	if challengerRank == 0 {
		return &standingsdomain.ErrTeamNotInStandings{TeamID: challenger}
	}
	if defenderRank == 0 {
		return &standingsdomain.ErrTeamNotInStandings{TeamID: defender}
	}

	if !standingsdomain.CanChallenge(challengerRank, defenderRank, s.cfg.ChallengeReach) {
		return &ChallengeNotAllowedError{
			ChallengerRank: challengerRank,
			TargetRank:     defenderRank,
			Reach:          s.cfg.ChallengeReach,
		}
	}
	return nil
}
