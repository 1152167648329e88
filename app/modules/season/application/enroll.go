package seasonservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// EnrollResult reports where an enrollment landed. A player already on a
// team is a normal outcome, reported here rather than raised as an error.
type EnrollResult struct {
	AlreadyEnrolled bool
	TeamID          shared.TeamID
	Rank            int
}

// EnrollTeam registers a team and appends it to the bottom of the ladder.
// The membership re-check, team insert and snapshot append share one
// transaction under the season lock, so two racing enrollments of the same
// player serialize cleanly.
func (s *SeasonService) EnrollTeam(ctx context.Context, seasonID shared.SeasonID, name string, players []shared.PlayerID) (EnrollResult, error) {
	season, err := s.repo.GetSeason(ctx, s.db, seasonID)
	if err != nil {
		return EnrollResult{}, fmt.Errorf("failed to enroll team: %w", err)
	}
	if season.Status != seasondb.SeasonActive {
		return EnrollResult{}, ErrSeasonNotActive
	}
	if !season.OpenEnrollment {
		return EnrollResult{}, ErrEnrollmentClosed
	}
	if len(players) < season.MinTeamSize || len(players) > season.MaxTeamSize {
		return EnrollResult{}, &TeamSizeError{Size: len(players), Min: season.MinTeamSize, Max: season.MaxTeamSize}
	}

	team := &seasondb.Team{
		SeasonID: seasonID,
		Name:     name,
		Members:  players,
	}
	var (
		result   EnrollResult
		recorded []*eventsdb.Event
	)

	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := s.standings.AcquireSeasonLock(ctx, tx, seasonID); err != nil {
			return err
		}

		for _, playerID := range players {
			existing, err := s.repo.TeamOfPlayer(ctx, tx, seasonID, playerID)
			switch {
			case err == nil:
				// Rank read through the tx so it reflects the snapshot the
				// lock above is protecting.
				rank := 0
				if view, verr := s.standings.LatestInTx(ctx, tx, seasonID); verr == nil {
					for _, entry := range view.Entries {
						if entry.TeamID == existing.ID {
							rank = entry.Rank
						}
					}
				}
				result = EnrollResult{AlreadyEnrolled: true, TeamID: existing.ID, Rank: rank}
				return nil
			case errors.Is(err, seasondb.ErrNoTeamForPlayer):
				// free to enroll
			default:
				return err
			}
		}

		if err := s.repo.InsertTeam(ctx, tx, team); err != nil {
			return err
		}

		added, err := s.standings.AddTeamInTx(ctx, tx, seasonID, team.ID)
		if err != nil {
			return err
		}
		result = EnrollResult{TeamID: team.ID, Rank: added.Rank}

		for _, playerID := range players {
			actor := playerID
			public := &eventsdb.Event{
				ClubID:   season.ClubID,
				SeasonID: &seasonID,
				ActorID:  &actor,
				Kind:     eventsdb.EventNewPlayer,
				Metadata: map[string]any{"team_id": team.ID, "team_name": name},
			}
			if err := s.events.RecordPublic(ctx, tx, public); err != nil {
				return err
			}
			recorded = append(recorded, public)
		}
		return nil
	})
	if err != nil {
		return EnrollResult{}, fmt.Errorf("failed to enroll team: %w", err)
	}

	for _, event := range recorded {
		s.events.PublishRecorded(ctx, event)
	}
	if !result.AlreadyEnrolled {
		s.logger.InfoContext(ctx, "Team enrolled",
			slog.String("season_id", string(seasonID)),
			slog.String("team_id", string(result.TeamID)),
			slog.Int("rank", result.Rank),
		)
	}
	return result, nil
}

// OptOut takes a team off the active ladder rotation without erasing it.
func (s *SeasonService) OptOut(ctx context.Context, teamID shared.TeamID) error {
	if err := s.repo.SetOptedOut(ctx, s.db, teamID, true); err != nil {
		return fmt.Errorf("failed to opt out team: %w", err)
	}
	s.logger.InfoContext(ctx, "Team opted out", slog.String("team_id", string(teamID)))
	return nil
}
