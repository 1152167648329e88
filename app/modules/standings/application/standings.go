package standingsservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	standingsdomain "github.com/pyramid-league/ladder-server/app/modules/standings/domain"
	standingsdb "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// StandingsEntry is one ladder slot.
type StandingsEntry struct {
	Rank     int
	TeamID   shared.TeamID
	Movement standingsdomain.Movement
}

// StandingsView is the current ladder ordering for a season.
type StandingsView struct {
	SeasonID  shared.SeasonID
	Entries   []StandingsEntry
	CreatedAt time.Time
}

// AddTeamResult reports the outcome of an enrollment append.
type AddTeamResult struct {
	AlreadyRanked bool
	Rank          int
}

// Latest returns the current ladder ordering.
func (s *StandingsService) Latest(ctx context.Context, seasonID shared.SeasonID) (StandingsView, error) {
	return s.LatestInTx(ctx, s.db, seasonID)
}

// LatestInTx is Latest reading through the caller's transaction, for ranks
// that must be consistent with a season lock the caller already holds.
func (s *StandingsService) LatestInTx(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID) (StandingsView, error) {
	snapshot, err := s.repo.Latest(ctx, tx, seasonID)
	if err != nil {
		if errors.Is(err, standingsdb.ErrNoSnapshot) {
			return StandingsView{SeasonID: seasonID}, nil
		}
		return StandingsView{}, fmt.Errorf("failed to get latest standings: %w", err)
	}
	return viewFromSnapshot(seasonID, snapshot, nil), nil
}

// WithMovement returns the current ladder with per-team movement relative to
// the previous snapshot. With fewer than two snapshots every movement is
// "none".
func (s *StandingsService) WithMovement(ctx context.Context, seasonID shared.SeasonID) (StandingsView, error) {
	current, previous, err := s.repo.LatestTwo(ctx, s.db, seasonID)
	if err != nil {
		if errors.Is(err, standingsdb.ErrNoSnapshot) {
			return StandingsView{SeasonID: seasonID}, nil
		}
		return StandingsView{}, fmt.Errorf("failed to get standings with movement: %w", err)
	}
	return viewFromSnapshot(seasonID, current, previous), nil
}

// RankHistory returns a team's rank over time, oldest first.
func (s *StandingsService) RankHistory(ctx context.Context, seasonID shared.SeasonID, teamID shared.TeamID) ([]standingsdb.RankPoint, error) {
	points, err := s.repo.RankHistory(ctx, s.db, seasonID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rank history: %w", err)
	}
	return points, nil
}

// AddTeam appends a team to the bottom of the ladder, creating the first
// snapshot if the season has none.
func (s *StandingsService) AddTeam(ctx context.Context, seasonID shared.SeasonID, teamID shared.TeamID) (AddTeamResult, error) {
	var result AddTeamResult

	err := s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var txErr error
		result, txErr = s.AddTeamInTx(ctx, tx, seasonID, teamID)
		return txErr
	})
	if err != nil {
		return AddTeamResult{}, fmt.Errorf("failed to add team to standings: %w", err)
	}

	s.logger.InfoContext(ctx, "Team added to standings",
		slog.String("season_id", string(seasonID)),
		slog.String("team_id", string(teamID)),
		slog.Int("rank", result.Rank),
		slog.Bool("already_ranked", result.AlreadyRanked),
	)
	return result, nil
}

// AcquireSeasonLock takes the season's advisory transaction lock.
func (s *StandingsService) AcquireSeasonLock(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID) error {
	return s.repo.AcquireSeasonLock(ctx, tx, seasonID)
}

// AddTeamInTx is the transaction-aware core of AddTeam, exposed so callers
// that append a team as part of a larger write (enrollment) can reuse it.
// The whole read-then-append runs under the season lock: two concurrent
// enrollments must serialize or one would clobber the other's snapshot.
// pg_advisory_xact_lock stacks, so callers already holding the lock are fine.
func (s *StandingsService) AddTeamInTx(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID, teamID shared.TeamID) (AddTeamResult, error) {
	if err := s.repo.AcquireSeasonLock(ctx, tx, seasonID); err != nil {
		return AddTeamResult{}, err
	}

	var results standingsdomain.Results
	snapshot, err := s.repo.Latest(ctx, tx, seasonID)
	switch {
	case err == nil:
		results = snapshot.Results
	case errors.Is(err, standingsdb.ErrNoSnapshot):
		results = standingsdomain.Results{}
	default:
		return AddTeamResult{}, err
	}

	if rank, ok := results.RankOf(teamID); ok {
		return AddTeamResult{AlreadyRanked: true, Rank: rank}, nil
	}

	next := append(results.Clone(), teamID)
	if err := s.repo.Append(ctx, tx, &standingsdb.Snapshot{
		SeasonID: seasonID,
		Results:  next,
	}); err != nil {
		return AddTeamResult{}, err
	}

	return AddTeamResult{Rank: len(next)}, nil
}

// RecordMatchOutcomeInTx appends the post-match snapshot under the season
// lock. The winner takes the loser's slot only when it initiated the
// challenge; a defender win appends an order-preserving snapshot so the
// sequence stays a complete audit trail of every completed match.
//
// A participant missing from the current snapshot is a broken invariant:
// the error propagates and the surrounding transaction must roll back.
func (s *StandingsService) RecordMatchOutcomeInTx(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID, matchID shared.MatchID, winner, loser shared.TeamID, winnerWasChallenger bool) error {
	if err := s.repo.AcquireSeasonLock(ctx, tx, seasonID); err != nil {
		return err
	}

	snapshot, err := s.repo.Latest(ctx, tx, seasonID)
	if err != nil {
		return err
	}

	next, err := standingsdomain.ApplySwap(snapshot.Results, winner, loser, winnerWasChallenger)
	if err != nil {
		s.logger.ErrorContext(ctx, "Standings invariant violated while recording match outcome",
			slog.String("season_id", string(seasonID)),
			slog.String("match_id", string(matchID)),
			slog.Any("error", err),
		)
		return err
	}

	return s.repo.Append(ctx, tx, &standingsdb.Snapshot{
		SeasonID: seasonID,
		MatchID:  &matchID,
		Results:  next,
	})
}

func viewFromSnapshot(seasonID shared.SeasonID, current, previous *standingsdb.Snapshot) StandingsView {
	view := StandingsView{
		SeasonID:  seasonID,
		Entries:   make([]StandingsEntry, 0, len(current.Results)),
		CreatedAt: current.CreatedAt,
	}
	for i, teamID := range current.Results {
		entry := StandingsEntry{
			Rank:     i + 1,
			TeamID:   teamID,
			Movement: standingsdomain.MovementNone,
		}
		if previous != nil {
			entry.Movement = standingsdomain.ComputeMovement(teamID, current.Results, previous.Results)
		}
		view.Entries = append(view.Entries, entry)
	}
	return view
}
