package standingsservice

import (
	"context"

	"github.com/uptrace/bun"

	standingsdb "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// Service defines the contract for standings operations.
type Service interface {
	// Latest returns the current ladder ordering.
	Latest(ctx context.Context, seasonID shared.SeasonID) (StandingsView, error)

	// LatestInTx is Latest reading through the caller's transaction.
	LatestInTx(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID) (StandingsView, error)

	// WithMovement returns the current ladder with per-team movement
	// relative to the previous snapshot.
	WithMovement(ctx context.Context, seasonID shared.SeasonID) (StandingsView, error)

	// RankHistory returns a team's rank over time, oldest first.
	RankHistory(ctx context.Context, seasonID shared.SeasonID, teamID shared.TeamID) ([]standingsdb.RankPoint, error)

	// AddTeam appends a team to the bottom of the ladder. Enrolling an
	// already-ranked team is reported in the result, not as an error.
	AddTeam(ctx context.Context, seasonID shared.SeasonID, teamID shared.TeamID) (AddTeamResult, error)

	// AcquireSeasonLock serializes all standings-affecting writes for one
	// season within the caller's transaction. Must be taken before any read
	// the caller will base a write on.
	AcquireSeasonLock(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID) error

	// AddTeamInTx is AddTeam running inside the caller's transaction.
	AddTeamInTx(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID, teamID shared.TeamID) (AddTeamResult, error)

	// RecordMatchOutcomeInTx appends the post-match snapshot inside the
	// caller's transaction, swapping ranks when the winner initiated the
	// challenge.
	RecordMatchOutcomeInTx(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID, matchID shared.MatchID, winner, loser shared.TeamID, winnerWasChallenger bool) error
}
