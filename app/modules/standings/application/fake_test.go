package standingsservice

import (
	"context"

	"github.com/uptrace/bun"

	standingsdb "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// ------------------------
// Fake Standings Repo
// ------------------------

type fakeStandingsRepo struct {
	trace []string

	latestFunc      func(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*standingsdb.Snapshot, error)
	latestTwoFunc   func(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*standingsdb.Snapshot, *standingsdb.Snapshot, error)
	appendFunc      func(ctx context.Context, db bun.IDB, snapshot *standingsdb.Snapshot) error
	rankHistoryFunc func(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, teamID shared.TeamID) ([]standingsdb.RankPoint, error)
	acquireLockErr  error

	appended []*standingsdb.Snapshot
}

func (f *fakeStandingsRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *fakeStandingsRepo) Latest(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*standingsdb.Snapshot, error) {
	f.record("Latest")
	if f.latestFunc != nil {
		return f.latestFunc(ctx, db, seasonID)
	}
	return nil, standingsdb.ErrNoSnapshot
}

func (f *fakeStandingsRepo) LatestTwo(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*standingsdb.Snapshot, *standingsdb.Snapshot, error) {
	f.record("LatestTwo")
	if f.latestTwoFunc != nil {
		return f.latestTwoFunc(ctx, db, seasonID)
	}
	return nil, nil, standingsdb.ErrNoSnapshot
}

func (f *fakeStandingsRepo) Append(ctx context.Context, db bun.IDB, snapshot *standingsdb.Snapshot) error {
	f.record("Append")
	f.appended = append(f.appended, snapshot)
	if f.appendFunc != nil {
		return f.appendFunc(ctx, db, snapshot)
	}
	return nil
}

func (f *fakeStandingsRepo) RankHistory(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, teamID shared.TeamID) ([]standingsdb.RankPoint, error) {
	f.record("RankHistory")
	if f.rankHistoryFunc != nil {
		return f.rankHistoryFunc(ctx, db, seasonID, teamID)
	}
	return nil, nil
}

func (f *fakeStandingsRepo) AcquireSeasonLock(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) error {
	f.record("AcquireSeasonLock")
	return f.acquireLockErr
}
