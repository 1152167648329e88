package standingsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/pyramid-league/ladder-server/app/shared"
)

// Repository defines operations on the standings_snapshots table.
//
// Append and AcquireSeasonLock exist because "latest snapshot + append" is a
// read-then-write over derived state: callers must hold the season lock for
// the whole decision, inside one transaction.
type Repository interface {
	// Latest retrieves the most recent snapshot for the season.
	Latest(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*Snapshot, error)

	// LatestTwo retrieves the current and previous snapshots. previous is nil
	// when only one snapshot exists.
	LatestTwo(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (current, previous *Snapshot, err error)

	// Append inserts a brand-new snapshot row. Existing rows are never
	// updated or deleted.
	Append(ctx context.Context, db bun.IDB, snapshot *Snapshot) error

	// RankHistory returns the team's position in every snapshot containing
	// it, oldest first.
	RankHistory(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, teamID shared.TeamID) ([]RankPoint, error)

	// AcquireSeasonLock acquires a pg_advisory_xact_lock for the season.
	// Must be the first statement of the transaction that needs it.
	AcquireSeasonLock(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) error
}

// StandingsRepo implements Repository.
type StandingsRepo struct{}

func NewStandingsRepo() Repository {
	return &StandingsRepo{}
}

func (r *StandingsRepo) Latest(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*Snapshot, error) {
	snapshot := new(Snapshot)
	err := db.NewSelect().
		Model(snapshot).
		Where("season_id = ?", seasonID).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("standings.Latest: %w", err)
	}
	return snapshot, nil
}

func (r *StandingsRepo) LatestTwo(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*Snapshot, *Snapshot, error) {
	var snapshots []Snapshot
	err := db.NewSelect().
		Model(&snapshots).
		Where("season_id = ?", seasonID).
		Order("id DESC").
		Limit(2).
		Scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("standings.LatestTwo: %w", err)
	}
	switch len(snapshots) {
	case 0:
		return nil, nil, ErrNoSnapshot
	case 1:
		return &snapshots[0], nil, nil
	default:
		return &snapshots[0], &snapshots[1], nil
	}
}

func (r *StandingsRepo) Append(ctx context.Context, db bun.IDB, snapshot *Snapshot) error {
	if err := snapshot.Results.Validate(); err != nil {
		return fmt.Errorf("standings.Append: %w", err)
	}
	if _, err := db.NewInsert().Model(snapshot).Exec(ctx); err != nil {
		return fmt.Errorf("standings.Append: %w", err)
	}
	return nil
}

func (r *StandingsRepo) RankHistory(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, teamID shared.TeamID) ([]RankPoint, error) {
	var snapshots []Snapshot
	err := db.NewSelect().
		Model(&snapshots).
		Where("season_id = ?", seasonID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("standings.RankHistory: %w", err)
	}

	points := make([]RankPoint, 0, len(snapshots))
	for _, snapshot := range snapshots {
		if rank, ok := snapshot.Results.RankOf(teamID); ok {
			points = append(points, RankPoint{At: snapshot.CreatedAt, Rank: rank})
		}
	}
	return points, nil
}

func (r *StandingsRepo) AcquireSeasonLock(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) error {
	// hashtext() gives a stable int8 key from the season id string.
	if _, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", string(seasonID)).Exec(ctx); err != nil {
		return fmt.Errorf("standings.AcquireSeasonLock: %w", err)
	}
	return nil
}
