package seasondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/pyramid-league/ladder-server/app/shared"
)

// Repository defines operations on the seasons, teams and unavailabilities
// tables.
type Repository interface {
	// InsertSeason creates a season in draft.
	InsertSeason(ctx context.Context, db bun.IDB, season *Season) error

	// GetSeason retrieves one season.
	GetSeason(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*Season, error)

	// UpdateSeasonStatus applies a one-directional status change guarded by
	// the expected prior status. Returns false when the row was not in the
	// expected status.
	UpdateSeasonStatus(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, from, to SeasonStatus) (bool, error)

	// InsertTeam enrolls a team.
	InsertTeam(ctx context.Context, db bun.IDB, team *Team) error

	// GetTeam retrieves one team.
	GetTeam(ctx context.Context, db bun.IDB, teamID shared.TeamID) (*Team, error)

	// TeamsBySeason lists a season's teams, oldest first.
	TeamsBySeason(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) ([]Team, error)

	// TeamOfPlayer finds the player's team in the season.
	TeamOfPlayer(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, playerID shared.PlayerID) (*Team, error)

	// SetOptedOut flips a team's opt-out flag.
	SetOptedOut(ctx context.Context, db bun.IDB, teamID shared.TeamID, optedOut bool) error

	// InsertUnavailability records a player's blocked-out window.
	InsertUnavailability(ctx context.Context, db bun.IDB, window *Unavailability) error

	// UnavailableTeamIDs returns the season's teams that have at least one
	// member inside an active unavailability window.
	UnavailableTeamIDs(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, now time.Time) ([]shared.TeamID, error)
}

// SeasonRepo implements Repository.
type SeasonRepo struct{}

func NewSeasonRepo() Repository {
	return &SeasonRepo{}
}

func (r *SeasonRepo) InsertSeason(ctx context.Context, db bun.IDB, season *Season) error {
	if season.Status == "" {
		season.Status = SeasonDraft
	}
	if _, err := db.NewInsert().Model(season).Exec(ctx); err != nil {
		return fmt.Errorf("season.InsertSeason: %w", err)
	}
	return nil
}

func (r *SeasonRepo) GetSeason(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*Season, error) {
	season := new(Season)
	err := db.NewSelect().Model(season).Where("id = ?", seasonID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("season.GetSeason: %w", err)
	}
	return season, nil
}

func (r *SeasonRepo) UpdateSeasonStatus(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, from, to SeasonStatus) (bool, error) {
	res, err := db.NewUpdate().
		Model((*Season)(nil)).
		Set("status = ?", to).
		Where("id = ?", seasonID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("season.UpdateSeasonStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("season.UpdateSeasonStatus: %w", err)
	}
	return rows > 0, nil
}

func (r *SeasonRepo) InsertTeam(ctx context.Context, db bun.IDB, team *Team) error {
	if _, err := db.NewInsert().Model(team).Exec(ctx); err != nil {
		return fmt.Errorf("season.InsertTeam: %w", err)
	}
	return nil
}

func (r *SeasonRepo) GetTeam(ctx context.Context, db bun.IDB, teamID shared.TeamID) (*Team, error) {
	team := new(Team)
	err := db.NewSelect().Model(team).Where("id = ?", teamID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("season.GetTeam: %w", err)
	}
	return team, nil
}

func (r *SeasonRepo) TeamsBySeason(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) ([]Team, error) {
	var teams []Team
	err := db.NewSelect().
		Model(&teams).
		Where("season_id = ?", seasonID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("season.TeamsBySeason: %w", err)
	}
	return teams, nil
}

func (r *SeasonRepo) TeamOfPlayer(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, playerID shared.PlayerID) (*Team, error) {
	team := new(Team)
	err := db.NewSelect().
		Model(team).
		Where("season_id = ?", seasonID).
		Where("members @> to_jsonb(?::text)", string(playerID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTeamForPlayer
		}
		return nil, fmt.Errorf("season.TeamOfPlayer: %w", err)
	}
	return team, nil
}

func (r *SeasonRepo) SetOptedOut(ctx context.Context, db bun.IDB, teamID shared.TeamID, optedOut bool) error {
	res, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("opted_out = ?", optedOut).
		Where("id = ?", teamID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("season.SetOptedOut: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("season.SetOptedOut: %w", err)
	}
	if rows == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *SeasonRepo) InsertUnavailability(ctx context.Context, db bun.IDB, window *Unavailability) error {
	if _, err := db.NewInsert().Model(window).Exec(ctx); err != nil {
		return fmt.Errorf("season.InsertUnavailability: %w", err)
	}
	return nil
}

func (r *SeasonRepo) UnavailableTeamIDs(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, now time.Time) ([]shared.TeamID, error) {
	var ids []shared.TeamID
	err := db.NewRaw(`
		SELECT DISTINCT t.id
		FROM teams AS t
		JOIN unavailabilities AS u
			ON u.player_id IN (SELECT jsonb_array_elements_text(t.members))
		WHERE t.season_id = ?
			AND u.starts_at <= ?
			AND u.ends_at >= ?`,
		seasonID, now, now,
	).Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("season.UnavailableTeamIDs: %w", err)
	}
	return ids, nil
}
