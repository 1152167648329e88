package seasondb

import "errors"

var (
	// ErrSeasonNotFound indicates the season id matched no row.
	ErrSeasonNotFound = errors.New("season not found")

	// ErrTeamNotFound indicates the team id matched no row.
	ErrTeamNotFound = errors.New("team not found")

	// ErrNoTeamForPlayer indicates the player has no team in the season.
	ErrNoTeamForPlayer = errors.New("player has no team in season")
)
