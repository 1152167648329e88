package seasonservice

import (
	"errors"
	"fmt"
)

var (
	// ErrEnrollmentClosed indicates the season does not take new teams.
	ErrEnrollmentClosed = errors.New("season enrollment is closed")

	// ErrSeasonNotActive indicates the season is not currently running.
	ErrSeasonNotActive = errors.New("season is not active")

	// ErrSeasonStatusConflict indicates the season left the expected status
	// before the change applied.
	ErrSeasonStatusConflict = errors.New("season status changed concurrently")

	// ErrInvalidDateRange indicates an unavailability window that ends
	// before it starts.
	ErrInvalidDateRange = errors.New("window end precedes its start")

	// ErrOpenChallenge indicates the player's team has an open challenge,
	// which blocks unavailability changes.
	ErrOpenChallenge = errors.New("team has an open challenge")
)

// TeamSizeError indicates an enrollment outside the season's size bounds.
type TeamSizeError struct {
	Size, Min, Max int
}

func (e *TeamSizeError) Error() string {
	return fmt.Sprintf("team size %d outside bounds [%d, %d]", e.Size, e.Min, e.Max)
}
