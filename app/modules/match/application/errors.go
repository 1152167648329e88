package matchservice

import (
	"errors"
	"fmt"

	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	"github.com/pyramid-league/ladder-server/app/shared"
)

var (
	// ErrSeasonNotActive indicates the season is not currently running.
	ErrSeasonNotActive = errors.New("season is not active")

	// ErrNotParticipant indicates the acting player belongs to neither team.
	ErrNotParticipant = errors.New("player is not a participant of the match")

	// ErrNotChallenger indicates an action reserved for the challenging team.
	ErrNotChallenger = errors.New("only the challenging team may do this")

	// ErrCannotConfirmOwnResult indicates the enterer tried to confirm or
	// dispute their own score sheet.
	ErrCannotConfirmOwnResult = errors.New("result must be confirmed by the other participant")

	// ErrTeamUnavailable indicates one side has a member inside an active
	// unavailability window.
	ErrTeamUnavailable = errors.New("team has an unavailable member")

	// ErrUnparsableDate indicates the free-text date could not be understood.
	ErrUnparsableDate = errors.New("could not parse a date from the text")
)

// ChallengeConflictError indicates a team already has an open challenge.
// Expected under concurrency; the caller retries with fresh state.
type ChallengeConflictError struct {
	TeamID shared.TeamID
}

func (e *ChallengeConflictError) Error() string {
	return fmt.Sprintf("team %s already has an open challenge", e.TeamID)
}

// StatusConflictError indicates a lifecycle transition lost the race: the
// match row was no longer in a status the transition allows.
type StatusConflictError struct {
	MatchID    shared.MatchID
	Transition matchdomain.Transition
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("match %s: %s conflicts with current status", e.MatchID, e.Transition)
}

// ChallengeNotAllowedError indicates the rank gap rule rejected a challenge.
type ChallengeNotAllowedError struct {
	ChallengerRank int
	TargetRank     int
	Reach          int
}

func (e *ChallengeNotAllowedError) Error() string {
	return fmt.Sprintf("rank %d may not challenge rank %d (reach %d)", e.ChallengerRank, e.TargetRank, e.Reach)
}
