package standingsdomain

import (
	"fmt"

	"github.com/pyramid-league/ladder-server/app/shared"
)

// Results is one fully-ordered ladder: rank = index + 1.
type Results []shared.TeamID

// Movement describes how a team moved between two snapshots.
type Movement string

const (
	MovementUp   Movement = "up"
	MovementDown Movement = "down"
	MovementNone Movement = "none"
)

// ErrTeamNotInStandings signals a broken invariant: a team that should occupy
// a ladder slot is missing from the snapshot. Callers must abort, never skip.
type ErrTeamNotInStandings struct {
	TeamID shared.TeamID
}

func (e *ErrTeamNotInStandings) Error() string {
	return fmt.Sprintf("team %s not present in standings", e.TeamID)
}

// RankOf returns the 1-based rank of a team, or false if absent.
func (r Results) RankOf(teamID shared.TeamID) (int, bool) {
	for i, id := range r {
		if id == teamID {
			return i + 1, true
		}
	}
	return 0, false
}

// Contains reports whether the team occupies a slot.
func (r Results) Contains(teamID shared.TeamID) bool {
	_, ok := r.RankOf(teamID)
	return ok
}

// Clone returns an independent copy.
func (r Results) Clone() Results {
	out := make(Results, len(r))
	copy(out, r)
	return out
}

// Validate rejects duplicate team ids. A snapshot is a permutation of a
// subset of the season's teams; the same team twice means corrupted state.
func (r Results) Validate() error {
	seen := make(map[shared.TeamID]struct{}, len(r))
	for _, id := range r {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate team %s in standings", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ApplySwap produces the next ladder ordering after a completed match.
//
// If the winner initiated the challenge it is removed from its slot and
// re-inserted at the loser's original position; everyone else keeps relative
// order. If the defender won, the ordering is unchanged, but a copy is still
// returned so the caller can append an audit snapshot.
func ApplySwap(results Results, winner, loser shared.TeamID, winnerWasChallenger bool) (Results, error) {
	winnerIdx, ok := results.RankOf(winner)
	if !ok {
		return nil, &ErrTeamNotInStandings{TeamID: winner}
	}
	loserIdx, ok := results.RankOf(loser)
	if !ok {
		return nil, &ErrTeamNotInStandings{TeamID: loser}
	}
	winnerIdx-- // back to 0-based
	loserIdx--

	if !winnerWasChallenger {
		return results.Clone(), nil
	}

	out := make(Results, 0, len(results))
	out = append(out, results[:winnerIdx]...)
	out = append(out, results[winnerIdx+1:]...)

	insertAt := loserIdx
	if winnerIdx < loserIdx {
		insertAt = loserIdx - 1
	}

	out = append(out, "")
	copy(out[insertAt+1:], out[insertAt:])
	out[insertAt] = winner

	return out, nil
}

// ComputeMovement compares a team's position between the current and previous
// snapshots. A team absent from the previous snapshot has no movement.
func ComputeMovement(teamID shared.TeamID, current, previous Results) Movement {
	curRank, ok := current.RankOf(teamID)
	if !ok {
		return MovementNone
	}
	prevRank, ok := previous.RankOf(teamID)
	if !ok {
		return MovementNone
	}
	switch {
	case curRank < prevRank:
		return MovementUp
	case curRank > prevRank:
		return MovementDown
	default:
		return MovementNone
	}
}
