package matchdomain

import "fmt"

// SetScore is one set's points for both teams. Team1 is always the
// challenger.
type SetScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// InvalidScoresError reports a score sheet that cannot be a valid best-of-N
// outcome. Validation runs before any write, so an invalid sheet never
// touches the match row.
type InvalidScoresError struct {
	Reason string
}

func (e *InvalidScoresError) Error() string {
	return "invalid scores: " + e.Reason
}

// ValidateScores checks a score sheet against the season's best-of count and
// returns the winning side (1 or 2). A valid sheet has no negative points,
// no tied sets, exactly one side reaching the clinch count, and no sets
// played past the clinch.
func ValidateScores(sets []SetScore, bestOf int) (int, error) {
	if bestOf < 1 || bestOf%2 == 0 {
		return 0, &InvalidScoresError{Reason: fmt.Sprintf("best-of must be a positive odd number, got %d", bestOf)}
	}
	if len(sets) == 0 {
		return 0, &InvalidScoresError{Reason: "no sets recorded"}
	}
	if len(sets) > bestOf {
		return 0, &InvalidScoresError{Reason: fmt.Sprintf("%d sets recorded for a best-of-%d match", len(sets), bestOf)}
	}

	clinch := bestOf/2 + 1
	wins1, wins2 := 0, 0
	for i, set := range sets {
		if wins1 == clinch || wins2 == clinch {
			return 0, &InvalidScoresError{Reason: fmt.Sprintf("set %d played after the match was decided", i+1)}
		}
		switch {
		case set.Team1 < 0 || set.Team2 < 0:
			return 0, &InvalidScoresError{Reason: fmt.Sprintf("set %d has negative points", i+1)}
		case set.Team1 == set.Team2:
			return 0, &InvalidScoresError{Reason: fmt.Sprintf("set %d is tied", i+1)}
		case set.Team1 > set.Team2:
			wins1++
		default:
			wins2++
		}
	}

	switch clinch {
	case wins1:
		return 1, nil
	case wins2:
		return 2, nil
	}
	return 0, &InvalidScoresError{Reason: fmt.Sprintf("neither side reached %d set wins", clinch)}
}
