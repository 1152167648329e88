package matchdomain

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	StatusChallenged          MatchStatus = "challenged"
	StatusDateSet             MatchStatus = "date_set"
	StatusPendingConfirmation MatchStatus = "pending_confirmation"
	StatusCompleted           MatchStatus = "completed"
	StatusWithdrawn           MatchStatus = "withdrawn"
	StatusForfeited           MatchStatus = "forfeited"
	StatusDisputed            MatchStatus = "disputed"
)

// Transition names a lifecycle action that moves a match between statuses.
type Transition string

const (
	TransitionAcceptDate    Transition = "accept_date"
	TransitionEnterResult   Transition = "enter_result"
	TransitionConfirmResult Transition = "confirm_result"
	TransitionDisputeResult Transition = "dispute_result"
	TransitionWithdraw      Transition = "withdraw"
	TransitionForfeit       Transition = "forfeit"
)

// transitions maps each action to the statuses it may start from and the
// status it lands in. Every status change in the system goes through this
// table; a conditional update with the From set as its WHERE clause makes
// each transition atomic without a row lock.
var transitions = map[Transition]struct {
	From []MatchStatus
	To   MatchStatus
}{
	TransitionAcceptDate:    {From: []MatchStatus{StatusChallenged, StatusDateSet}, To: StatusDateSet},
	TransitionEnterResult:   {From: []MatchStatus{StatusChallenged, StatusDateSet}, To: StatusPendingConfirmation},
	TransitionConfirmResult: {From: []MatchStatus{StatusPendingConfirmation}, To: StatusCompleted},
	TransitionDisputeResult: {From: []MatchStatus{StatusPendingConfirmation}, To: StatusDisputed},
	TransitionWithdraw:      {From: []MatchStatus{StatusChallenged, StatusDateSet}, To: StatusWithdrawn},
	TransitionForfeit:       {From: []MatchStatus{StatusChallenged, StatusDateSet}, To: StatusForfeited},
}

// AllowedFrom returns the statuses a transition may start from.
func AllowedFrom(t Transition) []MatchStatus {
	return transitions[t].From
}

// Target returns the status a transition lands in.
func Target(t Transition) MatchStatus {
	return transitions[t].To
}

// OpenStatuses are the statuses that count as an open challenge. A team with
// a match in one of these may not issue or receive another challenge.
func OpenStatuses() []MatchStatus {
	return []MatchStatus{StatusChallenged, StatusDateSet}
}

// IsOpen reports whether the status counts as an open challenge.
func IsOpen(s MatchStatus) bool {
	return s == StatusChallenged || s == StatusDateSet
}

// IsTerminal reports whether the match can never change status again.
// Disputed matches need admin resolution outside the system but take no
// further transitions here.
func IsTerminal(s MatchStatus) bool {
	switch s {
	case StatusCompleted, StatusWithdrawn, StatusForfeited, StatusDisputed:
		return true
	}
	return false
}

// TransitionResult is the outcome of a status-guarded update. A Conflict
// means another actor changed the row first; the caller surfaces it and the
// user retries with fresh state.
type TransitionResult int

const (
	TransitionApplied TransitionResult = iota
	TransitionConflict
)

func (r TransitionResult) String() string {
	if r == TransitionApplied {
		return "applied"
	}
	return "conflict"
}
