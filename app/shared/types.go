package shared

// Identifier types shared across modules. They are plain strings (uuid text
// for row ids, club-member ids for players) so they survive jsonb round-trips
// without custom marshalling.

type (
	// ClubID identifies the club that owns seasons and the event feed.
	ClubID string

	// SeasonID identifies one ladder season.
	SeasonID string

	// TeamID identifies the ranked unit occupying a ladder slot.
	TeamID string

	// PlayerID identifies a club member.
	PlayerID string

	// MatchID identifies a challenge match.
	MatchID string

	// ProposalID identifies a date proposal on a match.
	ProposalID string

	// EventID identifies an event feed entry.
	EventID string
)

func (id ClubID) String() string     { return string(id) }
func (id SeasonID) String() string   { return string(id) }
func (id TeamID) String() string     { return string(id) }
func (id PlayerID) String() string   { return string(id) }
func (id MatchID) String() string    { return string(id) }
func (id ProposalID) String() string { return string(id) }
func (id EventID) String() string    { return string(id) }
