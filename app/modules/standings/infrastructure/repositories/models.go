package standingsdb

import (
	"time"

	"github.com/uptrace/bun"

	standingsdomain "github.com/pyramid-league/ladder-server/app/modules/standings/domain"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// Snapshot is one immutable, fully-ordered rank sequence for a season.
// Rows are append-only: the sequence of snapshots, ordered by id, is the
// complete rank history. Ranks are never stored on teams.
type Snapshot struct {
	bun.BaseModel `bun:"table:standings_snapshots,alias:ss"`

	ID        int64                   `bun:"id,pk,autoincrement"`
	SeasonID  shared.SeasonID         `bun:"season_id,notnull,type:uuid"`
	MatchID   *shared.MatchID         `bun:"match_id,nullzero,type:uuid"` // triggering match, if any
	Results   standingsdomain.Results `bun:"results,type:jsonb,notnull"`
	CreatedAt time.Time               `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// RankPoint is one (timestamp, rank) observation for a team, used for trend
// charts. Snapshots that do not contain the team are omitted, never
// interpolated.
type RankPoint struct {
	At   time.Time
	Rank int
}
