package seasonservice

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/uptrace/bun"

	eventsservice "github.com/pyramid-league/ladder-server/app/modules/events/application"
	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	standingsservice "github.com/pyramid-league/ladder-server/app/modules/standings/application"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// EventRecorder is the slice of the event service enrollment and
// availability changes need.
type EventRecorder interface {
	RecordPublic(ctx context.Context, db bun.IDB, event *eventsdb.Event) error
	PublishRecorded(ctx context.Context, event *eventsdb.Event)
}

var _ EventRecorder = (*eventsservice.EventService)(nil)

// OpenChallengeReader is the slice of the match repository the availability
// guard needs.
type OpenChallengeReader interface {
	TeamsWithOpenChallenge(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (map[shared.TeamID]shared.MatchID, error)
}

var _ OpenChallengeReader = (matchdb.Repository)(nil)

// SeasonService manages seasons, team enrollment and availability windows.
type SeasonService struct {
	db        *bun.DB
	repo      seasondb.Repository
	matches   OpenChallengeReader
	standings standingsservice.Service
	events    EventRecorder
	logger    *slog.Logger
}

// NewSeasonService creates a new SeasonService.
func NewSeasonService(db *bun.DB, repo seasondb.Repository, matches OpenChallengeReader, standings standingsservice.Service, events EventRecorder, logger *slog.Logger) *SeasonService {
	return &SeasonService{
		db:        db,
		repo:      repo,
		matches:   matches,
		standings: standings,
		events:    events,
		logger:    logger,
	}
}

// runInTx ensures the operation runs within a transaction. A nil db lets
// tests exercise the logic against fakes without a live connection.
func (s *SeasonService) runInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// GetSeason returns one season.
func (s *SeasonService) GetSeason(ctx context.Context, seasonID shared.SeasonID) (*seasondb.Season, error) {
	return s.repo.GetSeason(ctx, s.db, seasonID)
}

// GetTeam returns one team.
func (s *SeasonService) GetTeam(ctx context.Context, teamID shared.TeamID) (*seasondb.Team, error) {
	return s.repo.GetTeam(ctx, s.db, teamID)
}
