package matchservice

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	eventsservice "github.com/pyramid-league/ladder-server/app/modules/events/application"
	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	standingsservice "github.com/pyramid-league/ladder-server/app/modules/standings/application"
	"github.com/pyramid-league/ladder-server/app/shared"
	"github.com/pyramid-league/ladder-server/config"
)

// EventRecorder is the slice of the event service the match lifecycle needs.
type EventRecorder interface {
	RecordPublic(ctx context.Context, db bun.IDB, event *eventsdb.Event) error
	RecordPersonal(ctx context.Context, db bun.IDB, event *eventsdb.Event, target shared.PlayerID) error
	PublishRecorded(ctx context.Context, event *eventsdb.Event)
}

var _ EventRecorder = (*eventsservice.EventService)(nil)

// ReminderScheduler enqueues a match reminder for later delivery. A nil
// scheduler disables reminders.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, matchID shared.MatchID, seasonID shared.SeasonID, at time.Time) error
}

// MatchService drives the match lifecycle: challenges, scheduling, results
// and the standings updates they trigger.
type MatchService struct {
	db        *bun.DB
	repo      matchdb.Repository
	seasons   seasondb.Repository
	standings standingsservice.Service
	events    EventRecorder
	reminders ReminderScheduler
	logger    *slog.Logger
	cfg       config.LadderConfig
	metrics   *Metrics
}

// NewMatchService creates a new MatchService.
func NewMatchService(
	db *bun.DB,
	repo matchdb.Repository,
	seasons seasondb.Repository,
	standings standingsservice.Service,
	events EventRecorder,
	reminders ReminderScheduler,
	logger *slog.Logger,
	cfg config.LadderConfig,
	metrics *Metrics,
) *MatchService {
	return &MatchService{
		db:        db,
		repo:      repo,
		seasons:   seasons,
		standings: standings,
		events:    events,
		reminders: reminders,
		logger:    logger,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// runInTx ensures the operation runs within a transaction. A nil db lets
// tests exercise the logic against fakes without a live connection.
func (s *MatchService) runInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// activeSeason loads the season and rejects anything not currently running.
func (s *MatchService) activeSeason(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*seasondb.Season, error) {
	season, err := s.seasons.GetSeason(ctx, db, seasonID)
	if err != nil {
		return nil, err
	}
	if season.Status != seasondb.SeasonActive {
		return nil, ErrSeasonNotActive
	}
	return season, nil
}
