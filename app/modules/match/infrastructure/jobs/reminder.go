package matchjobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/uptrace/bun"

	eventsservice "github.com/pyramid-league/ladder-server/app/modules/events/application"
	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// QueueName is the dedicated river queue for match reminders.
const QueueName = "match_reminders"

// ReminderArgs schedules a pre-match nudge for both sides.
type ReminderArgs struct {
	MatchID  shared.MatchID  `json:"match_id"`
	SeasonID shared.SeasonID `json:"season_id"`
}

func (ReminderArgs) Kind() string { return "match_reminder" }

func (ReminderArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueName}
}

// ReminderWorker delivers the reminder when the job comes due. A match that
// already left the open states gets no reminder; the job completes quietly.
type ReminderWorker struct {
	river.WorkerDefaults[ReminderArgs]

	db      *bun.DB
	matches matchdb.Repository
	seasons seasondb.Repository
	events  *eventsservice.EventService
	logger  *slog.Logger
}

// NewReminderWorker creates a new ReminderWorker.
func NewReminderWorker(db *bun.DB, matches matchdb.Repository, seasons seasondb.Repository, events *eventsservice.EventService, logger *slog.Logger) *ReminderWorker {
	return &ReminderWorker{
		db:      db,
		matches: matches,
		seasons: seasons,
		events:  events,
		logger:  logger,
	}
}

func (w *ReminderWorker) Work(ctx context.Context, job *river.Job[ReminderArgs]) error {
	match, err := w.matches.GetByID(ctx, w.db, job.Args.MatchID)
	if err != nil {
		return fmt.Errorf("reminder: %w", err)
	}
	if !matchdomain.IsOpen(match.Status) {
		w.logger.InfoContext(ctx, "Skipping reminder for settled match",
			slog.String("match_id", string(match.ID)),
			slog.String("status", string(match.Status)),
		)
		return nil
	}

	season, err := w.seasons.GetSeason(ctx, w.db, match.SeasonID)
	if err != nil {
		return fmt.Errorf("reminder: %w", err)
	}

	for _, teamID := range []shared.TeamID{match.Team1ID, match.Team2ID} {
		team, err := w.seasons.GetTeam(ctx, w.db, teamID)
		if err != nil {
			return fmt.Errorf("reminder: %w", err)
		}
		for _, member := range team.Members {
			personal := &eventsdb.Event{
				ClubID:   season.ClubID,
				SeasonID: &match.SeasonID,
				MatchID:  &match.ID,
				Kind:     eventsdb.EventMatchReminder,
				Metadata: map[string]any{"game_at": match.GameAt},
			}
			if err := w.events.RecordPersonal(ctx, w.db, personal, member); err != nil {
				return fmt.Errorf("reminder: %w", err)
			}
			w.events.PublishRecorded(ctx, personal)
		}
	}
	return nil
}

// Scheduler enqueues reminder jobs through river.
type Scheduler struct {
	client *river.Client[pgx.Tx]
}

// NewScheduler creates a new Scheduler.
func NewScheduler(client *river.Client[pgx.Tx]) *Scheduler {
	return &Scheduler{client: client}
}

func (s *Scheduler) ScheduleReminder(ctx context.Context, matchID shared.MatchID, seasonID shared.SeasonID, at time.Time) error {
	_, err := s.client.Insert(ctx, ReminderArgs{MatchID: matchID, SeasonID: seasonID}, &river.InsertOpts{
		ScheduledAt: at,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue match reminder: %w", err)
	}
	return nil
}
