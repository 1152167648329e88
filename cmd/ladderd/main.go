package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pyramid-league/ladder-server/app/eventbus"
	eventsservice "github.com/pyramid-league/ladder-server/app/modules/events/application"
	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	matchservice "github.com/pyramid-league/ladder-server/app/modules/match/application"
	matchjobs "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/jobs"
	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
	seasonservice "github.com/pyramid-league/ladder-server/app/modules/season/application"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	standingsservice "github.com/pyramid-league/ladder-server/app/modules/standings/application"
	standingsdb "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
	"github.com/pyramid-league/ladder-server/config"
)

func main() {
	app := &cli.App{
		Name:  "ladderd",
		Usage: "challenge ladder server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "path to the configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the ladder server",
				Action: func(c *cli.Context) error {
					return serve(c.Context, c.String("config"))
				},
			},
			newDBCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx context.Context, configFile string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("service", "ladderd"),
		slog.String("environment", cfg.Observability.Environment),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	var bus shared.EventBus = shared.NoOpEventBus{}
	if cfg.NATS.URL != "" {
		bus, err = eventbus.NewEventBus(ctx, cfg.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect event bus: %w", err)
		}
	}
	defer bus.Close()

	eventRepo := eventsdb.NewEventRepo()
	eventService := eventsservice.NewEventService(eventRepo, bus, logger, db)

	standingsRepo := standingsdb.NewStandingsRepo()
	standingsService := standingsservice.NewStandingsService(standingsRepo, logger, db)

	matchRepo := matchdb.NewMatchRepo()
	seasonRepo := seasondb.NewSeasonRepo()

	// river runs on its own pgx pool; bun keeps the database/sql one.
	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	workers := river.NewWorkers()
	river.AddWorker(workers, matchjobs.NewReminderWorker(db, matchRepo, seasonRepo, eventService, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			matchjobs.QueueName: {MaxWorkers: cfg.Ladder.ReminderQueueWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create river client: %w", err)
	}

	matchMetrics := matchservice.NewMetrics(prometheus.DefaultRegisterer)
	matchService := matchservice.NewMatchService(
		db,
		matchRepo,
		seasonRepo,
		standingsService,
		eventService,
		matchjobs.NewScheduler(riverClient),
		logger,
		cfg.Ladder,
		matchMetrics,
	)
	seasonService := seasonservice.NewSeasonService(db, seasonRepo, matchRepo, standingsService, eventService, logger)

	ladderAPI := &api{
		standings: standingsService,
		matches:   matchService,
		seasons:   seasonService,
		events:    eventService,
		logger:    logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api/v1", ladderAPI.routes)

	server := &http.Server{
		Addr:    cfg.Observability.MetricsAddress,
		Handler: router,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.InfoContext(ctx, "Starting job workers")
		return riverClient.Start(ctx)
	})

	group.Go(func() error {
		logger.InfoContext(ctx, "Listening", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := riverClient.Stop(shutdownCtx); err != nil {
			logger.Warn("Job workers did not stop cleanly", slog.Any("error", err))
		}
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
