package standingsservice

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/uptrace/bun"

	standingsdb "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories"
)

// StandingsService owns the append-only standings sequence for every season.
type StandingsService struct {
	repo   standingsdb.Repository
	logger *slog.Logger
	db     *bun.DB
}

// NewStandingsService creates a new StandingsService.
func NewStandingsService(repo standingsdb.Repository, logger *slog.Logger, db *bun.DB) *StandingsService {
	return &StandingsService{
		repo:   repo,
		logger: logger,
		db:     db,
	}
}

// runInTx ensures the operation runs within a transaction. A nil db lets
// tests exercise the logic against fakes without a live connection.
func (s *StandingsService) runInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}
