package matchmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating matches and date_proposals tables...")

		if _, err := db.NewCreateTable().Model((*matchdb.Match)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*matchdb.DateProposal)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		// The open-challenge set per season is read on every challenge
		// attempt, inside and outside the lock.
		_, err := db.NewRaw("CREATE INDEX IF NOT EXISTS idx_matches_season_open ON matches (season_id) WHERE status IN ('challenged', 'date_set')").Exec(ctx)
		if err != nil {
			return err
		}
		_, err = db.NewRaw("CREATE INDEX IF NOT EXISTS idx_date_proposals_match ON date_proposals (match_id, status)").Exec(ctx)
		if err != nil {
			return err
		}

		fmt.Println("matches and date_proposals tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping matches and date_proposals tables...")

		if _, err := db.NewDropTable().Model((*matchdb.DateProposal)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewDropTable().Model((*matchdb.Match)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("matches and date_proposals tables dropped successfully!")
		return nil
	})
}
