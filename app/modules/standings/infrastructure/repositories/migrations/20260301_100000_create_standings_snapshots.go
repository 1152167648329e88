package standingsmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	standingsdb "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating standings_snapshots table...")

		if _, err := db.NewCreateTable().Model((*standingsdb.Snapshot)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		// Latest-snapshot lookups scan (season_id, id DESC).
		_, err := db.NewRaw("CREATE INDEX IF NOT EXISTS idx_standings_snapshots_season_id ON standings_snapshots (season_id, id DESC)").Exec(ctx)
		if err != nil {
			return err
		}

		fmt.Println("standings_snapshots table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping standings_snapshots table...")

		if _, err := db.NewDropTable().Model((*standingsdb.Snapshot)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("standings_snapshots table dropped successfully!")
		return nil
	})
}
