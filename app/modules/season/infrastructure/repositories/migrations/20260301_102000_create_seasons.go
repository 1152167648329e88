package seasonmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating seasons, teams and unavailabilities tables...")

		if _, err := db.NewCreateTable().Model((*seasondb.Season)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*seasondb.Team)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*seasondb.Unavailability)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		_, err := db.NewRaw("CREATE INDEX IF NOT EXISTS idx_teams_season ON teams (season_id)").Exec(ctx)
		if err != nil {
			return err
		}
		// Membership lookups probe the jsonb members array.
		_, err = db.NewRaw("CREATE INDEX IF NOT EXISTS idx_teams_members ON teams USING gin (members)").Exec(ctx)
		if err != nil {
			return err
		}
		_, err = db.NewRaw("CREATE INDEX IF NOT EXISTS idx_unavailabilities_player ON unavailabilities (player_id, starts_at, ends_at)").Exec(ctx)
		if err != nil {
			return err
		}

		fmt.Println("seasons, teams and unavailabilities tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping seasons, teams and unavailabilities tables...")

		if _, err := db.NewDropTable().Model((*seasondb.Unavailability)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewDropTable().Model((*seasondb.Team)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewDropTable().Model((*seasondb.Season)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("seasons, teams and unavailabilities tables dropped successfully!")
		return nil
	})
}
