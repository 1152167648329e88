package eventsmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating events table...")

		if _, err := db.NewCreateTable().Model((*eventsdb.Event)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		_, err := db.NewRaw("CREATE INDEX IF NOT EXISTS idx_events_club_created ON events (club_id, created_at DESC)").Exec(ctx)
		if err != nil {
			return err
		}
		_, err = db.NewRaw("CREATE INDEX IF NOT EXISTS idx_events_target ON events (target_id, created_at DESC) WHERE target_id IS NOT NULL").Exec(ctx)
		if err != nil {
			return err
		}

		fmt.Println("events table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping events table...")

		if _, err := db.NewDropTable().Model((*eventsdb.Event)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}

		fmt.Println("events table dropped successfully!")
		return nil
	})
}
