package seasonservice

import (
	"context"
	"errors"
	"testing"

	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
)

func TestSeasonLifecycle(t *testing.T) {
	env := newTestEnv()

	season := &seasondb.Season{
		ID:          "season-1",
		ClubID:      "club-1",
		Name:        "Spring",
		BestOf:      3,
		MinTeamSize: 1,
		MaxTeamSize: 2,
	}
	if err := env.service.CreateSeason(context.Background(), season); err != nil {
		t.Fatalf("CreateSeason() error = %v", err)
	}
	if season.Status != seasondb.SeasonDraft {
		t.Errorf("status = %s, want draft", season.Status)
	}

	if err := env.service.ActivateSeason(context.Background(), season.ID); err != nil {
		t.Fatalf("ActivateSeason() error = %v", err)
	}
	if got := env.repo.seasons[season.ID].Status; got != seasondb.SeasonActive {
		t.Errorf("status = %s, want active", got)
	}

	if err := env.service.EndSeason(context.Background(), season.ID); err != nil {
		t.Fatalf("EndSeason() error = %v", err)
	}
	if got := env.repo.seasons[season.ID].Status; got != seasondb.SeasonEnded {
		t.Errorf("status = %s, want ended", got)
	}
}

func TestSeasonLifecycleIsOneDirectional(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedActiveSeason()

	if err := env.service.ActivateSeason(context.Background(), seasonID); !errors.Is(err, ErrSeasonStatusConflict) {
		t.Errorf("activating an active season error = %v, want ErrSeasonStatusConflict", err)
	}

	if err := env.service.EndSeason(context.Background(), seasonID); err != nil {
		t.Fatalf("EndSeason() error = %v", err)
	}
	if err := env.service.ActivateSeason(context.Background(), seasonID); !errors.Is(err, ErrSeasonStatusConflict) {
		t.Errorf("reactivating an ended season error = %v, want ErrSeasonStatusConflict", err)
	}
	if err := env.service.EndSeason(context.Background(), seasonID); !errors.Is(err, ErrSeasonStatusConflict) {
		t.Errorf("ending an ended season error = %v, want ErrSeasonStatusConflict", err)
	}
}

func TestCreateSeasonRejectsBadBounds(t *testing.T) {
	env := newTestEnv()

	season := &seasondb.Season{
		ID:          "season-x",
		ClubID:      "club-1",
		Name:        "Broken",
		MinTeamSize: 3,
		MaxTeamSize: 2,
	}
	err := env.service.CreateSeason(context.Background(), season)

	var sizeErr *TeamSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("CreateSeason() error = %v, want TeamSizeError", err)
	}
}
