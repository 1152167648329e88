package seasonservice

import (
	"context"
	"fmt"
	"log/slog"

	seasondomain "github.com/pyramid-league/ladder-server/app/modules/season/domain"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// CreateSeason registers a new season in draft.
func (s *SeasonService) CreateSeason(ctx context.Context, season *seasondb.Season) error {
	if season.MinTeamSize < 1 || season.MaxTeamSize < season.MinTeamSize {
		return &TeamSizeError{Size: season.MinTeamSize, Min: 1, Max: season.MaxTeamSize}
	}
	season.Status = seasondb.SeasonDraft
	if err := s.repo.InsertSeason(ctx, s.db, season); err != nil {
		return fmt.Errorf("failed to create season: %w", err)
	}
	s.logger.InfoContext(ctx, "Season created",
		slog.String("season_id", string(season.ID)),
		slog.String("name", season.Name),
	)
	return nil
}

// ActivateSeason moves a draft season to active. The guarded update makes
// concurrent activations collapse to one winner.
func (s *SeasonService) ActivateSeason(ctx context.Context, seasonID shared.SeasonID) error {
	season, err := s.repo.GetSeason(ctx, s.db, seasonID)
	if err != nil {
		return fmt.Errorf("failed to activate season: %w", err)
	}
	if !seasondomain.CanActivate(seasondomain.Status(season.Status)) {
		return ErrSeasonStatusConflict
	}

	applied, err := s.repo.UpdateSeasonStatus(ctx, s.db, seasonID, seasondb.SeasonDraft, seasondb.SeasonActive)
	if err != nil {
		return fmt.Errorf("failed to activate season: %w", err)
	}
	if !applied {
		return ErrSeasonStatusConflict
	}
	s.logger.InfoContext(ctx, "Season activated", slog.String("season_id", string(seasonID)))
	return nil
}

// EndSeason moves an active season to ended. One-directional, no way back.
func (s *SeasonService) EndSeason(ctx context.Context, seasonID shared.SeasonID) error {
	season, err := s.repo.GetSeason(ctx, s.db, seasonID)
	if err != nil {
		return fmt.Errorf("failed to end season: %w", err)
	}
	if !seasondomain.CanEnd(seasondomain.Status(season.Status)) {
		return ErrSeasonStatusConflict
	}

	applied, err := s.repo.UpdateSeasonStatus(ctx, s.db, seasonID, seasondb.SeasonActive, seasondb.SeasonEnded)
	if err != nil {
		return fmt.Errorf("failed to end season: %w", err)
	}
	if !applied {
		return ErrSeasonStatusConflict
	}
	s.logger.InfoContext(ctx, "Season ended", slog.String("season_id", string(seasonID)))
	return nil
}
