package matchservice

import (
	"context"
	"fmt"

	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// GetMatch returns one match.
func (s *MatchService) GetMatch(ctx context.Context, matchID shared.MatchID) (*matchdb.Match, error) {
	match, err := s.repo.GetByID(ctx, s.db, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

// TeamsWithOpenChallenge maps every busy team in the season to the match
// holding its open challenge.
func (s *MatchService) TeamsWithOpenChallenge(ctx context.Context, seasonID shared.SeasonID) (map[shared.TeamID]shared.MatchID, error) {
	open, err := s.repo.TeamsWithOpenChallenge(ctx, s.db, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open challenges: %w", err)
	}
	return open, nil
}

// HeadToHead counts completed wins between two teams across the whole
// history, in either seat.
func (s *MatchService) HeadToHead(ctx context.Context, team1, team2 shared.TeamID) (wins1, wins2 int, err error) {
	wins1, wins2, err = s.repo.HeadToHead(ctx, s.db, team1, team2)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get head to head: %w", err)
	}
	return wins1, wins2, nil
}
