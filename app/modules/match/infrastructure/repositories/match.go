package matchdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// Repository defines operations on the matches and date_proposals tables.
// Every lifecycle change is a status-guarded single-row update: the allowed
// prior statuses go into the WHERE clause and a zero-row result comes back
// as TransitionConflict. Callers never retry a conflict automatically.
type Repository interface {
	// Insert creates the match row for a fresh challenge.
	Insert(ctx context.Context, db bun.IDB, match *Match) error

	// GetByID retrieves one match.
	GetByID(ctx context.Context, db bun.IDB, matchID shared.MatchID) (*Match, error)

	// TeamsWithOpenChallenge maps every team in the season that currently
	// has an open challenge to the match holding it.
	TeamsWithOpenChallenge(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (map[shared.TeamID]shared.MatchID, error)

	// SetGameAt records the agreed playing time and moves the match to
	// date_set.
	SetGameAt(ctx context.Context, db bun.IDB, matchID shared.MatchID, gameAt time.Time) (matchdomain.TransitionResult, error)

	// SetResult stores scores, winner and enterer and moves the match to
	// pending_confirmation.
	SetResult(ctx context.Context, db bun.IDB, matchID shared.MatchID, scores []matchdomain.SetScore, winner shared.TeamID, enteredBy shared.PlayerID) (matchdomain.TransitionResult, error)

	// SetConfirmed records the confirmer and completes the match.
	SetConfirmed(ctx context.Context, db bun.IDB, matchID shared.MatchID, confirmedBy shared.PlayerID) (matchdomain.TransitionResult, error)

	// SetDisputed moves a pending result to disputed.
	SetDisputed(ctx context.Context, db bun.IDB, matchID shared.MatchID) (matchdomain.TransitionResult, error)

	// SetWithdrawn closes an open challenge as withdrawn.
	SetWithdrawn(ctx context.Context, db bun.IDB, matchID shared.MatchID) (matchdomain.TransitionResult, error)

	// SetForfeited closes an open challenge as forfeited, recording the
	// non-forfeiting team as winner.
	SetForfeited(ctx context.Context, db bun.IDB, matchID shared.MatchID, winner shared.TeamID) (matchdomain.TransitionResult, error)

	// HeadToHead counts completed wins between two teams, in either seat.
	HeadToHead(ctx context.Context, db bun.IDB, team1, team2 shared.TeamID) (wins1, wins2 int, err error)

	// InsertProposal creates a pending date proposal.
	InsertProposal(ctx context.Context, db bun.IDB, proposal *DateProposal) error

	// GetProposal retrieves one date proposal.
	GetProposal(ctx context.Context, db bun.IDB, proposalID shared.ProposalID) (*DateProposal, error)

	// AcceptProposal marks a pending proposal accepted and dismisses the
	// match's other pending proposals. Zero rows means the proposal was
	// already resolved.
	AcceptProposal(ctx context.Context, db bun.IDB, proposalID shared.ProposalID, matchID shared.MatchID) (matchdomain.TransitionResult, error)

	// DeclineProposal marks a pending proposal declined.
	DeclineProposal(ctx context.Context, db bun.IDB, proposalID shared.ProposalID) (matchdomain.TransitionResult, error)
}

// MatchRepo implements Repository.
type MatchRepo struct{}

func NewMatchRepo() Repository {
	return &MatchRepo{}
}

func (r *MatchRepo) Insert(ctx context.Context, db bun.IDB, match *Match) error {
	if _, err := db.NewInsert().Model(match).Exec(ctx); err != nil {
		return fmt.Errorf("match.Insert: %w", err)
	}
	return nil
}

func (r *MatchRepo) GetByID(ctx context.Context, db bun.IDB, matchID shared.MatchID) (*Match, error) {
	match := new(Match)
	err := db.NewSelect().Model(match).Where("id = ?", matchID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("match.GetByID: %w", err)
	}
	return match, nil
}

func (r *MatchRepo) TeamsWithOpenChallenge(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (map[shared.TeamID]shared.MatchID, error) {
	var matches []Match
	err := db.NewSelect().
		Model(&matches).
		Column("id", "team1_id", "team2_id").
		Where("season_id = ?", seasonID).
		Where("status IN (?)", bun.In(matchdomain.OpenStatuses())).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("match.TeamsWithOpenChallenge: %w", err)
	}

	open := make(map[shared.TeamID]shared.MatchID, len(matches)*2)
	for _, m := range matches {
		open[m.Team1ID] = m.ID
		open[m.Team2ID] = m.ID
	}
	return open, nil
}

// transition runs one status-guarded update. mutate adds the columns the
// specific transition writes alongside the status change.
func (r *MatchRepo) transition(ctx context.Context, db bun.IDB, matchID shared.MatchID, t matchdomain.Transition, mutate func(*bun.UpdateQuery) *bun.UpdateQuery) (matchdomain.TransitionResult, error) {
	q := db.NewUpdate().
		Model((*Match)(nil)).
		Set("status = ?", matchdomain.Target(t)).
		Where("id = ?", matchID).
		Where("status IN (?)", bun.In(matchdomain.AllowedFrom(t)))
	if mutate != nil {
		q = mutate(q)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return matchdomain.TransitionConflict, fmt.Errorf("match.transition %s: %w", t, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return matchdomain.TransitionConflict, fmt.Errorf("match.transition %s: %w", t, err)
	}
	if rows == 0 {
		return matchdomain.TransitionConflict, nil
	}
	return matchdomain.TransitionApplied, nil
}

func (r *MatchRepo) SetGameAt(ctx context.Context, db bun.IDB, matchID shared.MatchID, gameAt time.Time) (matchdomain.TransitionResult, error) {
	return r.transition(ctx, db, matchID, matchdomain.TransitionAcceptDate, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("game_at = ?", gameAt)
	})
}

func (r *MatchRepo) SetResult(ctx context.Context, db bun.IDB, matchID shared.MatchID, scores []matchdomain.SetScore, winner shared.TeamID, enteredBy shared.PlayerID) (matchdomain.TransitionResult, error) {
	return r.transition(ctx, db, matchID, matchdomain.TransitionEnterResult, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("scores = ?", scores).
			Set("winner_team_id = ?", winner).
			Set("result_entered_by = ?", enteredBy)
	})
}

func (r *MatchRepo) SetConfirmed(ctx context.Context, db bun.IDB, matchID shared.MatchID, confirmedBy shared.PlayerID) (matchdomain.TransitionResult, error) {
	return r.transition(ctx, db, matchID, matchdomain.TransitionConfirmResult, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("confirmed_by = ?", confirmedBy)
	})
}

func (r *MatchRepo) SetDisputed(ctx context.Context, db bun.IDB, matchID shared.MatchID) (matchdomain.TransitionResult, error) {
	return r.transition(ctx, db, matchID, matchdomain.TransitionDisputeResult, nil)
}

func (r *MatchRepo) SetWithdrawn(ctx context.Context, db bun.IDB, matchID shared.MatchID) (matchdomain.TransitionResult, error) {
	return r.transition(ctx, db, matchID, matchdomain.TransitionWithdraw, nil)
}

func (r *MatchRepo) SetForfeited(ctx context.Context, db bun.IDB, matchID shared.MatchID, winner shared.TeamID) (matchdomain.TransitionResult, error) {
	return r.transition(ctx, db, matchID, matchdomain.TransitionForfeit, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("winner_team_id = ?", winner)
	})
}

func (r *MatchRepo) HeadToHead(ctx context.Context, db bun.IDB, team1, team2 shared.TeamID) (int, int, error) {
	var matches []Match
	err := db.NewSelect().
		Model(&matches).
		Column("winner_team_id").
		Where("status = ?", matchdomain.StatusCompleted).
		Where("(team1_id = ? AND team2_id = ?) OR (team1_id = ? AND team2_id = ?)", team1, team2, team2, team1).
		Scan(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("match.HeadToHead: %w", err)
	}

	wins1, wins2 := 0, 0
	for _, m := range matches {
		if m.WinnerTeamID == nil {
			continue
		}
		switch *m.WinnerTeamID {
		case team1:
			wins1++
		case team2:
			wins2++
		}
	}
	return wins1, wins2, nil
}
