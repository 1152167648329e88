package matchdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	"github.com/pyramid-league/ladder-server/app/shared"
)

func (r *MatchRepo) InsertProposal(ctx context.Context, db bun.IDB, proposal *DateProposal) error {
	if proposal.Status == "" {
		proposal.Status = ProposalPending
	}
	if _, err := db.NewInsert().Model(proposal).Exec(ctx); err != nil {
		return fmt.Errorf("match.InsertProposal: %w", err)
	}
	return nil
}

func (r *MatchRepo) GetProposal(ctx context.Context, db bun.IDB, proposalID shared.ProposalID) (*DateProposal, error) {
	proposal := new(DateProposal)
	err := db.NewSelect().Model(proposal).Where("id = ?", proposalID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("match.GetProposal: %w", err)
	}
	return proposal, nil
}

// AcceptProposal flips one pending proposal to accepted and, when that
// succeeds, dismisses every other pending proposal of the match. Both
// updates must run inside one caller transaction so a concurrent accept of
// a sibling cannot interleave.
func (r *MatchRepo) AcceptProposal(ctx context.Context, db bun.IDB, proposalID shared.ProposalID, matchID shared.MatchID) (matchdomain.TransitionResult, error) {
	res, err := db.NewUpdate().
		Model((*DateProposal)(nil)).
		Set("status = ?", ProposalAccepted).
		Where("id = ?", proposalID).
		Where("status = ?", ProposalPending).
		Exec(ctx)
	if err != nil {
		return matchdomain.TransitionConflict, fmt.Errorf("match.AcceptProposal: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return matchdomain.TransitionConflict, fmt.Errorf("match.AcceptProposal: %w", err)
	}
	if rows == 0 {
		return matchdomain.TransitionConflict, nil
	}

	_, err = db.NewUpdate().
		Model((*DateProposal)(nil)).
		Set("status = ?", ProposalDismissed).
		Where("match_id = ?", matchID).
		Where("id != ?", proposalID).
		Where("status = ?", ProposalPending).
		Exec(ctx)
	if err != nil {
		return matchdomain.TransitionConflict, fmt.Errorf("match.AcceptProposal dismiss siblings: %w", err)
	}
	return matchdomain.TransitionApplied, nil
}

func (r *MatchRepo) DeclineProposal(ctx context.Context, db bun.IDB, proposalID shared.ProposalID) (matchdomain.TransitionResult, error) {
	res, err := db.NewUpdate().
		Model((*DateProposal)(nil)).
		Set("status = ?", ProposalDeclined).
		Where("id = ?", proposalID).
		Where("status = ?", ProposalPending).
		Exec(ctx)
	if err != nil {
		return matchdomain.TransitionConflict, fmt.Errorf("match.DeclineProposal: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return matchdomain.TransitionConflict, fmt.Errorf("match.DeclineProposal: %w", err)
	}
	if rows == 0 {
		return matchdomain.TransitionConflict, nil
	}
	return matchdomain.TransitionApplied, nil
}
