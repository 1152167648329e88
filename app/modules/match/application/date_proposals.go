package matchservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// dateParser understands inputs like "saturday at 14:00" or "tomorrow
// evening" alongside plain timestamps.
var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseProposedTime extracts a playing time from free text.
func ParseProposedTime(text string, now time.Time) (time.Time, error) {
	result, err := dateParser.Parse(text, now)
	if err != nil || result == nil {
		return time.Time{}, ErrUnparsableDate
	}
	return result.Time, nil
}

// ProposeDate suggests a playing time for an open match. The text is parsed
// leniently; the parsed time goes back to the caller so the user can see
// what the system understood.
func (s *MatchService) ProposeDate(ctx context.Context, matchID shared.MatchID, playerID shared.PlayerID, text string) (shared.ProposalID, time.Time, error) {
	match, err := s.repo.GetByID(ctx, s.db, matchID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to propose date: %w", err)
	}
	if !matchdomain.IsOpen(match.Status) {
		return "", time.Time{}, &StatusConflictError{MatchID: matchID, Transition: matchdomain.TransitionAcceptDate}
	}

	_, opponent, err := s.participantTeams(ctx, match, playerID)
	if err != nil {
		return "", time.Time{}, err
	}

	proposedTime, err := ParseProposedTime(text, time.Now())
	if err != nil {
		return "", time.Time{}, err
	}

	season, err := s.seasons.GetSeason(ctx, s.db, match.SeasonID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to propose date: %w", err)
	}

	proposal := &matchdb.DateProposal{
		MatchID:      matchID,
		ProposedBy:   playerID,
		ProposedTime: proposedTime,
		Status:       matchdb.ProposalPending,
	}
	var recorded []*eventsdb.Event

	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := s.repo.InsertProposal(ctx, tx, proposal); err != nil {
			return err
		}
		for _, member := range opponent.Members {
			personal := &eventsdb.Event{
				ClubID:   season.ClubID,
				SeasonID: &match.SeasonID,
				MatchID:  &matchID,
				ActorID:  &playerID,
				Kind:     eventsdb.EventDateProposed,
				Metadata: map[string]any{"proposed_time": proposedTime},
			}
			if err := s.events.RecordPersonal(ctx, tx, personal, member); err != nil {
				return err
			}
			recorded = append(recorded, personal)
		}
		return nil
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to propose date: %w", err)
	}

	for _, event := range recorded {
		s.events.PublishRecorded(ctx, event)
	}
	s.logger.InfoContext(ctx, "Date proposed",
		slog.String("match_id", string(matchID)),
		slog.String("proposal_id", string(proposal.ID)),
		slog.Time("proposed_time", proposedTime),
	)
	return proposal.ID, proposedTime, nil
}

// AcceptDateProposal locks in a pending proposal: the proposal flips to
// accepted, its pending siblings are dismissed, the match gets its gameAt
// and moves to date_set. Only the side that did not propose may accept.
func (s *MatchService) AcceptDateProposal(ctx context.Context, proposalID shared.ProposalID, playerID shared.PlayerID) error {
	proposal, err := s.repo.GetProposal(ctx, s.db, proposalID)
	if err != nil {
		return fmt.Errorf("failed to accept date proposal: %w", err)
	}
	match, err := s.repo.GetByID(ctx, s.db, proposal.MatchID)
	if err != nil {
		return fmt.Errorf("failed to accept date proposal: %w", err)
	}

	if _, _, err := s.participantTeams(ctx, match, playerID); err != nil {
		return err
	}
	if proposal.ProposedBy == playerID {
		return ErrNotParticipant
	}

	season, err := s.seasons.GetSeason(ctx, s.db, match.SeasonID)
	if err != nil {
		return fmt.Errorf("failed to accept date proposal: %w", err)
	}

	var recorded []*eventsdb.Event

	err = s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		result, err := s.repo.AcceptProposal(ctx, tx, proposalID, proposal.MatchID)
		if err != nil {
			return err
		}
		if result == matchdomain.TransitionConflict {
			return &StatusConflictError{MatchID: proposal.MatchID, Transition: matchdomain.TransitionAcceptDate}
		}

		result, err = s.repo.SetGameAt(ctx, tx, proposal.MatchID, proposal.ProposedTime)
		if err != nil {
			return err
		}
		if result == matchdomain.TransitionConflict {
			return &StatusConflictError{MatchID: proposal.MatchID, Transition: matchdomain.TransitionAcceptDate}
		}

		public := &eventsdb.Event{
			ClubID:   season.ClubID,
			SeasonID: &match.SeasonID,
			MatchID:  &proposal.MatchID,
			ActorID:  &playerID,
			Kind:     eventsdb.EventDateAccepted,
			Metadata: map[string]any{"game_at": proposal.ProposedTime},
		}
		if err := s.events.RecordPublic(ctx, tx, public); err != nil {
			return err
		}
		recorded = append(recorded, public)
		return nil
	})
	if err != nil {
		var conflict *StatusConflictError
		if errors.As(err, &conflict) {
			s.metrics.TransitionConflict(string(conflict.Transition))
			return conflict
		}
		return fmt.Errorf("failed to accept date proposal: %w", err)
	}

	for _, event := range recorded {
		s.events.PublishRecorded(ctx, event)
	}
	s.scheduleReminder(ctx, match, season, proposal.ProposedTime)
	s.logger.InfoContext(ctx, "Date proposal accepted",
		slog.String("match_id", string(proposal.MatchID)),
		slog.String("proposal_id", string(proposalID)),
		slog.Time("game_at", proposal.ProposedTime),
	)
	return nil
}

// DeclineDateProposal rejects a pending proposal without touching the match.
func (s *MatchService) DeclineDateProposal(ctx context.Context, proposalID shared.ProposalID, playerID shared.PlayerID) error {
	proposal, err := s.repo.GetProposal(ctx, s.db, proposalID)
	if err != nil {
		return fmt.Errorf("failed to decline date proposal: %w", err)
	}
	match, err := s.repo.GetByID(ctx, s.db, proposal.MatchID)
	if err != nil {
		return fmt.Errorf("failed to decline date proposal: %w", err)
	}
	if _, _, err := s.participantTeams(ctx, match, playerID); err != nil {
		return err
	}
	if proposal.ProposedBy == playerID {
		return ErrNotParticipant
	}

	result, err := s.repo.DeclineProposal(ctx, s.db, proposalID)
	if err != nil {
		return fmt.Errorf("failed to decline date proposal: %w", err)
	}
	if result == matchdomain.TransitionConflict {
		return &StatusConflictError{MatchID: proposal.MatchID, Transition: matchdomain.TransitionAcceptDate}
	}
	return nil
}

// scheduleReminder enqueues the pre-match reminder, season.ReminderDays
// before the agreed time. Best-effort: a failed enqueue is logged, the
// accepted date stands.
func (s *MatchService) scheduleReminder(ctx context.Context, match *matchdb.Match, season *seasondb.Season, gameAt time.Time) {
	if s.reminders == nil || season.ReminderDays <= 0 {
		return
	}
	at := gameAt.AddDate(0, 0, -season.ReminderDays)
	if at.Before(time.Now()) {
		return
	}
	if err := s.reminders.ScheduleReminder(ctx, match.ID, match.SeasonID, at); err != nil {
		s.logger.WarnContext(ctx, "Failed to schedule match reminder",
			slog.String("match_id", string(match.ID)),
			slog.Any("error", err),
		)
	}
}

// participantTeams resolves the acting player's team and the opposing team.
func (s *MatchService) participantTeams(ctx context.Context, match *matchdb.Match, playerID shared.PlayerID) (own, opponent *seasondb.Team, err error) {
	team1, err := s.seasons.GetTeam(ctx, s.db, match.Team1ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load match teams: %w", err)
	}
	team2, err := s.seasons.GetTeam(ctx, s.db, match.Team2ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load match teams: %w", err)
	}
	switch {
	case team1.HasMember(playerID):
		return team1, team2, nil
	case team2.HasMember(playerID):
		return team2, team1, nil
	}
	return nil, nil, ErrNotParticipant
}
