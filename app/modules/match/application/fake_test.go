package matchservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	standingsservice "github.com/pyramid-league/ladder-server/app/modules/standings/application"
	standingsdomain "github.com/pyramid-league/ladder-server/app/modules/standings/domain"
	standingsdb "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
	"github.com/pyramid-league/ladder-server/config"
)

// ------------------------
// Fake Match Repo
// ------------------------

// fakeMatchRepo keeps matches and proposals in memory and honours the same
// status guards as the SQL implementation, so conflict paths behave like
// production.
type fakeMatchRepo struct {
	trace     []string
	matches   map[shared.MatchID]*matchdb.Match
	proposals map[shared.ProposalID]*matchdb.DateProposal
	nextID    int

	insertErr error
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{
		matches:   make(map[shared.MatchID]*matchdb.Match),
		proposals: make(map[shared.ProposalID]*matchdb.DateProposal),
	}
}

func (f *fakeMatchRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *fakeMatchRepo) Insert(ctx context.Context, db bun.IDB, match *matchdb.Match) error {
	f.record("Insert")
	if f.insertErr != nil {
		return f.insertErr
	}
	if match.ID == "" {
		f.nextID++
		match.ID = shared.MatchID(string(rune('a'+f.nextID)) + "-match")
	}
	clone := *match
	f.matches[match.ID] = &clone
	return nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, db bun.IDB, matchID shared.MatchID) (*matchdb.Match, error) {
	f.record("GetByID")
	match, ok := f.matches[matchID]
	if !ok {
		return nil, matchdb.ErrMatchNotFound
	}
	clone := *match
	return &clone, nil
}

func (f *fakeMatchRepo) TeamsWithOpenChallenge(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (map[shared.TeamID]shared.MatchID, error) {
	f.record("TeamsWithOpenChallenge")
	open := make(map[shared.TeamID]shared.MatchID)
	for _, m := range f.matches {
		if m.SeasonID == seasonID && matchdomain.IsOpen(m.Status) {
			open[m.Team1ID] = m.ID
			open[m.Team2ID] = m.ID
		}
	}
	return open, nil
}

func (f *fakeMatchRepo) guarded(matchID shared.MatchID, t matchdomain.Transition, mutate func(*matchdb.Match)) (matchdomain.TransitionResult, error) {
	match, ok := f.matches[matchID]
	if !ok {
		return matchdomain.TransitionConflict, nil
	}
	allowed := false
	for _, from := range matchdomain.AllowedFrom(t) {
		if match.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return matchdomain.TransitionConflict, nil
	}
	match.Status = matchdomain.Target(t)
	if mutate != nil {
		mutate(match)
	}
	return matchdomain.TransitionApplied, nil
}

func (f *fakeMatchRepo) SetGameAt(ctx context.Context, db bun.IDB, matchID shared.MatchID, gameAt time.Time) (matchdomain.TransitionResult, error) {
	f.record("SetGameAt")
	return f.guarded(matchID, matchdomain.TransitionAcceptDate, func(m *matchdb.Match) {
		m.GameAt = &gameAt
	})
}

func (f *fakeMatchRepo) SetResult(ctx context.Context, db bun.IDB, matchID shared.MatchID, scores []matchdomain.SetScore, winner shared.TeamID, enteredBy shared.PlayerID) (matchdomain.TransitionResult, error) {
	f.record("SetResult")
	return f.guarded(matchID, matchdomain.TransitionEnterResult, func(m *matchdb.Match) {
		m.Scores = scores
		m.WinnerTeamID = &winner
		m.ResultEnteredBy = &enteredBy
	})
}

func (f *fakeMatchRepo) SetConfirmed(ctx context.Context, db bun.IDB, matchID shared.MatchID, confirmedBy shared.PlayerID) (matchdomain.TransitionResult, error) {
	f.record("SetConfirmed")
	return f.guarded(matchID, matchdomain.TransitionConfirmResult, func(m *matchdb.Match) {
		m.ConfirmedBy = &confirmedBy
	})
}

func (f *fakeMatchRepo) SetDisputed(ctx context.Context, db bun.IDB, matchID shared.MatchID) (matchdomain.TransitionResult, error) {
	f.record("SetDisputed")
	return f.guarded(matchID, matchdomain.TransitionDisputeResult, nil)
}

func (f *fakeMatchRepo) SetWithdrawn(ctx context.Context, db bun.IDB, matchID shared.MatchID) (matchdomain.TransitionResult, error) {
	f.record("SetWithdrawn")
	return f.guarded(matchID, matchdomain.TransitionWithdraw, nil)
}

func (f *fakeMatchRepo) SetForfeited(ctx context.Context, db bun.IDB, matchID shared.MatchID, winner shared.TeamID) (matchdomain.TransitionResult, error) {
	f.record("SetForfeited")
	return f.guarded(matchID, matchdomain.TransitionForfeit, func(m *matchdb.Match) {
		m.WinnerTeamID = &winner
	})
}

func (f *fakeMatchRepo) HeadToHead(ctx context.Context, db bun.IDB, team1, team2 shared.TeamID) (int, int, error) {
	f.record("HeadToHead")
	wins1, wins2 := 0, 0
	for _, m := range f.matches {
		if m.Status != matchdomain.StatusCompleted || m.WinnerTeamID == nil {
			continue
		}
		if !m.HasTeam(team1) || !m.HasTeam(team2) {
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

func (f *fakeMatchRepo) InsertProposal(ctx context.Context, db bun.IDB, proposal *matchdb.DateProposal) error {
	f.record("InsertProposal")
	if proposal.ID == "" {
		f.nextID++
		proposal.ID = shared.ProposalID(string(rune('a'+f.nextID)) + "-proposal")
	}
	if proposal.Status == "" {
		proposal.Status = matchdb.ProposalPending
	}
	clone := *proposal
	f.proposals[proposal.ID] = &clone
	return nil
}

func (f *fakeMatchRepo) GetProposal(ctx context.Context, db bun.IDB, proposalID shared.ProposalID) (*matchdb.DateProposal, error) {
	f.record("GetProposal")
	proposal, ok := f.proposals[proposalID]
	if !ok {
		return nil, matchdb.ErrProposalNotFound
	}
	clone := *proposal
	return &clone, nil
}

func (f *fakeMatchRepo) AcceptProposal(ctx context.Context, db bun.IDB, proposalID shared.ProposalID, matchID shared.MatchID) (matchdomain.TransitionResult, error) {
	f.record("AcceptProposal")
	proposal, ok := f.proposals[proposalID]
	if !ok || proposal.Status != matchdb.ProposalPending {
		return matchdomain.TransitionConflict, nil
	}
	proposal.Status = matchdb.ProposalAccepted
	for _, sibling := range f.proposals {
		if sibling.MatchID == matchID && sibling.ID != proposalID && sibling.Status == matchdb.ProposalPending {
			sibling.Status = matchdb.ProposalDismissed
		}
	}
	return matchdomain.TransitionApplied, nil
}

func (f *fakeMatchRepo) DeclineProposal(ctx context.Context, db bun.IDB, proposalID shared.ProposalID) (matchdomain.TransitionResult, error) {
	f.record("DeclineProposal")
	proposal, ok := f.proposals[proposalID]
	if !ok || proposal.Status != matchdb.ProposalPending {
		return matchdomain.TransitionConflict, nil
	}
	proposal.Status = matchdb.ProposalDeclined
	return matchdomain.TransitionApplied, nil
}

// ------------------------
// Fake Season Repo
// ------------------------

type fakeSeasonRepo struct {
	seasons     map[shared.SeasonID]*seasondb.Season
	teams       map[shared.TeamID]*seasondb.Team
	unavailable []shared.TeamID
}

func newFakeSeasonRepo() *fakeSeasonRepo {
	return &fakeSeasonRepo{
		seasons: make(map[shared.SeasonID]*seasondb.Season),
		teams:   make(map[shared.TeamID]*seasondb.Team),
	}
}

func (f *fakeSeasonRepo) InsertSeason(ctx context.Context, db bun.IDB, season *seasondb.Season) error {
	f.seasons[season.ID] = season
	return nil
}

func (f *fakeSeasonRepo) GetSeason(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*seasondb.Season, error) {
	season, ok := f.seasons[seasonID]
	if !ok {
		return nil, seasondb.ErrSeasonNotFound
	}
	return season, nil
}

func (f *fakeSeasonRepo) UpdateSeasonStatus(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, from, to seasondb.SeasonStatus) (bool, error) {
	season, ok := f.seasons[seasonID]
	if !ok || season.Status != from {
		return false, nil
	}
	season.Status = to
	return true, nil
}

func (f *fakeSeasonRepo) InsertTeam(ctx context.Context, db bun.IDB, team *seasondb.Team) error {
	f.teams[team.ID] = team
	return nil
}

func (f *fakeSeasonRepo) GetTeam(ctx context.Context, db bun.IDB, teamID shared.TeamID) (*seasondb.Team, error) {
	team, ok := f.teams[teamID]
	if !ok {
		return nil, seasondb.ErrTeamNotFound
	}
	return team, nil
}

func (f *fakeSeasonRepo) TeamsBySeason(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) ([]seasondb.Team, error) {
	var teams []seasondb.Team
	for _, team := range f.teams {
		if team.SeasonID == seasonID {
			teams = append(teams, *team)
		}
	}
	return teams, nil
}

func (f *fakeSeasonRepo) TeamOfPlayer(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, playerID shared.PlayerID) (*seasondb.Team, error) {
	for _, team := range f.teams {
		if team.SeasonID == seasonID && team.HasMember(playerID) {
			return team, nil
		}
	}
	return nil, seasondb.ErrNoTeamForPlayer
}

func (f *fakeSeasonRepo) SetOptedOut(ctx context.Context, db bun.IDB, teamID shared.TeamID, optedOut bool) error {
	team, ok := f.teams[teamID]
	if !ok {
		return seasondb.ErrTeamNotFound
	}
	team.OptedOut = optedOut
	return nil
}

func (f *fakeSeasonRepo) InsertUnavailability(ctx context.Context, db bun.IDB, window *seasondb.Unavailability) error {
	return nil
}

func (f *fakeSeasonRepo) UnavailableTeamIDs(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, now time.Time) ([]shared.TeamID, error) {
	return f.unavailable, nil
}

// ------------------------
// Fake Standings
// ------------------------

// fakeStandings holds one ladder per season and applies swaps in memory.
type fakeStandings struct {
	trace   []string
	ladders map[shared.SeasonID]standingsdomain.Results
	lockErr error
}

func newFakeStandings() *fakeStandings {
	return &fakeStandings{ladders: make(map[shared.SeasonID]standingsdomain.Results)}
}

func (f *fakeStandings) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *fakeStandings) view(seasonID shared.SeasonID) standingsservice.StandingsView {
	view := standingsservice.StandingsView{SeasonID: seasonID}
	for i, teamID := range f.ladders[seasonID] {
		view.Entries = append(view.Entries, standingsservice.StandingsEntry{
			Rank:     i + 1,
			TeamID:   teamID,
			Movement: standingsdomain.MovementNone,
		})
	}
	return view
}

func (f *fakeStandings) Latest(ctx context.Context, seasonID shared.SeasonID) (standingsservice.StandingsView, error) {
	f.record("Latest")
	return f.view(seasonID), nil
}

func (f *fakeStandings) LatestInTx(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID) (standingsservice.StandingsView, error) {
	f.record("LatestInTx")
	return f.view(seasonID), nil
}

func (f *fakeStandings) WithMovement(ctx context.Context, seasonID shared.SeasonID) (standingsservice.StandingsView, error) {
	return f.Latest(ctx, seasonID)
}

func (f *fakeStandings) RankHistory(ctx context.Context, seasonID shared.SeasonID, teamID shared.TeamID) ([]standingsdb.RankPoint, error) {
	return nil, nil
}

func (f *fakeStandings) AddTeam(ctx context.Context, seasonID shared.SeasonID, teamID shared.TeamID) (standingsservice.AddTeamResult, error) {
	return f.AddTeamInTx(ctx, nil, seasonID, teamID)
}

func (f *fakeStandings) AddTeamInTx(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID, teamID shared.TeamID) (standingsservice.AddTeamResult, error) {
	f.record("AddTeamInTx")
	ladder := f.ladders[seasonID]
	if rank, ok := ladder.RankOf(teamID); ok {
		return standingsservice.AddTeamResult{AlreadyRanked: true, Rank: rank}, nil
	}
	f.ladders[seasonID] = append(ladder.Clone(), teamID)
	return standingsservice.AddTeamResult{Rank: len(ladder) + 1}, nil
}

func (f *fakeStandings) AcquireSeasonLock(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID) error {
	f.record("AcquireSeasonLock")
	return f.lockErr
}

func (f *fakeStandings) RecordMatchOutcomeInTx(ctx context.Context, tx bun.IDB, seasonID shared.SeasonID, matchID shared.MatchID, winner, loser shared.TeamID, winnerWasChallenger bool) error {
	f.record("RecordMatchOutcomeInTx")
	next, err := standingsdomain.ApplySwap(f.ladders[seasonID], winner, loser, winnerWasChallenger)
	if err != nil {
		return err
	}
	f.ladders[seasonID] = next
	return nil
}

// ------------------------
// Fake Events / Scheduler
// ------------------------

type fakeEvents struct {
	public    []*eventsdb.Event
	personal  []*eventsdb.Event
	published []*eventsdb.Event
}

func (f *fakeEvents) RecordPublic(ctx context.Context, db bun.IDB, event *eventsdb.Event) error {
	event.TargetID = nil
	f.public = append(f.public, event)
	return nil
}

func (f *fakeEvents) RecordPersonal(ctx context.Context, db bun.IDB, event *eventsdb.Event, target shared.PlayerID) error {
	event.TargetID = &target
	f.personal = append(f.personal, event)
	return nil
}

func (f *fakeEvents) PublishRecorded(ctx context.Context, event *eventsdb.Event) {
	f.published = append(f.published, event)
}

type fakeScheduler struct {
	scheduled []time.Time
	err       error
}

func (f *fakeScheduler) ScheduleReminder(ctx context.Context, matchID shared.MatchID, seasonID shared.SeasonID, at time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, at)
	return nil
}

// ------------------------
// Harness
// ------------------------

type testEnv struct {
	service   *MatchService
	matches   *fakeMatchRepo
	seasons   *fakeSeasonRepo
	standings *fakeStandings
	events    *fakeEvents
	scheduler *fakeScheduler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		matches:   newFakeMatchRepo(),
		seasons:   newFakeSeasonRepo(),
		standings: newFakeStandings(),
		events:    &fakeEvents{},
		scheduler: &fakeScheduler{},
	}
	logger := slog.New(slog.DiscardHandler)
	cfg := config.LadderConfig{ChallengeReach: 3, DefaultBestOf: 3}
	env.service = NewMatchService(nil, env.matches, env.seasons, env.standings, env.events, env.scheduler, logger, cfg, nil)
	return env
}

// seedSeason creates an active season with four single-player teams ranked
// t1 > t2 > t3 > t4. Player "p<N>" plays for team "t<N>".
func (env *testEnv) seedSeason() shared.SeasonID {
	seasonID := shared.SeasonID("season-1")
	env.seasons.seasons[seasonID] = &seasondb.Season{
		ID:                   seasonID,
		ClubID:               "club-1",
		Name:                 "Spring",
		Status:               seasondb.SeasonActive,
		BestOf:               3,
		ReminderDays:         2,
		RequiresConfirmation: true,
	}
	for _, name := range []string{"t1", "t2", "t3", "t4"} {
		teamID := shared.TeamID(name)
		env.seasons.teams[teamID] = &seasondb.Team{
			ID:       teamID,
			SeasonID: seasonID,
			Name:     name,
			Members:  []shared.PlayerID{shared.PlayerID("p" + name[1:])},
		}
		env.standings.ladders[seasonID] = append(env.standings.ladders[seasonID], teamID)
	}
	return seasonID
}

func (env *testEnv) ladder(seasonID shared.SeasonID) standingsdomain.Results {
	return env.standings.ladders[seasonID]
}
