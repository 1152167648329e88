package seasonservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	standingsservice "github.com/pyramid-league/ladder-server/app/modules/standings/application"
	standingsdomain "github.com/pyramid-league/ladder-server/app/modules/standings/domain"
	standingsdb "github.com/pyramid-league/ladder-server/app/modules/standings/infrastructure/repositories"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// ------------------------
// Fake Season Repo
// ------------------------

type fakeSeasonRepo struct {
	trace          []string
	seasons        map[shared.SeasonID]*seasondb.Season
	teams          map[shared.TeamID]*seasondb.Team
	windows        []*seasondb.Unavailability
	nextTeam       int
	insertTeamErr  error
	insertWindowEr error
}

func newFakeSeasonRepo() *fakeSeasonRepo {
	return &fakeSeasonRepo{
		seasons: make(map[shared.SeasonID]*seasondb.Season),
		teams:   make(map[shared.TeamID]*seasondb.Team),
	}
}

func (f *fakeSeasonRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *fakeSeasonRepo) InsertSeason(ctx context.Context, db bun.IDB, season *seasondb.Season) error {
	f.record("InsertSeason")
	if season.ID == "" {
		season.ID = "season-fake"
	}
	f.seasons[season.ID] = season
	return nil
}

func (f *fakeSeasonRepo) GetSeason(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (*seasondb.Season, error) {
	f.record("GetSeason")
	season, ok := f.seasons[seasonID]
	if !ok {
		return nil, seasondb.ErrSeasonNotFound
	}
	return season, nil
}

func (f *fakeSeasonRepo) UpdateSeasonStatus(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, from, to seasondb.SeasonStatus) (bool, error) {
	f.record("UpdateSeasonStatus")
	season, ok := f.seasons[seasonID]
	if !ok || season.Status != from {
		return false, nil
	}
	season.Status = to
	return true, nil
}

func (f *fakeSeasonRepo) InsertTeam(ctx context.Context, db bun.IDB, team *seasondb.Team) error {
	f.record("InsertTeam")
	if f.insertTeamErr != nil {
		return f.insertTeamErr
	}
	if team.ID == "" {
		f.nextTeam++
		team.ID = shared.TeamID("team-" + string(rune('0'+f.nextTeam)))
	}
	f.teams[team.ID] = team
	return nil
}

func (f *fakeSeasonRepo) GetTeam(ctx context.Context, db bun.IDB, teamID shared.TeamID) (*seasondb.Team, error) {
	f.record("GetTeam")
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
	f.record("TeamOfPlayer")
	for _, team := range f.teams {
		if team.SeasonID == seasonID && team.HasMember(playerID) {
			return team, nil
		}
	}
	return nil, seasondb.ErrNoTeamForPlayer
}

func (f *fakeSeasonRepo) SetOptedOut(ctx context.Context, db bun.IDB, teamID shared.TeamID, optedOut bool) error {
	f.record("SetOptedOut")
	team, ok := f.teams[teamID]
	if !ok {
		return seasondb.ErrTeamNotFound
	}
	team.OptedOut = optedOut
	return nil
}

func (f *fakeSeasonRepo) InsertUnavailability(ctx context.Context, db bun.IDB, window *seasondb.Unavailability) error {
	f.record("InsertUnavailability")
	if f.insertWindowEr != nil {
		return f.insertWindowEr
	}
	f.windows = append(f.windows, window)
	return nil
}

func (f *fakeSeasonRepo) UnavailableTeamIDs(ctx context.Context, db bun.IDB, seasonID shared.SeasonID, now time.Time) ([]shared.TeamID, error) {
	return nil, nil
}

// ------------------------
// Fake Standings / Events / Matches
// ------------------------

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
		view.Entries = append(view.Entries, standingsservice.StandingsEntry{Rank: i + 1, TeamID: teamID})
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

type fakeEvents struct {
	public    []*eventsdb.Event
	published []*eventsdb.Event
	recordErr error
}

func (f *fakeEvents) RecordPublic(ctx context.Context, db bun.IDB, event *eventsdb.Event) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	event.TargetID = nil
	f.public = append(f.public, event)
	return nil
}

func (f *fakeEvents) PublishRecorded(ctx context.Context, event *eventsdb.Event) {
	f.published = append(f.published, event)
}

type fakeOpenChallenges struct {
	open map[shared.TeamID]shared.MatchID
}

func (f *fakeOpenChallenges) TeamsWithOpenChallenge(ctx context.Context, db bun.IDB, seasonID shared.SeasonID) (map[shared.TeamID]shared.MatchID, error) {
	return f.open, nil
}

// ------------------------
// Harness
// ------------------------

type testEnv struct {
	service   *SeasonService
	repo      *fakeSeasonRepo
	standings *fakeStandings
	events    *fakeEvents
	matches   *fakeOpenChallenges
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:      newFakeSeasonRepo(),
		standings: newFakeStandings(),
		events:    &fakeEvents{},
		matches:   &fakeOpenChallenges{open: map[shared.TeamID]shared.MatchID{}},
	}
	logger := slog.New(slog.DiscardHandler)
	env.service = NewSeasonService(nil, env.repo, env.matches, env.standings, env.events, logger)
	return env
}

func (env *testEnv) seedActiveSeason() shared.SeasonID {
	seasonID := shared.SeasonID("season-1")
	env.repo.seasons[seasonID] = &seasondb.Season{
		ID:             seasonID,
		ClubID:         "club-1",
		Name:           "Spring",
		Status:         seasondb.SeasonActive,
		BestOf:         3,
		OpenEnrollment: true,
		MinTeamSize:    1,
		MaxTeamSize:    2,
	}
	return seasonID
}
