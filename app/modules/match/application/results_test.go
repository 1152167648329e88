package matchservice

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	eventsdb "github.com/pyramid-league/ladder-server/app/modules/events/infrastructure/repositories"
	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	standingsdomain "github.com/pyramid-league/ladder-server/app/modules/standings/domain"
	"github.com/pyramid-league/ladder-server/app/shared"
)

func TestEnterResult(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")

	err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 11, Team2: 5}, {Team1: 11, Team2: 7}})
	if err != nil {
		t.Fatalf("EnterResult() error = %v", err)
	}

	match := env.matches.matches[matchID]
	if match.Status != matchdomain.StatusPendingConfirmation {
		t.Errorf("status = %s, want pending_confirmation", match.Status)
	}
	if match.WinnerTeamID == nil || *match.WinnerTeamID != "t3" {
		t.Errorf("winner = %v, want t3", match.WinnerTeamID)
	}
	if match.ResultEnteredBy == nil || *match.ResultEnteredBy != "p3" {
		t.Errorf("entered by = %v, want p3", match.ResultEnteredBy)
	}

	last := env.events.personal[len(env.events.personal)-1]
	if last.Kind != eventsdb.EventResultEntered || *last.TargetID != "p2" {
		t.Errorf("last personal event = %s to %v, want result_entered to p2", last.Kind, last.TargetID)
	}
}

func TestEnterResultRejectsInvalidScores(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")

	err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 11, Team2: 5}})

	var invalid *matchdomain.InvalidScoresError
	if !errors.As(err, &invalid) {
		t.Fatalf("EnterResult() error = %v, want InvalidScoresError", err)
	}
	if got := env.matches.matches[matchID].Status; got != matchdomain.StatusChallenged {
		t.Errorf("status = %s, want match untouched in challenged", got)
	}
}

func TestEnterResultAutoCompletesWithoutConfirmation(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	env.seasons.seasons[seasonID].RequiresConfirmation = false
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")

	err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 11, Team2: 5}, {Team1: 11, Team2: 7}})
	if err != nil {
		t.Fatalf("EnterResult() error = %v", err)
	}

	if got := env.matches.matches[matchID].Status; got != matchdomain.StatusCompleted {
		t.Errorf("status = %s, want completed without a confirmation step", got)
	}
	want := standingsdomain.Results{"t1", "t3", "t2", "t4"}
	if diff := cmp.Diff(want, env.ladder(seasonID)); diff != "" {
		t.Errorf("ladder mismatch (-want +got):\n%s", diff)
	}

	last := env.events.public[len(env.events.public)-1]
	if last.Kind != eventsdb.EventResult {
		t.Errorf("last public event = %s, want result", last.Kind)
	}

	if _, err := env.service.ConfirmResult(context.Background(), matchID, "p2"); err == nil {
		t.Error("ConfirmResult() succeeded on an auto-completed match")
	}
}

func TestConfirmResultSwapsStandings(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")
	if err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 11, Team2: 5}, {Team1: 11, Team2: 7}}); err != nil {
		t.Fatalf("EnterResult() error = %v", err)
	}

	outcome, err := env.service.ConfirmResult(context.Background(), matchID, "p2")
	if err != nil {
		t.Fatalf("ConfirmResult() error = %v", err)
	}
	if outcome.WinnerTeamID != "t3" {
		t.Errorf("outcome winner = %s, want t3", outcome.WinnerTeamID)
	}

	want := standingsdomain.Results{"t1", "t3", "t2", "t4"}
	if diff := cmp.Diff(want, env.ladder(seasonID)); diff != "" {
		t.Errorf("ladder mismatch (-want +got):\n%s", diff)
	}
	if got := env.matches.matches[matchID].Status; got != matchdomain.StatusCompleted {
		t.Errorf("status = %s, want completed", got)
	}
}

func TestConfirmResultDefenderWinKeepsOrder(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")
	if err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 5, Team2: 11}, {Team1: 7, Team2: 11}}); err != nil {
		t.Fatalf("EnterResult() error = %v", err)
	}

	if _, err := env.service.ConfirmResult(context.Background(), matchID, "p2"); err != nil {
		t.Fatalf("ConfirmResult() error = %v", err)
	}

	want := standingsdomain.Results{"t1", "t2", "t3", "t4"}
	if diff := cmp.Diff(want, env.ladder(seasonID)); diff != "" {
		t.Errorf("ladder mismatch (-want +got):\n%s", diff)
	}

	// The outcome is still recorded even without a rank change.
	found := false
	for _, step := range env.standings.trace {
		if step == "RecordMatchOutcomeInTx" {
			found = true
		}
	}
	if !found {
		t.Error("defender win did not record a standings outcome")
	}
}

func TestConfirmResultRejectsEnterer(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")
	if err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 11, Team2: 5}, {Team1: 11, Team2: 7}}); err != nil {
		t.Fatalf("EnterResult() error = %v", err)
	}

	_, err := env.service.ConfirmResult(context.Background(), matchID, "p3")
	if !errors.Is(err, ErrCannotConfirmOwnResult) {
		t.Fatalf("ConfirmResult() error = %v, want ErrCannotConfirmOwnResult", err)
	}
}

func TestConfirmResultTwiceConflicts(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")
	if err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 11, Team2: 5}, {Team1: 11, Team2: 7}}); err != nil {
		t.Fatalf("EnterResult() error = %v", err)
	}
	if _, err := env.service.ConfirmResult(context.Background(), matchID, "p2"); err != nil {
		t.Fatalf("first ConfirmResult() error = %v", err)
	}

	_, err := env.service.ConfirmResult(context.Background(), matchID, "p2")

	var conflict *StatusConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("second ConfirmResult() error = %v, want StatusConflictError", err)
	}

	// The swap must not have applied twice.
	want := standingsdomain.Results{"t1", "t3", "t2", "t4"}
	if diff := cmp.Diff(want, env.ladder(seasonID)); diff != "" {
		t.Errorf("ladder mismatch after double confirm (-want +got):\n%s", diff)
	}
}

func TestDisputeResult(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")
	if err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 11, Team2: 5}, {Team1: 11, Team2: 7}}); err != nil {
		t.Fatalf("EnterResult() error = %v", err)
	}

	if err := env.service.DisputeResult(context.Background(), matchID, "p2", "wrong score"); err != nil {
		t.Fatalf("DisputeResult() error = %v", err)
	}

	if got := env.matches.matches[matchID].Status; got != matchdomain.StatusDisputed {
		t.Errorf("status = %s, want disputed", got)
	}
	want := standingsdomain.Results{"t1", "t2", "t3", "t4"}
	if diff := cmp.Diff(want, env.ladder(seasonID)); diff != "" {
		t.Errorf("disputed match must not touch the ladder (-want +got):\n%s", diff)
	}
}

func TestDisputeResultRejectsEnterer(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")
	if err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 11, Team2: 5}, {Team1: 11, Team2: 7}}); err != nil {
		t.Fatalf("EnterResult() error = %v", err)
	}

	err := env.service.DisputeResult(context.Background(), matchID, "p3", "changed my mind")
	if !errors.Is(err, ErrCannotConfirmOwnResult) {
		t.Fatalf("DisputeResult() error = %v, want ErrCannotConfirmOwnResult", err)
	}
}

func TestWithdraw(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")

	if err := env.service.Withdraw(context.Background(), matchID, "p2"); !errors.Is(err, ErrNotChallenger) {
		t.Fatalf("defender Withdraw() error = %v, want ErrNotChallenger", err)
	}

	if err := env.service.Withdraw(context.Background(), matchID, "p3"); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if got := env.matches.matches[matchID].Status; got != matchdomain.StatusWithdrawn {
		t.Errorf("status = %s, want withdrawn", got)
	}
	last := env.events.public[len(env.events.public)-1]
	if last.Kind != eventsdb.EventWithdrawal {
		t.Errorf("last public event = %s, want withdrawal", last.Kind)
	}

	// Both teams are free again.
	open, err := env.service.TeamsWithOpenChallenge(context.Background(), seasonID)
	if err != nil {
		t.Fatalf("TeamsWithOpenChallenge() error = %v", err)
	}
	if len(open) != 0 {
		t.Errorf("open challenges = %v, want none", open)
	}
}

func TestForfeitByDefenderSwaps(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")

	if err := env.service.Forfeit(context.Background(), matchID, "p2"); err != nil {
		t.Fatalf("Forfeit() error = %v", err)
	}

	match := env.matches.matches[matchID]
	if match.Status != matchdomain.StatusForfeited {
		t.Errorf("status = %s, want forfeited", match.Status)
	}
	if match.WinnerTeamID == nil || *match.WinnerTeamID != "t3" {
		t.Errorf("winner = %v, want t3", match.WinnerTeamID)
	}

	want := standingsdomain.Results{"t1", "t3", "t2", "t4"}
	if diff := cmp.Diff(want, env.ladder(seasonID)); diff != "" {
		t.Errorf("ladder mismatch (-want +got):\n%s", diff)
	}
}

func TestForfeitByChallengerKeepsOrder(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()
	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")

	if err := env.service.Forfeit(context.Background(), matchID, "p3"); err != nil {
		t.Fatalf("Forfeit() error = %v", err)
	}

	match := env.matches.matches[matchID]
	if match.WinnerTeamID == nil || *match.WinnerTeamID != "t2" {
		t.Errorf("winner = %v, want t2", match.WinnerTeamID)
	}
	want := standingsdomain.Results{"t1", "t2", "t3", "t4"}
	if diff := cmp.Diff(want, env.ladder(seasonID)); diff != "" {
		t.Errorf("ladder mismatch (-want +got):\n%s", diff)
	}
}

func TestHeadToHead(t *testing.T) {
	env := newTestEnv()
	seasonID := env.seedSeason()

	matchID := mustChallenge(t, env, seasonID, "t3", "t2", "p3")
	if err := env.service.EnterResult(context.Background(), matchID, "p3", []matchdomain.SetScore{{Team1: 11, Team2: 5}, {Team1: 11, Team2: 7}}); err != nil {
		t.Fatalf("EnterResult() error = %v", err)
	}
	if _, err := env.service.ConfirmResult(context.Background(), matchID, "p2"); err != nil {
		t.Fatalf("ConfirmResult() error = %v", err)
	}

	wins3, wins2, err := env.service.HeadToHead(context.Background(), shared.TeamID("t3"), shared.TeamID("t2"))
	if err != nil {
		t.Fatalf("HeadToHead() error = %v", err)
	}
	if wins3 != 1 || wins2 != 0 {
		t.Errorf("head to head = %d:%d, want 1:0", wins3, wins2)
	}
}
