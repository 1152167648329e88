package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	eventsservice "github.com/pyramid-league/ladder-server/app/modules/events/application"
	matchservice "github.com/pyramid-league/ladder-server/app/modules/match/application"
	matchdomain "github.com/pyramid-league/ladder-server/app/modules/match/domain"
	matchdb "github.com/pyramid-league/ladder-server/app/modules/match/infrastructure/repositories"
	seasonservice "github.com/pyramid-league/ladder-server/app/modules/season/application"
	seasondb "github.com/pyramid-league/ladder-server/app/modules/season/infrastructure/repositories"
	standingsservice "github.com/pyramid-league/ladder-server/app/modules/standings/application"
	"github.com/pyramid-league/ladder-server/app/shared"
)

// api exposes the ladder operations as a thin JSON layer. All rules live in
// the services; handlers only decode, dispatch and map errors to status
// codes.
type api struct {
	standings *standingsservice.StandingsService
	matches   *matchservice.MatchService
	seasons   *seasonservice.SeasonService
	events    *eventsservice.EventService
	logger    *slog.Logger
}

func (a *api) routes(router chi.Router) {
	router.Post("/seasons", a.createSeason)
	router.Route("/seasons/{seasonID}", func(r chi.Router) {
		r.Post("/activate", a.activateSeason)
		r.Post("/end", a.endSeason)
		r.Get("/standings", a.getStandings)
		r.Get("/standings/chart/{teamID}", a.getRankChart)
		r.Get("/standings/export", a.exportStandings)
		r.Post("/challenges", a.createChallenge)
		r.Post("/teams", a.enrollTeam)
		r.Post("/unavailability", a.setUnavailability)
	})
	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Post("/proposals", a.proposeDate)
		r.Post("/result", a.enterResult)
		r.Post("/confirm", a.confirmResult)
		r.Post("/dispute", a.disputeResult)
		r.Post("/withdraw", a.withdraw)
		r.Post("/forfeit", a.forfeit)
	})
	router.Post("/teams/{teamID}/opt-out", a.optOut)
	router.Post("/proposals/{proposalID}/accept", a.acceptProposal)
	router.Post("/proposals/{proposalID}/decline", a.declineProposal)
	router.Get("/clubs/{clubID}/feed", a.clubFeed)
	router.Get("/clubs/{clubID}/players/{playerID}/feed", a.playerFeed)
}

func (a *api) createSeason(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClubID               shared.ClubID `json:"club_id"`
		Name                 string        `json:"name"`
		BestOf               int           `json:"best_of"`
		MatchDeadlineDays    int           `json:"match_deadline_days"`
		ReminderDays         int           `json:"reminder_days"`
		RequiresConfirmation bool          `json:"requires_confirmation"`
		OpenEnrollment       bool          `json:"open_enrollment"`
		MinTeamSize          int           `json:"min_team_size"`
		MaxTeamSize          int           `json:"max_team_size"`
	}
	if !a.decode(w, r, &body) {
		return
	}

	season := &seasondb.Season{
		ClubID:               body.ClubID,
		Name:                 body.Name,
		BestOf:               body.BestOf,
		MatchDeadlineDays:    body.MatchDeadlineDays,
		ReminderDays:         body.ReminderDays,
		RequiresConfirmation: body.RequiresConfirmation,
		OpenEnrollment:       body.OpenEnrollment,
		MinTeamSize:          body.MinTeamSize,
		MaxTeamSize:          body.MaxTeamSize,
	}
	if err := a.seasons.CreateSeason(r.Context(), season); err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, map[string]any{"season_id": season.ID})
}

func (a *api) activateSeason(w http.ResponseWriter, r *http.Request) {
	if err := a.seasons.ActivateSeason(r.Context(), shared.SeasonID(chi.URLParam(r, "seasonID"))); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) endSeason(w http.ResponseWriter, r *http.Request) {
	if err := a.seasons.EndSeason(r.Context(), shared.SeasonID(chi.URLParam(r, "seasonID"))); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) optOut(w http.ResponseWriter, r *http.Request) {
	if err := a.seasons.OptOut(r.Context(), shared.TeamID(chi.URLParam(r, "teamID"))); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) getStandings(w http.ResponseWriter, r *http.Request) {
	seasonID := shared.SeasonID(chi.URLParam(r, "seasonID"))
	view, err := a.standings.WithMovement(r.Context(), seasonID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, view)
}

func (a *api) getRankChart(w http.ResponseWriter, r *http.Request) {
	seasonID := shared.SeasonID(chi.URLParam(r, "seasonID"))
	teamID := shared.TeamID(chi.URLParam(r, "teamID"))

	history, err := a.standings.RankHistory(r.Context(), seasonID, teamID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	png, err := standingsservice.GenerateRankHistoryChart(history, standingsservice.DefaultChartPalette())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (a *api) exportStandings(w http.ResponseWriter, r *http.Request) {
	seasonID := shared.SeasonID(chi.URLParam(r, "seasonID"))

	view, err := a.standings.WithMovement(r.Context(), seasonID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	book, err := standingsservice.ExportStandingsXLSX(view)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=standings.xlsx")
	_, _ = w.Write(book)
}

func (a *api) createChallenge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Challenger shared.TeamID   `json:"challenger_team_id"`
		Defender   shared.TeamID   `json:"defender_team_id"`
		ActorID    shared.PlayerID `json:"actor_id"`
	}
	if !a.decode(w, r, &body) {
		return
	}

	matchID, err := a.matches.CreateChallenge(r.Context(), matchservice.CreateChallengeCommand{
		SeasonID:   shared.SeasonID(chi.URLParam(r, "seasonID")),
		Challenger: body.Challenger,
		Defender:   body.Defender,
		ActorID:    body.ActorID,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, map[string]any{"match_id": matchID})
}

func (a *api) enrollTeam(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string            `json:"name"`
		Players []shared.PlayerID `json:"players"`
	}
	if !a.decode(w, r, &body) {
		return
	}

	result, err := a.seasons.EnrollTeam(r.Context(), shared.SeasonID(chi.URLParam(r, "seasonID")), body.Name, body.Players)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadyEnrolled {
		status = http.StatusOK
	}
	a.respond(w, status, result)
}

func (a *api) setUnavailability(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID shared.PlayerID `json:"player_id"`
		StartsAt time.Time       `json:"starts_at"`
		EndsAt   time.Time       `json:"ends_at"`
	}
	if !a.decode(w, r, &body) {
		return
	}

	err := a.seasons.SetUnavailability(r.Context(), shared.SeasonID(chi.URLParam(r, "seasonID")), body.PlayerID, body.StartsAt, body.EndsAt)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) proposeDate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID shared.PlayerID `json:"player_id"`
		Text     string          `json:"text"`
	}
	if !a.decode(w, r, &body) {
		return
	}

	proposalID, proposedTime, err := a.matches.ProposeDate(r.Context(), shared.MatchID(chi.URLParam(r, "matchID")), body.PlayerID, body.Text)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusCreated, map[string]any{
		"proposal_id":   proposalID,
		"proposed_time": proposedTime,
	})
}

func (a *api) acceptProposal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID shared.PlayerID `json:"player_id"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if err := a.matches.AcceptDateProposal(r.Context(), shared.ProposalID(chi.URLParam(r, "proposalID")), body.PlayerID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) declineProposal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID shared.PlayerID `json:"player_id"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if err := a.matches.DeclineDateProposal(r.Context(), shared.ProposalID(chi.URLParam(r, "proposalID")), body.PlayerID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) enterResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID shared.PlayerID        `json:"player_id"`
		Sets     []matchdomain.SetScore `json:"sets"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if err := a.matches.EnterResult(r.Context(), shared.MatchID(chi.URLParam(r, "matchID")), body.PlayerID, body.Sets); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) confirmResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID shared.PlayerID `json:"player_id"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	outcome, err := a.matches.ConfirmResult(r.Context(), shared.MatchID(chi.URLParam(r, "matchID")), body.PlayerID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, outcome)
}

func (a *api) disputeResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID shared.PlayerID `json:"player_id"`
		Reason   string          `json:"reason"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if err := a.matches.DisputeResult(r.Context(), shared.MatchID(chi.URLParam(r, "matchID")), body.PlayerID, body.Reason); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) withdraw(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID shared.PlayerID `json:"player_id"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if err := a.matches.Withdraw(r.Context(), shared.MatchID(chi.URLParam(r, "matchID")), body.PlayerID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) forfeit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID shared.PlayerID `json:"player_id"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if err := a.matches.Forfeit(r.Context(), shared.MatchID(chi.URLParam(r, "matchID")), body.PlayerID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) clubFeed(w http.ResponseWriter, r *http.Request) {
	events, err := a.events.ClubFeed(r.Context(), shared.ClubID(chi.URLParam(r, "clubID")), 50)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, events)
}

func (a *api) playerFeed(w http.ResponseWriter, r *http.Request) {
	events, err := a.events.PlayerFeed(r.Context(), shared.ClubID(chi.URLParam(r, "clubID")), shared.PlayerID(chi.URLParam(r, "playerID")), 50)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, events)
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (a *api) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// fail maps service errors onto HTTP statuses. Conflicts are 409: the client
// refreshes and retries, the server never does.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		challengeConflict *matchservice.ChallengeConflictError
		statusConflict    *matchservice.StatusConflictError
		notAllowed        *matchservice.ChallengeNotAllowedError
		invalidScores     *matchdomain.InvalidScoresError
		sizeErr           *seasonservice.TeamSizeError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &challengeConflict), errors.As(err, &statusConflict):
		status = http.StatusConflict
	case errors.Is(err, seasonservice.ErrOpenChallenge), errors.Is(err, seasonservice.ErrSeasonStatusConflict):
		status = http.StatusConflict
	case errors.As(err, &notAllowed), errors.As(err, &invalidScores), errors.As(err, &sizeErr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, matchservice.ErrUnparsableDate), errors.Is(err, seasonservice.ErrInvalidDateRange):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, matchservice.ErrCannotConfirmOwnResult),
		errors.Is(err, matchservice.ErrNotParticipant),
		errors.Is(err, matchservice.ErrNotChallenger),
		errors.Is(err, matchservice.ErrTeamUnavailable):
		status = http.StatusForbidden
	case errors.Is(err, matchservice.ErrSeasonNotActive),
		errors.Is(err, seasonservice.ErrSeasonNotActive),
		errors.Is(err, seasonservice.ErrEnrollmentClosed):
		status = http.StatusConflict
	case errors.Is(err, standingsservice.ErrNotEnoughHistory),
		errors.Is(err, matchdb.ErrMatchNotFound),
		errors.Is(err, matchdb.ErrProposalNotFound),
		errors.Is(err, seasondb.ErrSeasonNotFound),
		errors.Is(err, seasondb.ErrTeamNotFound),
		errors.Is(err, seasondb.ErrNoTeamForPlayer):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "Request failed", slog.Any("error", err))
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}
