package matchservice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts lifecycle outcomes. A nil *Metrics is a no-op so tests and
// tools can run without a registry.
type Metrics struct {
	challengesCreated   prometheus.Counter
	challengeConflicts  prometheus.Counter
	transitionConflicts *prometheus.CounterVec
	matchesCompleted    prometheus.Counter
}

// NewMetrics registers the match lifecycle counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		challengesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ladder_challenges_created_total",
			Help: "Challenges successfully created.",
		}),
		challengeConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ladder_challenge_conflicts_total",
			Help: "Challenge attempts rejected because a team already had an open challenge.",
		}),
		transitionConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ladder_transition_conflicts_total",
			Help: "Lifecycle transitions lost to a concurrent update, by transition.",
		}, []string{"transition"}),
		matchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_completed_total",
			Help: "Matches confirmed and applied to the standings.",
		}),
	}
}

func (m *Metrics) ChallengeCreated() {
	if m != nil {
		m.challengesCreated.Inc()
	}
}

func (m *Metrics) ChallengeConflict() {
	if m != nil {
		m.challengeConflicts.Inc()
	}
}

func (m *Metrics) TransitionConflict(transition string) {
	if m != nil {
		m.transitionConflicts.WithLabelValues(transition).Inc()
	}
}

func (m *Metrics) MatchCompleted() {
	if m != nil {
		m.matchesCompleted.Inc()
	}
}
