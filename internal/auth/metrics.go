package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts authentication and authorization outcomes. A nil *Metrics
// records nothing.
type Metrics struct {
	tokensIssued   *prometheus.CounterVec
	tokenFailures  *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
	authzDecisions *prometheus.CounterVec
	authzDuration  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tokensIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_tokens_issued_total",
				Help: "Tokens issued, by kind.",
			},
			[]string{"kind"},
		),
		tokenFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_token_failures_total",
				Help: "Rejected tokens, by reason.",
			},
			[]string{"reason"},
		),
		loginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_attempts_total",
				Help: "Login attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		authzDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authz_decisions_total",
				Help: "Authorization decisions, by route and outcome.",
			},
			[]string{"route", "outcome"},
		),
		authzDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authz_decision_duration_seconds",
				Help:    "Time spent authorizing a request.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.tokensIssued, m.tokenFailures, m.loginAttempts, m.authzDecisions, m.authzDuration)
	}
	return m
}

func (m *Metrics) TokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) TokenRejected(reason string) {
	if m == nil {
		return
	}
	m.tokenFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AuthzDecision(route, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.authzDecisions.WithLabelValues(route, outcome).Inc()
	m.authzDuration.WithLabelValues(route).Observe(took.Seconds())
}
