package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "walking_api"

// Verification results recorded by the authentication bridge.
const (
	VerificationNoToken  = "no_token"
	VerificationVerified = "verified"
	VerificationFailed   = "verification_failed"
)

// Authorization decisions recorded by the gate.
const (
	DecisionAllow        = "allow"
	DecisionUnauthorized = "unauthorized"
	DecisionForbidden    = "forbidden"
)

// Metrics holds the auth counters. A nil *Metrics records nothing.
type Metrics struct {
	tokenVerifications     *prometheus.CounterVec
	authorizationDecisions *prometheus.CounterVec
}

// NewMetrics creates the auth counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tokenVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_verifications_total",
				Help:      "Number of bearer token verification outcomes by result.",
			},
			[]string{"result"},
		),
		authorizationDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authorization_decisions_total",
				Help:      "Number of authorization decisions by policy and decision.",
			},
			[]string{"policy", "decision"},
		),
	}

	reg.MustRegister(m.tokenVerifications, m.authorizationDecisions)
	return m
}

// RecordVerification counts one bridge outcome.
func (m *Metrics) RecordVerification(result string) {
	if m == nil {
		return
	}
	m.tokenVerifications.WithLabelValues(result).Inc()
}

// RecordAuthorization counts one gate decision.
func (m *Metrics) RecordAuthorization(policy, decision string) {
	if m == nil {
		return
	}
	m.authorizationDecisions.WithLabelValues(policy, decision).Inc()
}
