// Package metrics defines the custom Prometheus metrics of the platform API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "platform"

// Result label values shared by the counters below.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultError    = "error"
)

type Metrics struct {
	// Logins counts login attempts.
	// Label:
	//   - result: "accepted", "rejected" (bad credentials) or "error"
	Logins *prometheus.CounterVec

	// Authentications counts X-API-Key checks.
	// Labels:
	//   - scope: "user" or "admin", the authenticator guarding the route
	//   - result: "accepted", "rejected" or "error"
	Authentications *prometheus.CounterVec

	// TokensRevoked counts tokens removed through the admin API.
	TokensRevoked prometheus.Counter
}

// New creates the counters and registers them with reg. A nil reg leaves
// them unregistered. Registering twice with the same reg panics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "logins_total",
				Help:      "Total number of login attempts, by result.",
			},
			[]string{"result"},
		),
		Authentications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "authentications_total",
				Help:      "Total number of token authentications, by scope and result.",
			},
			[]string{"scope", "result"},
		),
		TokensRevoked: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "tokens_revoked_total",
				Help:      "Total number of tokens deleted by administrators.",
			},
		),
	}
}
