// Package metrics defines and registers all custom Prometheus metrics for the
// Konekta identity API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register themselves with the default Prometheus registry at import
// time via promauto; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "konekta"

// SignupsTotal counts created accounts.
// Label:
//   - mode: "password" (caller supplied one) or "temp_credential" (server generated)
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of accounts created, by credential mode.",
	},
	[]string{"mode"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ProfileUpdatesTotal counts applied profile updates.
var ProfileUpdatesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_updates_total",
		Help:      "Total number of profile updates applied.",
	},
)

// TempCredentialsIssuedTotal counts server-generated temporary credentials.
var TempCredentialsIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "temp_credentials_issued_total",
		Help:      "Total number of temporary credentials generated at signup.",
	},
)
