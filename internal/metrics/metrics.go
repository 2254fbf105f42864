// Package metrics exposes the process Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StartEdges counts recorded activity-start edges.
	StartEdges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lolwatch_activity_start_edges_total",
		Help: "Number of rising edges (player started a game) recorded.",
	})

	// SweepTicks counts completed sweep ticks.
	SweepTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lolwatch_sweep_ticks_total",
		Help: "Number of threshold sweep ticks executed.",
	})

	// SweepFailures counts sweep ticks aborted by a store read failure.
	SweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lolwatch_sweep_tick_failures_total",
		Help: "Number of sweep ticks aborted because the store snapshot failed.",
	})

	// NotificationsSent counts threshold notifications delivered.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lolwatch_notifications_sent_total",
		Help: "Number of inactivity notifications delivered.",
	})

	// NotificationFailures counts failed notification deliveries.
	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lolwatch_notification_failures_total",
		Help: "Number of inactivity notification deliveries that failed.",
	})

	// TrackedUsers is the number of registered players.
	TrackedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lolwatch_tracked_users",
		Help: "Number of registered players.",
	})

	// RiotRequests counts Riot API calls by endpoint and status bucket.
	RiotRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lolwatch_riot_requests_total",
		Help: "Riot API requests by endpoint and status class.",
	}, []string{"endpoint", "status"})

	// CommandsHandled counts bot commands by name and outcome.
	CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lolwatch_commands_total",
		Help: "Bot commands handled by command and outcome.",
	}, []string{"command", "outcome"})
)

// StatusBucket maps an HTTP status code to its class label.
func StatusBucket(code int) string {
	switch {
	case code <= 0:
		return "error"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
