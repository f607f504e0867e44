// Package telemetry exposes the process Prometheus metrics. The helpers
// mirror the call sites' vocabulary so instrumented code stays free of
// collector plumbing.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candle_pusher_upstream_fetches_total",
		Help: "Upstream candle fetches by venue and outcome",
	}, []string{"venue", "outcome"})

	broadcastTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "candle_pusher_broadcast_ticks_total",
		Help: "Completed broadcast scheduler ticks",
	})

	messagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candle_pusher_messages_sent_total",
		Help: "Outbound websocket messages by type",
	}, []string{"type"})

	sendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "candle_pusher_send_failures_total",
		Help: "Outbound sends dropped because a session could not take them",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "candle_pusher_active_streams",
		Help: "Streams currently held in the subscription registry",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "candle_pusher_active_sessions",
		Help: "Connected websocket sessions",
	})

	heartbeatEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "candle_pusher_heartbeat_evictions_total",
		Help: "Sessions closed by the heartbeat loop",
	})
)

// FetchSuccess records a successful upstream fetch for the venue.
func FetchSuccess(venue string) {
	fetchesTotal.WithLabelValues(venue, "success").Inc()
}

// FetchFailure records a failed upstream fetch for the venue.
func FetchFailure(venue string) {
	fetchesTotal.WithLabelValues(venue, "failure").Inc()
}

// BroadcastTick records one completed pass of the broadcast scheduler.
func BroadcastTick() {
	broadcastTicksTotal.Inc()
}

// MessageSent records one outbound message of the given wire type.
func MessageSent(msgType string) {
	messagesSentTotal.WithLabelValues(msgType).Inc()
}

// SendFailure records a dropped outbound send.
func SendFailure() {
	sendFailuresTotal.Inc()
}

// SetActiveStreams publishes the registry size.
func SetActiveStreams(n int) {
	activeStreams.Set(float64(n))
}

// SetActiveSessions publishes the connected session count.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// HeartbeatEviction records one session closed for inactivity.
func HeartbeatEviction() {
	heartbeatEvictionsTotal.Inc()
}
