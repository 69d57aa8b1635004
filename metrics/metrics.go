// Package metrics holds the Prometheus collectors for robot sessions and the
// control server. Labels never carry session IDs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aria"

var (
	// SessionsByState counts sessions currently in each lifecycle state.
	SessionsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "state",
		Help:      "Number of robot sessions in each lifecycle state.",
	}, []string{"state"})

	// ConnectAttempts counts native connect attempts by decoded result.
	ConnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "connect_attempts_total",
		Help:      "Native connect attempts, by result.",
	}, []string{"result"})

	ConnectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "connect_duration_seconds",
		Help:      "Time spent inside the native connect call.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// NativeReleases counts calls to the native release entry point.
	NativeReleases = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "native_release_total",
		Help:      "Native release calls, by mode (exit or shutdown).",
	}, []string{"mode"})

	GuardRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "guard_rejections_total",
		Help:      "Initialize calls rejected because another session is live.",
	})

	BatteryVolts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "robot",
		Name:      "battery_volts",
		Help:      "Last sampled battery voltage.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Control server requests, by method, route and status.",
	}, []string{"method", "route", "status"})
)

// Transition moves one session from one state gauge to another. An empty
// from means the session is new; an empty to means it is gone.
func Transition(from, to string) {
	if from != "" {
		SessionsByState.WithLabelValues(from).Dec()
	}
	if to != "" {
		SessionsByState.WithLabelValues(to).Inc()
	}
}

// ObserveConnect records one native connect call.
func ObserveConnect(result string, d time.Duration) {
	ConnectAttempts.WithLabelValues(result).Inc()
	ConnectDuration.Observe(d.Seconds())
}

// ObserveRequest records one control server request.
func ObserveRequest(method, route string, status int) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
