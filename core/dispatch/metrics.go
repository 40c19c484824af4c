package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	invitesSent        prometheus.Counter
	inviteFailures     *prometheus.CounterVec
	advancesTotal      *prometheus.CounterVec
	activeRequests     prometheus.Gauge
	resolutionDuration *prometheus.HistogramVec
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Gauge, *prometheus.HistogramVec) {
	sent := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "call_invites_sent_total",
			Help: "Number of call invitations delivered to responder devices",
		},
	)
	failed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_invite_failures_total",
			Help: "Number of failed invitation deliveries",
		},
		[]string{"kind"},
	)
	adv := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_advances_total",
			Help: "Number of cursor advances past a candidate",
		},
		[]string{"reason"},
	)
	act := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "call_requests_active",
			Help: "Number of in-flight dispatch requests",
		},
	)
	res := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "call_resolution_duration_seconds",
			Help:    "Time from request creation to terminal resolution",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"outcome"},
	)
	return sent, failed, adv, act, res
}

func init() {
	invitesSent, inviteFailures, advancesTotal, activeRequests, resolutionDuration = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(invitesSent, inviteFailures, advancesTotal, activeRequests, resolutionDuration)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	invitesSent, inviteFailures, advancesTotal, activeRequests, resolutionDuration = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
