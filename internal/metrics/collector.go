// Package rndcmetrics exposes Prometheus instrumentation for RNDC
// handshakes: how many were attempted, how many succeeded or failed, how
// long they took, and how often authentication itself was the failure.
package rndcmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "rndc"
	subsystem = "handshake"
)

// Label names for handshake metrics.
const (
	labelRole = "role"
)

// -------------------------------------------------------------------------
// Collector — Prometheus RNDC Metrics
// -------------------------------------------------------------------------

// Collector holds all RNDC handshake Prometheus metrics.
//
//   - HandshakesStarted/Succeeded/Failed track outcome counts per role
//     (client or server), for alerting on a rising failure rate.
//   - HandshakeDuration records end-to-end handshake latency.
//   - AuthFailures isolates the authentication failure modes (a bad
//     HMAC signature, or on the server a mismatched nonce), since they
//     are the ones most likely to indicate a misconfigured or
//     compromised key rather than a transient network problem.
type Collector struct {
	// HandshakesStarted counts handshakes begun, labeled by role.
	HandshakesStarted *prometheus.CounterVec

	// HandshakesSucceeded counts handshakes that reached Done, labeled
	// by role.
	HandshakesSucceeded *prometheus.CounterVec

	// HandshakesFailed counts handshakes that reached Failed, labeled
	// by role.
	HandshakesFailed *prometheus.CounterVec

	// HandshakeDuration records the wall-clock time from Start to a
	// terminal event, labeled by role.
	HandshakeDuration *prometheus.HistogramVec

	// AuthFailures counts handshakes that failed authentication: a bad
	// HMAC signature or, for the server role, a mismatched nonce.
	AuthFailures *prometheus.CounterVec
}

// NewCollector creates a Collector with all RNDC metrics registered
// against reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.HandshakesStarted,
		c.HandshakesSucceeded,
		c.HandshakesFailed,
		c.HandshakeDuration,
		c.AuthFailures,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	roleLabels := []string{labelRole}

	return &Collector{
		HandshakesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "started_total",
			Help:      "Total RNDC handshakes begun.",
		}, roleLabels),

		HandshakesSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "succeeded_total",
			Help:      "Total RNDC handshakes that completed successfully.",
		}, roleLabels),

		HandshakesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "failed_total",
			Help:      "Total RNDC handshakes that failed.",
		}, roleLabels),

		HandshakeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "RNDC handshake duration from Start to a terminal event.",
			Buckets:   prometheus.DefBuckets,
		}, roleLabels),

		AuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_failures_total",
			Help:      "Total RNDC handshakes that failed authentication (bad HMAC signature or nonce mismatch).",
		}, roleLabels),
	}
}

// -------------------------------------------------------------------------
// Handshake Outcomes
// -------------------------------------------------------------------------

// IncStarted increments the started counter for role.
func (c *Collector) IncStarted(role string) {
	c.HandshakesStarted.WithLabelValues(role).Inc()
}

// IncSucceeded increments the succeeded counter for role.
func (c *Collector) IncSucceeded(role string) {
	c.HandshakesSucceeded.WithLabelValues(role).Inc()
}

// IncFailed increments the failed counter for role.
func (c *Collector) IncFailed(role string) {
	c.HandshakesFailed.WithLabelValues(role).Inc()
}

// ObserveDuration records a handshake's elapsed time for role.
func (c *Collector) ObserveDuration(role string, d time.Duration) {
	c.HandshakeDuration.WithLabelValues(role).Observe(d.Seconds())
}

// -------------------------------------------------------------------------
// Authentication
// -------------------------------------------------------------------------

// IncAuthFailures increments the authentication failure counter for role.
func (c *Collector) IncAuthFailures(role string) {
	c.AuthFailures.WithLabelValues(role).Inc()
}
