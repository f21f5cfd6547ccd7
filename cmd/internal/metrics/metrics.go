// Package metrics owns the Prometheus collectors exported on /metrics.
//
// All recording methods are nil-safe so packages can take an optional *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guestlist"

// Tracking outcomes.
const (
	TrackRecorded = "recorded"
	TrackRepeat   = "repeat"
	TrackUnknown  = "unknown"
	TrackError    = "error"
	TrackLimited  = "limited"
)

// Metrics groups the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	invitationResponses *prometheus.CounterVec
	materializeFailures prometheus.Counter
	inviteTracking      *prometheus.CounterVec
	rsvpSubmissions     *prometheus.CounterVec
	tokenRotations      prometheus.Counter
	giftsRecorded       *prometheus.CounterVec
	rateLimited         *prometheus.CounterVec
}

// New builds the collectors and registers them together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status class.",
		}, []string{"method", "route", "status_class"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		invitationResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitation_responses_total",
			Help:      "Host responses to invitations by resulting status.",
		}, []string{"status"}),
		materializeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guest_materialize_failures_total",
			Help:      "Approvals whose guest record could not be created.",
		}),
		inviteTracking: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_tracking_total",
			Help:      "Invite open/click tracking calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		rsvpSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rsvp_submissions_total",
			Help:      "Accepted RSVP submissions by status.",
		}, []string{"status"}),
		tokenRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_token_rotations_total",
			Help:      "Invite tokens regenerated by hosts.",
		}),
		giftsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gifts_recorded_total",
			Help:      "Gifts recorded by currency and payment method.",
		}, []string{"currency", "method"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected or skipped by the invite rate limiter.",
		}, []string{"route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.invitationResponses,
		m.materializeFailures,
		m.inviteTracking,
		m.rsvpSubmissions,
		m.tokenRotations,
		m.giftsRecorded,
		m.rateLimited,
	)
	return m
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one finished request. route must be the router pattern, never the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, StatusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// InvitationResponded counts a committed status transition.
func (m *Metrics) InvitationResponded(status string) {
	if m == nil {
		return
	}
	m.invitationResponses.WithLabelValues(status).Inc()
}

// MaterializeFailed counts an approval whose guest step failed.
func (m *Metrics) MaterializeFailed() {
	if m == nil {
		return
	}
	m.materializeFailures.Inc()
}

// Tracked counts a tracking call; kind is "open" or "click".
func (m *Metrics) Tracked(kind, outcome string) {
	if m == nil {
		return
	}
	m.inviteTracking.WithLabelValues(kind, outcome).Inc()
}

// RSVPSubmitted counts an accepted RSVP.
func (m *Metrics) RSVPSubmitted(status string) {
	if m == nil {
		return
	}
	m.rsvpSubmissions.WithLabelValues(status).Inc()
}

// TokenRotated counts a token regeneration.
func (m *Metrics) TokenRotated() {
	if m == nil {
		return
	}
	m.tokenRotations.Inc()
}

// GiftRecorded counts a created gift.
func (m *Metrics) GiftRecorded(currency, method string) {
	if m == nil {
		return
	}
	m.giftsRecorded.WithLabelValues(currency, method).Inc()
}

// RateLimited counts a limiter hit on route.
func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}

// StatusClass maps a status code to "2xx".."5xx".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
