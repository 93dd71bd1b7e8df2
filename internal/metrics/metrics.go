// Package metrics exposes Prometheus instruments for the auth flow.
//
// All methods are safe to call on a nil *Metrics, which disables recording.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "authapi"

// Outcome labels for AuthAttempt.
const (
	OutcomeSuccess     = "success"
	OutcomeBadRequest  = "bad_request"
	OutcomeConflict    = "conflict"
	OutcomeInvalid     = "invalid_credentials"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Result labels for SessionResolved.
const (
	SessionAnonymous = "anonymous"
	SessionValid     = "valid"
	SessionInvalid   = "invalid"
	SessionRevoked   = "revoked"
)

type Metrics struct {
	registry        *prometheus.Registry
	authAttempts    *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	registeredUsers prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

// New creates the instruments on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Register, login and logout attempts by outcome.",
		}, []string{"action", "outcome"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resolutions_total",
			Help:      "Session cookie resolutions by result.",
		}, []string{"result"}),
		registeredUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_users",
			Help:      "Number of users in the credential store.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.authAttempts,
		m.sessions,
		m.registeredUsers,
		m.requestDuration,
	)
	return m
}

func (m *Metrics) AuthAttempt(action, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) SessionResolved(result string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(result).Inc()
}

func (m *Metrics) UserRegistered() {
	if m == nil {
		return
	}
	m.registeredUsers.Inc()
}

func (m *Metrics) SetRegisteredUsers(n int) {
	if m == nil {
		return
	}
	m.registeredUsers.Set(float64(n))
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
