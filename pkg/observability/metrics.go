// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the simpla backend.
package observability

import "github.com/prometheus/client_golang/prometheus"

// HTTPBuckets defines histogram buckets for API latencies, ranging from
// 5ms to 10s. bcrypt-bound login requests land in the upper half.
var HTTPBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpla_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "simpla_request_duration_seconds",
			Help:    "Request duration",
			Buckets: HTTPBuckets,
		},
		[]string{"method"},
	)

	// RequestsInFlight tracks the number of requests currently being served.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "simpla_requests_in_flight",
			Help: "In-flight requests",
		},
	)

	// AuthOutcomesTotal counts authentication middleware outcomes
	// (authenticated, invalid, anonymous).
	AuthOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpla_auth_outcomes_total",
			Help: "Authentication outcomes",
		},
		[]string{"outcome"},
	)

	// LoginAttemptsTotal counts login attempts by result
	// (success, invalid_credentials, rate_limited, error).
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpla_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"result"},
	)

	// RegistrationsTotal counts registration attempts by result.
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpla_registrations_total",
			Help: "Registrations",
		},
		[]string{"result"},
	)

	// RateLimitRejectedTotal counts requests rejected by a rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simpla_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"scope"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		AuthOutcomesTotal,
		LoginAttemptsTotal,
		RegistrationsTotal,
		RateLimitRejectedTotal,
	)
}
