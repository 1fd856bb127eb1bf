package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeOK labels API calls that returned a payload.
const OutcomeOK = "ok"

// ClientMetrics holds the Prometheus metrics recorded by the console
type ClientMetrics struct {
	// API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionExpiriesTotal prometheus.Counter
	LoginsTotal          *prometheus.CounterVec

	// Navigation metrics
	RouteInstallsTotal prometheus.Counter
	InstalledRoutes    prometheus.Gauge
}

// NewClientMetrics creates and registers all console metrics
func NewClientMetrics(registry prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nxadmin_api_requests_total",
				Help: "Total number of admin API requests by outcome",
			},
			[]string{"method", "outcome"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nxadmin_api_request_duration_seconds",
				Help:    "Admin API request duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),
		SessionExpiriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nxadmin_session_expiries_total",
				Help: "Total number of sessions force-expired by a 401 response",
			},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nxadmin_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		RouteInstallsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nxadmin_route_installs_total",
				Help: "Total number of dynamic route installations",
			},
		),
		InstalledRoutes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nxadmin_installed_routes",
				Help: "Number of dynamic routes currently installed",
			},
		),
	}

	registry.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.SessionExpiriesTotal,
		m.LoginsTotal,
		m.RouteInstallsTotal,
		m.InstalledRoutes,
	)

	return m
}

// ObserveRequest records one finished API call. A nil receiver is a no-op.
func (m *ClientMetrics) ObserveRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(method, outcome).Inc()
	m.APIRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveExpiry counts a forced session expiry.
func (m *ClientMetrics) ObserveExpiry() {
	if m == nil {
		return
	}
	m.SessionExpiriesTotal.Inc()
}

// ObserveLogin counts a login attempt.
func (m *ClientMetrics) ObserveLogin(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// ObserveRouteInstall records a dynamic route installation of n routes.
// n < 0 marks a reset.
func (m *ClientMetrics) ObserveRouteInstall(n int) {
	if m == nil {
		return
	}
	if n < 0 {
		m.InstalledRoutes.Set(0)
		return
	}
	m.RouteInstallsTotal.Inc()
	m.InstalledRoutes.Set(float64(n))
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, gatherer)
}
