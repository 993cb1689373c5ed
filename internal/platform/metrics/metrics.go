package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the request path and the audit trail.
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	AuditAppended    *prometheus.CounterVec
	LoginFailures    prometheus.Counter
	LockoutTriggered prometheus.Counter
}

// New creates a Metrics instance with all collectors registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intia_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "status"}),
		AuditAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intia_audit_entries_total",
			Help: "Total audit log entries appended, by action",
		}, []string{"action"}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intia_login_failures_total",
			Help: "Total failed login attempts",
		}),
		LockoutTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intia_login_lockouts_total",
			Help: "Total logins rejected by the lockout",
		}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, status string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
}

// IncrementAudit records one appended audit entry.
func (m *Metrics) IncrementAudit(action string) {
	if m == nil {
		return
	}
	m.AuditAppended.WithLabelValues(action).Inc()
}

// IncrementLoginFailure records one rejected credential check.
func (m *Metrics) IncrementLoginFailure() {
	if m == nil {
		return
	}
	m.LoginFailures.Inc()
}

// IncrementLockout records one login short-circuited by the lockout.
func (m *Metrics) IncrementLockout() {
	if m == nil {
		return
	}
	m.LockoutTriggered.Inc()
}
