package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/evans-manyala/enxero/internal/core/port"
)

// AuthMetrics implements port.AuthMetrics with Prometheus collectors.
type AuthMetrics struct {
	Logins        *prometheus.CounterVec
	Refreshes     *prometheus.CounterVec
	Lockouts      prometheus.Counter
	SweptSessions prometheus.Counter
	SweptAttempts prometheus.Counter
}

// NewAuthMetrics registers the auth collectors under namespace with reg.
func NewAuthMetrics(reg prometheus.Registerer, namespace string) (*AuthMetrics, error) {
	if namespace == "" {
		namespace = "enxero"
	}

	logins, err := Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	refreshes, err := Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "refreshes_total",
		Help:      "Token refreshes partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	lockouts, err := Register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "lockouts_total",
		Help:      "Accounts locked after repeated failed logins.",
	}))
	if err != nil {
		return nil, err
	}

	sessions, err := Register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "swept_sessions_total",
		Help:      "Expired sessions removed by the sweeper.",
	}))
	if err != nil {
		return nil, err
	}

	attempts, err := Register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "swept_login_attempts_total",
		Help:      "Failed login attempts removed by the sweeper.",
	}))
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		Logins:        logins,
		Refreshes:     refreshes,
		Lockouts:      lockouts,
		SweptSessions: sessions,
		SweptAttempts: attempts,
	}, nil
}

func (m *AuthMetrics) ObserveLogin(outcome string) {
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveRefresh(outcome string) {
	m.Refreshes.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) IncLockout() {
	m.Lockouts.Inc()
}

func (m *AuthMetrics) ObserveSweep(sessions, attempts int64) {
	m.SweptSessions.Add(float64(sessions))
	m.SweptAttempts.Add(float64(attempts))
}

var _ port.AuthMetrics = (*AuthMetrics)(nil)
