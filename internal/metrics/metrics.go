package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de admisión. Paquete aparte para que rate, oauth, audit y http
// puedan importarlo sin ciclos.

var (
	AdmissionDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcgate",
		Name:      "admission_decisions_total",
		Help:      "Decisiones del gatekeeper por categoría y resultado",
	}, []string{"category", "outcome"})

	AdmissionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mcgate",
		Name:      "admission_latency_ms",
		Help:      "Latencia de validación + rate check en milisegundos",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 12),
	}, []string{"category"})

	RateDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcgate",
		Name:      "rate_decisions_total",
		Help:      "Decisiones del limiter (allowed, denied, degraded_open, degraded_closed)",
	}, []string{"category", "decision"})

	RateStoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcgate",
		Name:      "rate_store_errors_total",
		Help:      "Errores del store compartido de contadores",
	}, []string{"category"})

	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcgate",
		Name:      "tokens_issued_total",
		Help:      "Pares de tokens emitidos por grant",
	}, []string{"grant"})

	RefreshFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcgate",
		Name:      "refresh_failures_total",
		Help:      "Refresh rechazados por motivo (not_found, reused, expired, revoked)",
	}, []string{"reason"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mcgate",
		Name:      "http_requests_total",
		Help:      "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mcgate",
		Name:      "http_request_duration_seconds",
		Help:      "Latencia de los requests HTTP",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mcgate",
		Name:      "http_inflight_requests",
		Help:      "Requests en curso",
	})

	AuditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mcgate",
		Name:      "audit_dropped_total",
		Help:      "Entradas de auditoría descartadas por buffer lleno o error del sink",
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		AdmissionDecisions,
		AdmissionLatency,
		RateDecisions,
		RateStoreErrors,
		TokensIssued,
		RefreshFailures,
		HTTPRequests,
		HTTPDuration,
		HTTPInflight,
		AuditDropped,
	}
}

// Register registra las métricas en reg (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
