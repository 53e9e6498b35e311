package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth-flow Prometheus metrics. These are defined in a standalone package to avoid
// import cycles between the adapter and HTTP packages.

var (
	FlowStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handshake_flow_started_total",
		Help: "Flujos de autenticación iniciados (redirect emitido)",
	}, []string{"provider"})

	FlowCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handshake_flow_completed_total",
		Help: "Flujos de autenticación completados con perfil",
	}, []string{"provider"})

	FlowFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handshake_flow_failed_total",
		Help: "Flujos de autenticación fallidos por motivo",
	}, []string{"provider", "reason"}) // reason: cancelled|invalid|transport|config

	FlowDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "handshake_flow_callback_duration_seconds",
		Help:    "Duración del procesamiento del callback (verificación + perfil)",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)

// RegisterFlow registers the flow metrics on the given registry (or default if nil).
func RegisterFlow(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{FlowStarted, FlowCompleted, FlowFailed, FlowDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveCallback registra la duración de un callback procesado.
func ObserveCallback(provider string, d time.Duration) {
	FlowDuration.WithLabelValues(provider).Observe(d.Seconds())
}
