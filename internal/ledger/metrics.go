package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traceroot_ledger_attempts_total",
		Help: "Backend attempts by backend, operation, and result.",
	}, []string{"backend", "op", "result"})

	ledgerFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traceroot_ledger_fallbacks_total",
		Help: "Fallback substitutions by operation and failure class.",
	}, []string{"op", "class"})

	ledgerOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "traceroot_ledger_op_duration_seconds",
		Help:    "Backend operation duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "op"})

	ledgerProbeReachable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "traceroot_ledger_probe_reachable",
		Help: "Last probe result per backend (1 reachable, 0 not).",
	}, []string{"backend"})
)

func observeAttempt(backend, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = string(Classify(err))
	}
	ledgerAttemptsTotal.WithLabelValues(backend, op, result).Inc()
	ledgerOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

func observeFallback(op string, class ErrorClass) {
	ledgerFallbacksTotal.WithLabelValues(op, string(class)).Inc()
}

// ObserveProbe records a probe result. Exported so the background health
// loop can report probes it runs itself.
func ObserveProbe(res ProbeResult) {
	v := 0.0
	if res.Reachable {
		v = 1.0
	}
	ledgerProbeReachable.WithLabelValues(res.Backend).Set(v)
}
