package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BrokerMetrics records oracle broker activity: operation counts by outcome,
// call latency, and the pending-request and vault gauges the operator watches
// to spot an oracle falling behind.
type BrokerMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	pending    prometheus.Gauge
	vaultWei   prometheus.Gauge
}

var (
	brokerMetricsOnce sync.Once
	brokerRegistry    *BrokerMetrics
)

// Broker returns the lazily-initialised broker metrics registry.
func Broker() *BrokerMetrics {
	brokerMetricsOnce.Do(func() {
		brokerRegistry = &BrokerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "pql",
				Subsystem: "oracle",
				Name:      "operations_total",
				Help:      "Total broker operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "pql",
				Subsystem: "oracle",
				Name:      "operation_seconds",
				Help:      "Broker operation latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			pending: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "pql",
				Subsystem: "oracle",
				Name:      "pending_requests",
				Help:      "Number of requests currently awaiting fulfillment.",
			}),
			vaultWei: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "pql",
				Subsystem: "oracle",
				Name:      "vault_balance_wei",
				Help:      "Balance held by the broker vault, escrow and rewards combined.",
			}),
		}
		prometheus.MustRegister(
			brokerRegistry.operations,
			brokerRegistry.latency,
			brokerRegistry.pending,
			brokerRegistry.vaultWei,
		)
	})
	return brokerRegistry
}

// ObserveOperation records one broker call.
func (m *BrokerMetrics) ObserveOperation(operation, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(took.Seconds())
}

// SetPending updates the pending-request gauge.
func (m *BrokerMetrics) SetPending(count float64) {
	if m == nil {
		return
	}
	m.pending.Set(count)
}

// SetVaultBalance updates the vault balance gauge.
func (m *BrokerMetrics) SetVaultBalance(wei float64) {
	if m == nil {
		return
	}
	m.vaultWei.Set(wei)
}
