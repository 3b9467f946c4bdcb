// Package metrics collects ledger telemetry on a per-instance Prometheus
// registry. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Collector provides ledger metrics collection.
type Collector struct {
	registry *prometheus.Registry

	// Ledger metrics
	entriesTotal     *prometheus.CounterVec
	entryLatency     *prometheus.HistogramVec
	conflictRetries  prometheus.Counter
	signatureRejects prometheus.Counter
	nonceReplays     prometheus.Counter

	// Settlement metrics
	bridgeTransitions *prometheus.CounterVec
	notifications     *prometheus.CounterVec

	// Economy metrics
	unitPrice         prometheus.Gauge
	circulatingSupply prometheus.Gauge
	reconcileRuns     *prometheus.CounterVec
	reconcileAnomaly  prometheus.Counter

	// HTTP metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a new ledger metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "value_ledger"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.entriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Ledger entries processed by the transfer engine",
		},
		[]string{"kind", "result"},
	)

	c.entryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entry_duration_seconds",
			Help:      "Time taken to apply a ledger entry, retries included",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"kind"},
	)

	c.conflictRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "conflict_retries_total",
		Help:      "Transactions retried after a serialization conflict",
	})

	c.signatureRejects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "security",
		Name:      "signature_rejections_total",
		Help:      "Entries rejected for an invalid or mismatched signature",
	})

	c.nonceReplays = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "security",
		Name:      "nonce_replays_total",
		Help:      "Entries rejected because their nonce was already claimed",
	})

	c.bridgeTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "transitions_total",
			Help:      "Bridge order state transitions",
		},
		[]string{"direction", "status"},
	)

	c.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "notifications_total",
			Help:      "Settlement notification delivery outcomes",
		},
		[]string{"result"},
	)

	c.unitPrice = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "economy",
		Name:      "unit_price_usd",
		Help:      "Last synced unit price",
	})

	c.circulatingSupply = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "economy",
		Name:      "circulating_supply",
		Help:      "Last synced circulating supply",
	})

	c.reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation replays by outcome",
		},
		[]string{"consistent"},
	)

	c.reconcileAnomaly = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "reconcile_anomalies_total",
		Help:      "Entries excluded from replay for a failed signature check",
	})

	c.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	c.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	c.registry.MustRegister(
		c.entriesTotal, c.entryLatency, c.conflictRetries, c.signatureRejects, c.nonceReplays,
		c.bridgeTransitions, c.notifications,
		c.unitPrice, c.circulatingSupply, c.reconcileRuns, c.reconcileAnomaly,
		c.httpRequests, c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordEntry records the outcome of applying one ledger entry.
func (c *Collector) RecordEntry(kind string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	result := "committed"
	if err != nil {
		result = "rejected"
	}
	c.entriesTotal.WithLabelValues(kind, result).Inc()
	c.entryLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordConflictRetry counts a serialization conflict retry.
func (c *Collector) RecordConflictRetry() {
	if c == nil {
		return
	}
	c.conflictRetries.Inc()
}

// RecordSignatureRejected counts a rejected signature.
func (c *Collector) RecordSignatureRejected() {
	if c == nil {
		return
	}
	c.signatureRejects.Inc()
}

// RecordNonceReplay counts a replayed nonce.
func (c *Collector) RecordNonceReplay() {
	if c == nil {
		return
	}
	c.nonceReplays.Inc()
}

// RecordBridgeTransition counts an order entering status.
func (c *Collector) RecordBridgeTransition(direction, status string) {
	if c == nil {
		return
	}
	c.bridgeTransitions.WithLabelValues(direction, status).Inc()
}

// RecordNotification counts a notification delivery outcome.
func (c *Collector) RecordNotification(delivered bool) {
	if c == nil {
		return
	}
	result := "failed"
	if delivered {
		result = "delivered"
	}
	c.notifications.WithLabelValues(result).Inc()
}

// RecordEconomy publishes the synced price and circulating supply.
func (c *Collector) RecordEconomy(unitPrice, circulating decimal.Decimal) {
	if c == nil {
		return
	}
	c.unitPrice.Set(unitPrice.InexactFloat64())
	c.circulatingSupply.Set(circulating.InexactFloat64())
}

// RecordReconcile records one reconciliation replay.
func (c *Collector) RecordReconcile(consistent bool, anomalies int) {
	if c == nil {
		return
	}
	c.reconcileRuns.WithLabelValues(strconv.FormatBool(consistent)).Inc()
	c.reconcileAnomaly.Add(float64(anomalies))
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	if path == "" {
		path = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
