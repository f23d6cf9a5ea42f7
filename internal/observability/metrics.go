package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for PayLedger.
type Metrics struct {
	// --- Engine processing ---
	EventsApplied  *prometheus.CounterVec
	EventsRejected *prometheus.CounterVec
	EventDuration  *prometheus.HistogramVec
	EngineSequence prometheus.Gauge

	// --- Ledger state ---
	AccountsKnown       prometheus.Gauge
	AccountsLocked      prometheus.Gauge
	TransactionsTracked prometheus.Gauge

	// --- Channel & backpressure ---
	ChannelSize        *prometheus.GaugeVec
	ChannelCapacity    *prometheus.GaugeVec
	ChannelUtilization *prometheus.GaugeVec
	OutcomeDrops       prometheus.Counter

	// --- Delivery dedup ---
	DeliveryDuplicates *prometheus.CounterVec
	DedupLRUSize       prometheus.Gauge
	DedupLRUEvictions  prometheus.Gauge

	// --- Persistence ---
	PersistEventsWritten prometheus.Counter
	PersistBatchSize     prometheus.Histogram
	PersistBatchDur      prometheus.Histogram
	PersistErrors        *prometheus.CounterVec
	PersistRetry         prometheus.Counter
	PersistLastSequence  prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		// Engine processing
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pay_engine_events_applied_total",
			Help: "Events successfully applied by the engine",
		}, []string{"event_type"}),

		EventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pay_engine_events_rejected_total",
			Help: "Events rejected (validation, dedup)",
		}, []string{"event_type", "reason"}),

		EventDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pay_engine_event_apply_duration_seconds",
			Help:    "Time to apply a single event",
			Buckets: latencyBuckets,
		}, []string{"event_type"}),

		EngineSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pay_engine_sequence",
			Help: "Current engine sequence number",
		}),

		// Ledger state
		AccountsKnown: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pay_accounts_known",
			Help: "Distinct client accounts observed",
		}),

		AccountsLocked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pay_accounts_locked",
			Help: "Accounts locked by chargeback",
		}),

		TransactionsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pay_transactions_tracked",
			Help: "Transaction records retained for dispute lookup",
		}),

		// Channel & backpressure
		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pay_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pay_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pay_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		OutcomeDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pay_outcome_drops_total",
			Help: "Outcome records dropped due to full observer channel",
		}),

		// Delivery dedup
		DeliveryDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pay_delivery_duplicates_total",
			Help: "Redelivered messages absorbed by the delivery guard",
		}, []string{"event_type"}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pay_dedup_lru_size",
			Help: "Current LRU occupancy",
		}),

		DedupLRUEvictions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pay_dedup_lru_evictions",
			Help: "Total LRU evictions since start",
		}),

		// Persistence
		PersistEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pay_persist_events_written_total",
			Help: "Outcome rows written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pay_persist_batch_size",
			Help:    "Rows per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pay_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pay_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pay_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pay_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		// Query API
		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pay_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pay_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
