package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Intake metrics
	TransactionsSubmitted *prometheus.CounterVec
	IdempotencyHits       prometheus.Counter

	// Settlement metrics
	SettlementsTotal    *prometheus.CounterVec
	SettlementAttempts  prometheus.Histogram
	RetriesScheduled    *prometheus.CounterVec
	DeadLetters         *prometheus.CounterVec
	ProviderCharges     *prometheus.CounterVec
	ProviderChargeTime  *prometheus.HistogramVec

	// Worker metrics
	WorkerBatchSize    prometheus.Histogram
	WorkerMessageTime  *prometheus.HistogramVec
	WorkerPollErrors   prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		TransactionsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_submitted_total",
				Help:      "Total number of intake submissions by result",
			},
			[]string{"result"},
		),
		IdempotencyHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "idempotency_hits_total",
				Help:      "Total number of submissions answered from the idempotency index",
			},
		),
		SettlementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settlements_total",
				Help:      "Total number of transactions reaching a terminal state",
			},
			[]string{"status"},
		),
		SettlementAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "settlement_attempts",
				Help:      "Provider attempts needed to reach a terminal state",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
		),
		RetriesScheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_scheduled_total",
				Help:      "Total number of settlement retries scheduled",
			},
			[]string{"provider"},
		),
		DeadLetters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dead_letters_total",
				Help:      "Total number of jobs routed to the dead-letter queue",
			},
			[]string{"reason"},
		),
		ProviderCharges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_charges_total",
				Help:      "Total number of provider charge attempts",
			},
			[]string{"provider", "result"},
		),
		ProviderChargeTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_charge_duration_seconds",
				Help:      "Provider charge call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		),
		WorkerBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_batch_size",
				Help:      "Messages leased per poll",
				Buckets:   []float64{0, 1, 2, 3, 4, 5},
			},
		),
		WorkerMessageTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_message_duration_seconds",
				Help:      "Per-message handling duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		WorkerPollErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_poll_errors_total",
				Help:      "Total number of failed queue polls",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(
		m.TransactionsSubmitted,
		m.IdempotencyHits,
		m.SettlementsTotal,
		m.SettlementAttempts,
		m.RetriesScheduled,
		m.DeadLetters,
		m.ProviderCharges,
		m.ProviderChargeTime,
		m.WorkerBatchSize,
		m.WorkerMessageTime,
		m.WorkerPollErrors,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}
