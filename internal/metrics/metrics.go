// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector. Each instance registers on its own
// registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	rpcRequests      *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
	validations      *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	llmRequests      *prometheus.CounterVec
	transactionsSeen prometheus.Counter
}

// New creates and registers the collectors, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundflow",
			Name:      "rpc_requests_total",
			Help:      "RPC requests by procedure and connect code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fundflow",
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundflow",
			Name:      "validations_total",
			Help:      "Transaction validations by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundflow",
			Name:      "notifications_total",
			Help:      "Notification jobs by result (sent, failed, dropped).",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundflow",
			Name:      "refreshes_total",
			Help:      "Transaction list refreshes by result (applied, stale, failed).",
		}, []string{"result"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundflow",
			Name:      "llm_requests_total",
			Help:      "Natural-language parser calls by provider and result.",
		}, []string{"provider", "result"}),
		transactionsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fundflow",
			Name:      "transactions_created_total",
			Help:      "Transactions persisted.",
		}),
	}

	m.Registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.rpcRequests,
		m.rpcDuration,
		m.validations,
		m.notifications,
		m.refreshes,
		m.llmRequests,
		m.transactionsSeen,
	)
	return m
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, elapsed time.Duration) {
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// ValidationOutcome implements validator.Recorder.
func (m *Metrics) ValidationOutcome(outcome string) {
	m.validations.WithLabelValues(outcome).Inc()
}

// NotificationResult implements notify.Recorder.
func (m *Metrics) NotificationResult(result string) {
	m.notifications.WithLabelValues(result).Inc()
}

// RefreshResult implements ledger.Recorder.
func (m *Metrics) RefreshResult(result string) {
	m.refreshes.WithLabelValues(result).Inc()
}

// TransactionCreated implements ledger.Recorder.
func (m *Metrics) TransactionCreated() {
	m.transactionsSeen.Inc()
}

// LLMRequest implements llm.Recorder.
func (m *Metrics) LLMRequest(provider, result string) {
	m.llmRequests.WithLabelValues(provider, result).Inc()
}
