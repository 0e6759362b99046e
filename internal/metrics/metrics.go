package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "neighbor_storage"

// Metrics holds the application collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	ledgerEntries *prometheus.CounterVec
	ledgerAmount  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	mismatches    prometheus.Gauge
	escrowHeld    prometheus.Gauge
	activeRentals prometheus.Gauge
	jobRuns       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rental_transitions_total",
			Help:      "Rental status transition attempts by outcome.",
		}, []string{"from", "to", "result"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Ledger transactions written, by type.",
		}, []string{"type"}),
		ledgerAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_amount_total",
			Help:      "Absolute amount moved through the ledger, by type.",
		}, []string{"type"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and result.",
		}, []string{"channel", "result"}),
		mismatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_reconciliation_mismatches",
			Help:      "Users whose balance disagreed with their transaction log at the last reconciliation.",
		}),
		escrowHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "escrow_held_amount",
			Help:      "Fee and deposit currently held for paid and renting rentals.",
		}),
		activeRentals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rentals",
			Help:      "Rentals in requested, paid or renting status.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job executions by result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(
		m.transitions, m.ledgerEntries, m.ledgerAmount, m.httpDuration, m.notifications,
		m.mismatches, m.escrowHeld, m.activeRentals, m.jobRuns,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveTransition(from, to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, result).Inc()
}

func (m *Metrics) ObserveLedgerEntry(txType string, amount int64) {
	if m == nil {
		return
	}
	if amount < 0 {
		amount = -amount
	}
	m.ledgerEntries.WithLabelValues(txType).Inc()
	m.ledgerAmount.WithLabelValues(txType).Add(float64(amount))
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) SetReconciliationMismatches(n int) {
	if m == nil {
		return
	}
	m.mismatches.Set(float64(n))
}

func (m *Metrics) SetEscrow(held, active int64) {
	if m == nil {
		return
	}
	m.escrowHeld.Set(float64(held))
	m.activeRentals.Set(float64(active))
}

func (m *Metrics) ObserveJob(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}
