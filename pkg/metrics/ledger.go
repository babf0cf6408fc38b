package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ledger outcomes.
const (
	OutcomeOK                = "ok"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeNotFound          = "not_found"
	OutcomeError             = "error"
)

// LedgerMetrics records inventory ledger activity.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	units      *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Inventory ledger operations by kind and outcome.",
	}, []string{"op", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_duration_seconds",
		Help:    "Duration of inventory ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_units_moved_total",
		Help: "Absolute stock units moved by the ledger, by direction.",
	}, []string{"direction"})
	reg.MustRegister(operations, duration, units)
	return &LedgerMetrics{
		operations: operations,
		duration:   duration,
		units:      units,
	}
}

// Observe records one finished ledger operation.
func (m *LedgerMetrics) Observe(op, outcome string, duration time.Duration) {
	if m == nil || m.operations == nil {
		return
	}
	op = normalizeLabel(op)
	m.operations.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
}

// AddUnits records a stock delta; negative deltas count as "out".
func (m *LedgerMetrics) AddUnits(delta int) {
	if m == nil || m.units == nil || delta == 0 {
		return
	}
	if delta < 0 {
		m.units.WithLabelValues("out").Add(float64(-delta))
		return
	}
	m.units.WithLabelValues("in").Add(float64(delta))
}
