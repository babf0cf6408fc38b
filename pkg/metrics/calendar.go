package metrics

import "github.com/prometheus/client_golang/prometheus"

// MirrorMetrics counts calendar mirror calls.
type MirrorMetrics struct {
	calls   *prometheus.CounterVec
	retries *prometheus.CounterVec
}

// NewMirrorMetrics registers the calendar mirror metrics on the provided registerer.
func NewMirrorMetrics(reg prometheus.Registerer) *MirrorMetrics {
	if reg == nil {
		return &MirrorMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_mirror_calls_total",
		Help: "Calendar mirror calls by operation and final outcome.",
	}, []string{"op", "outcome"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_mirror_retries_total",
		Help: "Calendar mirror retry attempts by operation.",
	}, []string{"op"})
	reg.MustRegister(calls, retries)
	return &MirrorMetrics{calls: calls, retries: retries}
}

// IncCall records the final outcome of a mirror call.
func (m *MirrorMetrics) IncCall(op string, ok bool) {
	if m == nil || m.calls == nil {
		return
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeError
	}
	m.calls.WithLabelValues(normalizeLabel(op), outcome).Inc()
}

// IncRetry records one retry attempt.
func (m *MirrorMetrics) IncRetry(op string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(op)).Inc()
}
