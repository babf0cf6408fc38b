package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLedgerMetricsCountsOperationsAndUnits(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.Observe("reserve", OutcomeOK, 10*time.Millisecond)
	m.Observe("reserve", OutcomeInsufficientStock, 5*time.Millisecond)
	m.AddUnits(-3)
	m.AddUnits(2)
	m.AddUnits(0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ledger_operations_total", "outcome", OutcomeInsufficientStock); err != nil {
		t.Fatalf("fetch operations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 insufficient_stock, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "ledger_units_moved_total", "direction", "out"); err != nil {
		t.Fatalf("fetch units out: %v", err)
	} else if got != 3 {
		t.Fatalf("expected 3 units out, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "ledger_units_moved_total", "direction", "in"); err != nil {
		t.Fatalf("fetch units in: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 units in, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "ledger_operation_duration_seconds", "op", "reserve"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var ledger *LedgerMetrics
	ledger.Observe("reserve", OutcomeOK, time.Second)
	ledger.AddUnits(4)

	unregistered := NewMirrorMetrics(nil)
	unregistered.IncCall("create", true)
	unregistered.IncRetry("create")

	var httpMetrics *HTTPMetrics
	httpMetrics.Observe("GET", "/api/v1/sites", 200, time.Millisecond)
}

func TestMirrorAndHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mirror := NewMirrorMetrics(reg)
	httpMetrics := NewHTTPMetrics(reg)

	mirror.IncCall("create", false)
	mirror.IncRetry("create")
	mirror.IncRetry("create")
	httpMetrics.Observe("POST", "/api/v1/sites", 409, 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "calendar_mirror_calls_total", "outcome", OutcomeError); err != nil {
		t.Fatalf("fetch mirror calls: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 failed call, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "calendar_mirror_retries_total", "op", "create"); err != nil {
		t.Fatalf("fetch retries: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 retries, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "status", "409"); err != nil {
		t.Fatalf("fetch http requests: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 request, got %f", got)
	}
}
