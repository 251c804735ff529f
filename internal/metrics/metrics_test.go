package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}

	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}

	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.StorageOperationsTotal == nil {
		t.Error("StorageOperationsTotal is nil")
	}
	if m.StorageOrphansTotal == nil {
		t.Error("StorageOrphansTotal is nil")
	}
	if m.MirrorOperationsTotal == nil {
		t.Error("MirrorOperationsTotal is nil")
	}
	if m.ApplicationsSubmittedTotal == nil {
		t.Error("ApplicationsSubmittedTotal is nil")
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("Gather() returned no metric families")
	}
}

func TestGlobalMetrics(t *testing.T) {
	if Global() != nil {
		t.Error("Global() should be nil before SetGlobal")
	}

	m := New()
	SetGlobal(m)

	if Global() != m {
		t.Error("Global() did not return the set metrics")
	}

	SetGlobal(nil)
}

func TestIncStorageOp(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncStorageOp("copy", nil)
	IncStorageOp("copy", nil)
	IncStorageOp("copy", errors.New("boom"))

	ok, err := m.StorageOperationsTotal.GetMetricWithLabelValues("copy", "ok")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	if v := counterValue(t, ok); v != 2 {
		t.Errorf("Expected ok counter 2, got %f", v)
	}

	failed, err := m.StorageOperationsTotal.GetMetricWithLabelValues("copy", "error")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	if v := counterValue(t, failed); v != 1 {
		t.Errorf("Expected error counter 1, got %f", v)
	}
}

func TestIncStorageOrphan(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncStorageOrphan()

	if v := counterValue(t, m.StorageOrphansTotal); v != 1 {
		t.Errorf("Expected orphan counter 1, got %f", v)
	}
}

func TestIncApplicationSubmitted(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncApplicationSubmitted("grant")
	IncApplicationSubmitted("grant")
	IncApplicationSubmitted("auditor")

	counter, err := m.ApplicationsSubmittedTotal.GetMetricWithLabelValues("grant")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	if v := counterValue(t, counter); v != 2 {
		t.Errorf("Expected counter value 2, got %f", v)
	}
}

func TestIncRateLimitExceeded(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncRateLimitExceeded("hour")
	IncRateLimitExceeded("day")
	IncRateLimitExceeded("hour")

	counter, err := m.RateLimitExceededTotal.GetMetricWithLabelValues("hour")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	if v := counterValue(t, counter); v != 2 {
		t.Errorf("Expected rate limit exceeded 2, got %f", v)
	}
}

func TestGlobalNilSafe(t *testing.T) {
	SetGlobal(nil)

	// These should not panic when global is nil
	ObserveQuery("audits", 0.1)
	IncStorageOp("copy", nil)
	IncStorageOrphan()
	IncMirrorOp("write", nil)
	IncApplicationSubmitted("audit")
	IncRateLimitExceeded("hour")
	IncNotification(nil)
}
