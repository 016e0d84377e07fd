package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExporterRecords(t *testing.T) {
	reg := prom.NewRegistry()
	exp, err := NewExporter("test", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}

	exp.JobSubmitted("root")
	exp.JobSubmitted("root")
	exp.JobSubmitted("nested")
	exp.JobRejected("")
	exp.JobFinished("root", 5*time.Millisecond)
	exp.JobPanicked("nested", time.Millisecond)
	exp.WorkerExited("nested")
	exp.QueueDepth("root", 12)

	if got := testutil.ToFloat64(exp.jobsSubmitted.WithLabelValues("root")); got != 2 {
		t.Errorf("expected 2 root submissions, got %v", got)
	}
	if got := testutil.ToFloat64(exp.jobsRejected.WithLabelValues("unknown")); got != 1 {
		t.Errorf("expected empty pool name to map to unknown, got %v", got)
	}
	if got := testutil.ToFloat64(exp.jobsPanicked.WithLabelValues("nested")); got != 1 {
		t.Errorf("expected 1 panic, got %v", got)
	}
	if got := testutil.ToFloat64(exp.workersExited.WithLabelValues("nested")); got != 1 {
		t.Errorf("expected 1 worker exit, got %v", got)
	}
	if got := testutil.ToFloat64(exp.queueDepth.WithLabelValues("root")); got != 12 {
		t.Errorf("expected queue depth 12, got %v", got)
	}
	if n := testutil.CollectAndCount(exp.jobDuration); n != 2 {
		t.Errorf("expected 2 duration series, got %d", n)
	}
}

func TestExporterSharedRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewExporter("test", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first exporter: %v", err)
	}
	second, err := NewExporter("test", reg, ExporterOptions{DurationBuckets: []float64{0.1, 1}})
	if err != nil {
		t.Fatalf("second exporter on the same registry: %v", err)
	}

	first.JobSubmitted("root")
	second.JobSubmitted("root")

	if got := testutil.ToFloat64(first.jobsSubmitted.WithLabelValues("root")); got != 2 {
		t.Errorf("expected collectors to be shared, got %v", got)
	}
}

func TestNilExporter(t *testing.T) {
	var exp *Exporter
	// Must not panic
	exp.JobSubmitted("root")
	exp.JobFinished("root", time.Millisecond)
	exp.QueueDepth("root", 1)
}
