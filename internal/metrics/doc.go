// Package metrics collects job statistics for worker pools.
//
// Pools report through the Recorder interface. Two implementations are
// provided and can be combined with Multi:
//
//   - Metrics keeps in-process atomic counters and a bounded latency sample,
//     suitable for the status API and the end-of-run report.
//   - Exporter publishes the same signals as Prometheus collectors labelled
//     by pool name.
//
// # Basic Usage
//
//	m := metrics.New()
//	exp, err := metrics.NewExporter("workpool", prometheus.NewRegistry(), metrics.ExporterOptions{})
//	rec := metrics.Multi(m, exp)
//
//	pool, _ := worker.NewPool(4, worker.WithRecorder(rec))
//
//	snap := m.Snapshot()
//	fmt.Printf("completed=%d p99=%v\n", snap.Completed, snap.P99Duration)
//
// # Thread Safety
//
// All recorders are safe for concurrent use by every worker of every pool.
package metrics
