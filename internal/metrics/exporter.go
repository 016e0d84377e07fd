package metrics

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// Exporter publishes pool signals as Prometheus collectors.
type Exporter struct {
	jobsSubmitted *prom.CounterVec
	jobsRejected  *prom.CounterVec
	jobsPanicked  *prom.CounterVec
	workersExited *prom.CounterVec
	jobDuration   *prom.HistogramVec
	queueDepth    *prom.GaugeVec
}

var _ Recorder = (*Exporter)(nil)

// NewExporter creates and registers the pool collectors. Collectors that are
// already registered under the same name are reused, so several exporters
// may share one registry.
func NewExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*Exporter, error) {
	if namespace == "" {
		namespace = "workpool"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	submitted := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_submitted_total",
		Help:      "Total number of jobs accepted by a pool.",
	}, []string{"pool"})
	rejected := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_rejected_total",
		Help:      "Total number of submissions rejected because the pool was closed.",
	}, []string{"pool"})
	panicked := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_panicked_total",
		Help:      "Total number of jobs that panicked and took their worker down.",
	}, []string{"pool"})
	exited := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "workers_exited_total",
		Help:      "Total number of worker goroutines that left their loop.",
	}, []string{"pool"})
	duration := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Job execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"pool", "outcome"})
	depth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Jobs waiting in the pool queue.",
	}, []string{"pool"})

	var err error
	if submitted, err = registerCollector(reg, submitted); err != nil {
		return nil, err
	}
	if rejected, err = registerCollector(reg, rejected); err != nil {
		return nil, err
	}
	if panicked, err = registerCollector(reg, panicked); err != nil {
		return nil, err
	}
	if exited, err = registerCollector(reg, exited); err != nil {
		return nil, err
	}
	if duration, err = registerCollector(reg, duration); err != nil {
		return nil, err
	}
	if depth, err = registerCollector(reg, depth); err != nil {
		return nil, err
	}

	return &Exporter{
		jobsSubmitted: submitted,
		jobsRejected:  rejected,
		jobsPanicked:  panicked,
		workersExited: exited,
		jobDuration:   duration,
		queueDepth:    depth,
	}, nil
}

// JobSubmitted records an accepted submission.
func (e *Exporter) JobSubmitted(pool string) {
	if e == nil {
		return
	}
	e.jobsSubmitted.WithLabelValues(poolLabel(pool)).Inc()
}

// JobRejected records a submission on a closed pool.
func (e *Exporter) JobRejected(pool string) {
	if e == nil {
		return
	}
	e.jobsRejected.WithLabelValues(poolLabel(pool)).Inc()
}

// JobFinished records a job that returned normally.
func (e *Exporter) JobFinished(pool string, d time.Duration) {
	if e == nil {
		return
	}
	e.jobDuration.WithLabelValues(poolLabel(pool), "ok").Observe(d.Seconds())
}

// JobPanicked records a job that panicked.
func (e *Exporter) JobPanicked(pool string, d time.Duration) {
	if e == nil {
		return
	}
	e.jobsPanicked.WithLabelValues(poolLabel(pool)).Inc()
	e.jobDuration.WithLabelValues(poolLabel(pool), "panic").Observe(d.Seconds())
}

// WorkerExited records a worker leaving its loop.
func (e *Exporter) WorkerExited(pool string) {
	if e == nil {
		return
	}
	e.workersExited.WithLabelValues(poolLabel(pool)).Inc()
}

// QueueDepth records the current queue depth.
func (e *Exporter) QueueDepth(pool string, depth int) {
	if e == nil {
		return
	}
	e.queueDepth.WithLabelValues(poolLabel(pool)).Set(float64(depth))
}

func poolLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
