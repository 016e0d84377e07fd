package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Recorder はプールから呼ばれる計測インターフェース
type Recorder interface {
	JobSubmitted(pool string)
	JobRejected(pool string)
	JobFinished(pool string, d time.Duration)
	JobPanicked(pool string, d time.Duration)
	WorkerExited(pool string)
	QueueDepth(pool string, depth int)
}

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99 計算に使うサンプル上限
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{MaxLatencySamples: 1000}
}

// Metrics はジョブのメトリクスを収集する
type Metrics struct {
	submitted     atomic.Uint64
	completed     atomic.Uint64
	panicked      atomic.Uint64
	rejected      atomic.Uint64
	workersExited atomic.Uint64
	totalNs       atomic.Uint64
	queueDepth    atomic.Int64

	mu                sync.RWMutex
	startTime         time.Time
	durations         []time.Duration
	maxLatencySamples int
}

var _ Recorder = (*Metrics)(nil)

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	if config.MaxLatencySamples <= 0 {
		config.MaxLatencySamples = DefaultConfig().MaxLatencySamples
	}
	return &Metrics{
		startTime:         time.Now(),
		durations:         make([]time.Duration, 0, config.MaxLatencySamples),
		maxLatencySamples: config.MaxLatencySamples,
	}
}

// JobSubmitted は投入されたジョブを記録する
func (m *Metrics) JobSubmitted(_ string) {
	m.submitted.Add(1)
}

// JobRejected は拒否された投入を記録する
func (m *Metrics) JobRejected(_ string) {
	m.rejected.Add(1)
}

// JobFinished は正常終了したジョブを記録する
func (m *Metrics) JobFinished(_ string, d time.Duration) {
	m.completed.Add(1)
	m.observe(d)
}

// JobPanicked はパニックしたジョブを記録する
func (m *Metrics) JobPanicked(_ string, d time.Duration) {
	m.panicked.Add(1)
	m.observe(d)
}

// WorkerExited は終了したワーカーを記録する
func (m *Metrics) WorkerExited(_ string) {
	m.workersExited.Add(1)
}

// QueueDepth は最新のキュー長を記録する
// 複数プールで共有した場合は最後に報告した値になる
func (m *Metrics) QueueDepth(_ string, depth int) {
	m.queueDepth.Store(int64(depth))
}

func (m *Metrics) observe(d time.Duration) {
	m.totalNs.Add(uint64(d.Nanoseconds()))

	m.mu.Lock()
	if len(m.durations) < m.maxLatencySamples {
		m.durations = append(m.durations, d)
	}
	m.mu.Unlock()
}

// Submitted は投入されたジョブ数を返す
func (m *Metrics) Submitted() uint64 {
	return m.submitted.Load()
}

// Completed は正常終了したジョブ数を返す
func (m *Metrics) Completed() uint64 {
	return m.completed.Load()
}

// Panicked はパニックしたジョブ数を返す
func (m *Metrics) Panicked() uint64 {
	return m.panicked.Load()
}

// Rejected は拒否された投入数を返す
func (m *Metrics) Rejected() uint64 {
	return m.rejected.Load()
}

// AverageDuration は平均実行時間を返す
func (m *Metrics) AverageDuration() time.Duration {
	n := m.completed.Load() + m.panicked.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.totalNs.Load() / n)
}

// P99Duration は P99 実行時間を返す（サンプルベース）
func (m *Metrics) P99Duration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.durations))
	copy(sorted, m.durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Throughput は開始からの平均完了数/秒を返す
func (m *Metrics) Throughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.completed.Load()) / elapsed
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	Submitted       uint64        `json:"submitted"`
	Completed       uint64        `json:"completed"`
	Panicked        uint64        `json:"panicked"`
	Rejected        uint64        `json:"rejected"`
	WorkersExited   uint64        `json:"workers_exited"`
	QueueDepth      int64         `json:"queue_depth"`
	Throughput      float64       `json:"throughput"`
	AverageDuration time.Duration `json:"average_duration_ns"`
	P99Duration     time.Duration `json:"p99_duration_ns"`
	Elapsed         time.Duration `json:"elapsed_ns"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Submitted:       m.Submitted(),
		Completed:       m.Completed(),
		Panicked:        m.Panicked(),
		Rejected:        m.Rejected(),
		WorkersExited:   m.workersExited.Load(),
		QueueDepth:      m.queueDepth.Load(),
		Throughput:      m.Throughput(),
		AverageDuration: m.AverageDuration(),
		P99Duration:     m.P99Duration(),
		Elapsed:         time.Since(m.startTime),
	}
}

// multi は複数の Recorder へ同じ値を配る
type multi []Recorder

// Multi は recs すべてに記録する Recorder を返す。nil は無視する
func Multi(recs ...Recorder) Recorder {
	out := make(multi, 0, len(recs))
	for _, r := range recs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multi) JobSubmitted(pool string) {
	for _, r := range m {
		r.JobSubmitted(pool)
	}
}

func (m multi) JobRejected(pool string) {
	for _, r := range m {
		r.JobRejected(pool)
	}
}

func (m multi) JobFinished(pool string, d time.Duration) {
	for _, r := range m {
		r.JobFinished(pool, d)
	}
}

func (m multi) JobPanicked(pool string, d time.Duration) {
	for _, r := range m {
		r.JobPanicked(pool, d)
	}
}

func (m multi) WorkerExited(pool string) {
	for _, r := range m {
		r.WorkerExited(pool)
	}
}

func (m multi) QueueDepth(pool string, depth int) {
	for _, r := range m {
		r.QueueDepth(pool, depth)
	}
}

// Nop は何も記録しない Recorder
type Nop struct{}

func (Nop) JobSubmitted(string)               {}
func (Nop) JobRejected(string)                {}
func (Nop) JobFinished(string, time.Duration) {}
func (Nop) JobPanicked(string, time.Duration) {}
func (Nop) WorkerExited(string)               {}
func (Nop) QueueDepth(string, int)            {}
