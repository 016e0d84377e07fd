package worker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"workpool/internal/events"
	"workpool/internal/job"
	"workpool/internal/logger"
	"workpool/internal/metrics"
	"workpool/internal/queue"

	"github.com/google/uuid"
)

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	Name       string           // ログとメトリクスのラベル（空なら pool-<id 先頭 8 桁>）
	NumWorkers int              // ワーカー数（1 以上）
	Logger     *logger.Logger   // nil なら logger.Default
	Events     *events.Bus      // nil ならイベントを発行しない
	Recorder   metrics.Recorder // nil なら計測しない
}

// Option は PoolConfig を変更する
type Option func(*PoolConfig)

// WithName はプール名を設定する
func WithName(name string) Option {
	return func(c *PoolConfig) { c.Name = name }
}

// WithLogger はロガーを設定する
func WithLogger(l *logger.Logger) Option {
	return func(c *PoolConfig) { c.Logger = l }
}

// WithEvents はイベントバスを設定する
func WithEvents(bus *events.Bus) Option {
	return func(c *PoolConfig) { c.Events = bus }
}

// WithRecorder はメトリクスの記録先を設定する
func WithRecorder(rec metrics.Recorder) Option {
	return func(c *PoolConfig) { c.Recorder = rec }
}

// Pool は固定数のワーカーと共有キューを所有する
type Pool struct {
	id      string
	name    string
	queue   *queue.Queue
	workers []*Worker
	alive   atomic.Int32

	log *logger.Logger
	bus *events.Bus
	rec metrics.Recorder

	// mu は Submit と Shutdown の順序を保証する
	// Shutdown がセンチネルを積んだ後に Task が積まれることはない
	mu             sync.RWMutex
	closed         bool
	terminatesSent int
	stopped        chan struct{}
	stopErr        error
}

// NewPool は n 個のワーカーを持つプールを作成する
func NewPool(n int, opts ...Option) (*Pool, error) {
	config := PoolConfig{NumWorkers: n}
	for _, opt := range opts {
		opt(&config)
	}
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig は設定を指定してプールを作成する
// 全ワーカーのゴルーチンを起動してから返る
func NewPoolWithConfig(config PoolConfig) (*Pool, error) {
	if config.NumWorkers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, config.NumWorkers)
	}

	id := uuid.NewString()
	name := config.Name
	if name == "" {
		name = "pool-" + id[:8]
	}
	log := config.Logger
	if log == nil {
		log = logger.Default
	}
	rec := config.Recorder
	if rec == nil {
		rec = metrics.Nop{}
	}

	p := &Pool{
		id:      id,
		name:    name,
		queue:   queue.New(),
		workers: make([]*Worker, config.NumWorkers),
		log:     log,
		bus:     config.Events,
		rec:     rec,
		stopped: make(chan struct{}),
	}

	p.alive.Store(int32(config.NumWorkers))
	for i := range config.NumWorkers {
		w := newWorker(i)
		p.workers[i] = w
		go w.run(p)
	}

	p.log.Info(p.name, "WorkerPool started with %d workers", config.NumWorkers)
	p.bus.Publish(events.NewPoolStartedEvent(p.id, p.name, config.NumWorkers))

	return p, nil
}

// Submit はジョブをキューに積む。実行の完了は待たない
func (p *Pool) Submit(work func()) error {
	if work == nil {
		return ErrNilJob
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.rec.JobRejected(p.name)
		p.log.Warn(p.name, "Submit rejected: pool is closed")
		p.bus.Publish(events.NewSubmitRejectedEvent(p.id, p.name, ErrPoolClosed))
		return ErrPoolClosed
	}
	if err := p.queue.Push(job.New(work)); err != nil {
		return fmt.Errorf("worker: enqueue: %w", err)
	}

	p.rec.JobSubmitted(p.name)
	p.rec.QueueDepth(p.name, p.queue.Len())
	return nil
}

// MustSubmit は Submit が失敗した場合にパニックする
func (p *Pool) MustSubmit(work func()) {
	if err := p.Submit(work); err != nil {
		panic(err)
	}
}

// Shutdown はワーカーごとに Terminate を 1 つ積み、全ワーカーの終了を待つ
// パニックで終了したワーカーのエラーをまとめて返す
// 2 回目以降の呼び出しは最初の Shutdown の完了を待って nil を返す
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.stopped
		return nil
	}
	p.closed = true
	for range p.workers {
		if err := p.queue.Push(job.Terminate()); err != nil {
			// キューを閉じるのは Shutdown だけなので起こらない
			p.log.Error(p.name, "failed to send terminate: %v", err)
			break
		}
		p.terminatesSent++
	}
	p.mu.Unlock()

	var errs []error
	for _, w := range p.workers {
		if err := w.Join(); err != nil {
			errs = append(errs, err)
		}
	}

	p.queue.Close()
	discarded := 0
	for {
		if _, ok := p.queue.TryPop(); !ok {
			break
		}
		discarded++
	}
	if discarded > 0 {
		p.log.Warn(p.name, "discarded %d unclaimed jobs", discarded)
	}
	p.rec.QueueDepth(p.name, 0)

	p.stopErr = errors.Join(errs...)
	if p.stopErr != nil {
		p.log.Warn(p.name, "WorkerPool stopped with %d failed workers", len(errs))
	} else {
		p.log.Info(p.name, "WorkerPool stopped")
	}
	p.bus.Publish(events.NewPoolStoppedEvent(p.id, p.name, p.stopErr))
	close(p.stopped)

	return p.stopErr
}

// Close は Shutdown の別名（io.Closer）
func (p *Pool) Close() error {
	return p.Shutdown()
}

// Stopped は Shutdown 完了時にクローズされるチャネルを返す
func (p *Pool) Stopped() <-chan struct{} {
	return p.stopped
}

// Err は Shutdown が返したエラーを返す。完了前は nil
func (p *Pool) Err() error {
	select {
	case <-p.stopped:
		return p.stopErr
	default:
		return nil
	}
}

func (p *Pool) workerExited(w *Worker) {
	p.alive.Add(-1)
	p.rec.WorkerExited(p.name)
	p.log.Debug(p.name, "worker %d exited", w.id)
	p.bus.Publish(events.NewWorkerExitedEvent(p.id, p.name, w.id, w.err))
}

// ID はプールの UUID を返す
func (p *Pool) ID() string {
	return p.id
}

// Name はプール名を返す
func (p *Pool) Name() string {
	return p.name
}

// NumWorkers は所有するワーカー数を返す。生成後に変わらない
func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

// AliveWorkers はループ中のワーカー数を返す
func (p *Pool) AliveWorkers() int {
	return int(p.alive.Load())
}

// QueueSize は現在のキューサイズを返す
func (p *Pool) QueueSize() int {
	return p.queue.Len()
}

// Stats はプールの状態
type Stats struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Workers        int    `json:"workers"`
	AliveWorkers   int    `json:"alive_workers"`
	QueueSize      int    `json:"queue_size"`
	TerminatesSent int    `json:"terminates_sent"`
	Closed         bool   `json:"closed"`
}

// Stats は現在の状態を返す
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	closed, sent := p.closed, p.terminatesSent
	p.mu.RUnlock()

	return Stats{
		ID:             p.id,
		Name:           p.name,
		Workers:        len(p.workers),
		AliveWorkers:   p.AliveWorkers(),
		QueueSize:      p.queue.Len(),
		TerminatesSent: sent,
		Closed:         closed,
	}
}
