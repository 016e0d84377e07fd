package demo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"workpool/internal/events"
	"workpool/internal/logger"
	"workpool/internal/metrics"
	"workpool/internal/worker"
)

// Config はドライバーの設定
type Config struct {
	PoolName      string // ルートプール名
	Workers       int    // ルートプールのワーカー数
	Tasks         int    // 投入するタスク数
	NestedWorkers int    // ファンアウトするタスクのネストプールのワーカー数
	FanoutEvery   int    // i % FanoutEvery == 0 のタスクがファンアウトする
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		PoolName:      "root",
		Workers:       4,
		Tasks:         1000,
		NestedWorkers: 2,
		FanoutEvery:   2,
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Tasks < 0 {
		return fmt.Errorf("tasks must be non-negative, got %d", c.Tasks)
	}
	if c.NestedWorkers < 1 {
		return fmt.Errorf("nested_workers must be at least 1, got %d", c.NestedWorkers)
	}
	if c.FanoutEvery < 1 {
		return fmt.Errorf("fanout_every must be at least 1, got %d", c.FanoutEvery)
	}
	return nil
}

// Option はドライバーに観測先を設定する
type Option func(*Driver)

// WithLogger はロガーを設定する
func WithLogger(l *logger.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithEvents はイベントバスを設定する（ネストプールと共有）
func WithEvents(bus *events.Bus) Option {
	return func(d *Driver) { d.bus = bus }
}

// WithRecorder はメトリクスの記録先を設定する（ネストプールと共有）
func WithRecorder(rec metrics.Recorder) Option {
	return func(d *Driver) { d.rec = rec }
}

// Driver はルートプールにタスクを投入する
type Driver struct {
	config Config
	log    *logger.Logger
	bus    *events.Bus
	rec    metrics.Recorder

	submitted   atomic.Int64
	started     atomic.Int64
	finished    atomic.Int64
	subTasks    atomic.Int64
	nestedPools atomic.Int64
	running     atomic.Bool

	mu   sync.Mutex
	root *worker.Pool
	errs []error
}

// New は新しいドライバーを作成する
func New(config Config, opts ...Option) *Driver {
	d := &Driver{
		config: config,
		log:    logger.Default,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result はドライバーの実行結果
type Result struct {
	Submitted   int64         `json:"submitted"`
	Finished    int64         `json:"finished"`
	SubTasks    int64         `json:"sub_tasks"`
	NestedPools int64         `json:"nested_pools"`
	Cancelled   bool          `json:"cancelled"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Report は結果を人が読める形式で返す
func (r Result) Report() string {
	var sb strings.Builder
	sb.WriteString("====================================================\n")
	sb.WriteString("Run Result\n")
	sb.WriteString("====================================================\n")
	fmt.Fprintf(&sb, "Tasks submitted:   %d\n", r.Submitted)
	fmt.Fprintf(&sb, "Tasks finished:    %d\n", r.Finished)
	fmt.Fprintf(&sb, "Nested pools:      %d\n", r.NestedPools)
	fmt.Fprintf(&sb, "Sub-tasks run:     %d\n", r.SubTasks)
	fmt.Fprintf(&sb, "Cancelled:         %v\n", r.Cancelled)
	fmt.Fprintf(&sb, "Elapsed:           %v\n", r.Elapsed.Round(time.Millisecond))
	return sb.String()
}

// Run はルートプールを作成してタスクを投入し、ルートプールの Shutdown まで待つ
func (d *Driver) Run(ctx context.Context) (Result, error) {
	if err := d.config.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid driver config: %w", err)
	}
	if !d.running.CompareAndSwap(false, true) {
		return Result{}, errors.New("driver is already running")
	}
	defer d.running.Store(false)
	d.reset()

	start := time.Now()
	root, err := worker.NewPool(d.config.Workers, d.poolOptions(d.config.PoolName)...)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create root pool: %w", err)
	}
	d.mu.Lock()
	d.root = root
	d.mu.Unlock()

	cancelled := false
	for i := range d.config.Tasks {
		if ctx.Err() != nil {
			cancelled = true
			d.log.Warn(root.Name(), "cancelled after submitting %d of %d tasks", i, d.config.Tasks)
			break
		}
		if err := root.Submit(func() { d.task(root.Name(), i) }); err != nil {
			d.fail(fmt.Errorf("submit task %d: %w", i, err))
			break
		}
		d.submitted.Add(1)
	}

	if err := root.Shutdown(); err != nil {
		d.fail(fmt.Errorf("root pool shutdown: %w", err))
	}

	result := Result{
		Submitted:   d.submitted.Load(),
		Finished:    d.finished.Load(),
		SubTasks:    d.subTasks.Load(),
		NestedPools: d.nestedPools.Load(),
		Cancelled:   cancelled,
		Elapsed:     time.Since(start),
	}

	d.mu.Lock()
	err = errors.Join(d.errs...)
	d.mu.Unlock()

	return result, err
}

// task はルートプール上で実行される 1 タスク
func (d *Driver) task(scope string, i int) {
	d.started.Add(1)
	d.log.Info(scope, "Task %d started", i)

	fanout := 1
	if i%d.config.FanoutEvery == 0 {
		fanout = d.config.NestedWorkers
	}

	if fanout > 1 {
		d.fanOut(i, fanout)
	} else {
		d.log.Info(scope, "Still running")
	}

	d.log.Info(scope, "Task %d finished", i)
	d.finished.Add(1)
}

// fanOut はネストプールで n 個のサブタスクを実行し、終了を待つ
// 外側のワーカーはこの間ずっと占有される
func (d *Driver) fanOut(i, n int) {
	// ネストプールはすべて同じ名前（メトリクスのラベル）を使う
	name := d.config.PoolName + "/nested"
	sub, err := worker.NewPool(n, d.poolOptions(name)...)
	if err != nil {
		d.fail(fmt.Errorf("task %d: create nested pool: %w", i, err))
		return
	}
	d.nestedPools.Add(1)

	for j := range n {
		if err := sub.Submit(func() {
			d.log.Info(name, "Sub-task %d of Task %d started", j, i)
			d.subTasks.Add(1)
		}); err != nil {
			d.fail(fmt.Errorf("task %d: submit sub-task %d: %w", i, j, err))
			break
		}
	}

	if err := sub.Shutdown(); err != nil {
		d.fail(fmt.Errorf("task %d: nested pool shutdown: %w", i, err))
	}
}

func (d *Driver) poolOptions(name string) []worker.Option {
	opts := []worker.Option{
		worker.WithName(name),
		worker.WithLogger(d.log),
	}
	if d.bus != nil {
		opts = append(opts, worker.WithEvents(d.bus))
	}
	if d.rec != nil {
		opts = append(opts, worker.WithRecorder(d.rec))
	}
	return opts
}

func (d *Driver) reset() {
	d.submitted.Store(0)
	d.started.Store(0)
	d.finished.Store(0)
	d.subTasks.Store(0)
	d.nestedPools.Store(0)

	d.mu.Lock()
	d.errs = nil
	d.mu.Unlock()
}

func (d *Driver) fail(err error) {
	d.log.Error(d.config.PoolName, "%v", err)

	d.mu.Lock()
	d.errs = append(d.errs, err)
	d.mu.Unlock()
}

// Progress は実行中の進捗
type Progress struct {
	Running     bool          `json:"running"`
	Tasks       int           `json:"tasks"`
	Submitted   int64         `json:"submitted"`
	Started     int64         `json:"started"`
	Finished    int64         `json:"finished"`
	SubTasks    int64         `json:"sub_tasks"`
	NestedPools int64         `json:"nested_pools"`
	Errors      int           `json:"errors"`
	Root        *worker.Stats `json:"root,omitempty"`
}

// Progress は現在の進捗を返す
func (d *Driver) Progress() Progress {
	p := Progress{
		Running:     d.running.Load(),
		Tasks:       d.config.Tasks,
		Submitted:   d.submitted.Load(),
		Started:     d.started.Load(),
		Finished:    d.finished.Load(),
		SubTasks:    d.subTasks.Load(),
		NestedPools: d.nestedPools.Load(),
	}

	d.mu.Lock()
	p.Errors = len(d.errs)
	root := d.root
	d.mu.Unlock()

	if root != nil {
		stats := root.Stats()
		p.Root = &stats
	}
	return p
}

// Config はドライバーの設定を返す
func (d *Driver) Config() Config {
	return d.config
}
