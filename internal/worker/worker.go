package worker

import (
	"runtime/debug"
	"time"

	"workpool/internal/events"
	"workpool/internal/job"
)

// Worker はキューからジョブを取り出して実行する 1 本のゴルーチン
type Worker struct {
	id   int
	done chan struct{}
	err  error // done をクローズする前に書き込む
}

func newWorker(id int) *Worker {
	return &Worker{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID はワーカーの序数を返す（表示用）
func (w *Worker) ID() int {
	return w.id
}

// Done はワーカー終了時にクローズされるチャネルを返す
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Join はワーカーの終了を待ち、異常終了ならそのエラーを返す
func (w *Worker) Join() error {
	<-w.done
	return w.err
}

// run はワーカーのメインループ
func (w *Worker) run(p *Pool) {
	defer close(w.done)
	defer p.workerExited(w)

	p.log.Debug(p.name, "worker %d started", w.id)

	for {
		j, ok := p.queue.Pop()
		if !ok {
			return
		}
		p.rec.QueueDepth(p.name, p.queue.Len())

		if j.IsTerminate() {
			return
		}
		if err := p.execute(w.id, j); err != nil {
			w.err = err
			return
		}
	}
}

// execute はジョブを 1 回実行する
// パニックは回収してワーカーの終了理由として返す
func (p *Pool) execute(workerID int, j job.Job) (err error) {
	start := time.Now()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = &WorkerPanicError{
			Pool:     p.name,
			WorkerID: workerID,
			Value:    r,
			Stack:    debug.Stack(),
		}
		p.rec.JobPanicked(p.name, time.Since(start))
		p.log.Warn(p.name, "worker %d: job panicked, worker exits: %v", workerID, r)
		p.bus.Publish(events.NewJobPanickedEvent(p.id, p.name, workerID, err))
	}()

	j.Run()
	p.rec.JobFinished(p.name, time.Since(start))
	return nil
}
