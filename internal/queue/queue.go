package queue

import (
	"errors"
	"sync"

	"workpool/internal/job"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // これ未満の容量では縮小しない
	compactShrinkFactor = 4  // len < cap/4 で縮小する
)

// ErrClosed はクローズ済みキューへの Push で返される
var ErrClosed = errors.New("queue: closed")

// Queue は上限なしの MPMC FIFO キュー
type Queue struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  []job.Job
	closed bool
}

// New は空のキューを作成する
func New() *Queue {
	q := &Queue{
		items: make([]job.Job, 0, defaultQueueCap),
	}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Push はジョブを末尾に追加する。ブロックしない
func (q *Queue) Push(j job.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, j)
	q.ready.Signal()
	return nil
}

// Pop は先頭のジョブを取り出す。空の間はブロックする
// クローズ済みかつ空の場合は false を返す
func (q *Queue) Pop() (job.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			return job.Job{}, false
		}
		q.ready.Wait()
	}

	j := q.items[0]
	// 取り出した要素への参照を切る
	q.items[0] = job.Job{}
	q.items = q.items[1:]
	q.maybeCompactLocked()

	return j, true
}

// TryPop はブロックせずに先頭のジョブを取り出す
func (q *Queue) TryPop() (job.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return job.Job{}, false
	}
	j := q.items[0]
	q.items[0] = job.Job{}
	q.items = q.items[1:]
	q.maybeCompactLocked()
	return j, true
}

func (q *Queue) maybeCompactLocked() {
	n := len(q.items)
	c := cap(q.items)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.items = make([]job.Job, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)
	items := make([]job.Job, n, newCap)
	copy(items, q.items)
	q.items = items
}

// Close は以降の Push を拒否し、待機中の Pop をすべて起こす
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.ready.Broadcast()
}

// Closed はクローズ済みかどうかを返す
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len は現在のキュー長を返す
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
