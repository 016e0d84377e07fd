package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"workpool/internal/job"
)

// label はジョブを識別するために実行結果をスライスへ記録する
func label(out *[]int, mu *sync.Mutex, n int) job.Job {
	return job.New(func() {
		mu.Lock()
		*out = append(*out, n)
		mu.Unlock()
	})
}

func TestQueueFIFO(t *testing.T) {
	q := New()
	var (
		mu  sync.Mutex
		got []int
	)

	for i := range 100 {
		if err := q.Push(label(&got, &mu, i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if q.Len() != 100 {
		t.Fatalf("expected len 100, got %d", q.Len())
	}

	for range 100 {
		j, ok := q.Pop()
		if !ok {
			t.Fatal("unexpected closed queue")
		}
		j.Run()
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("position %d: expected %d, got %d", i, i, v)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := New()
	done := make(chan job.Job)

	go func() {
		j, _ := q.Pop()
		done <- j
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before any Push")
	case <-time.After(20 * time.Millisecond):
	}

	_ = q.Push(job.Terminate())

	select {
	case j := <-done:
		if !j.IsTerminate() {
			t.Error("expected terminate sentinel")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Pop")
	}
}

func TestQueueCloseDrainsThenStops(t *testing.T) {
	q := New()
	_ = q.Push(job.Terminate())
	q.Close()
	// Double close should be no-op
	q.Close()

	if !q.Closed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Push(job.Terminate()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	if _, ok := q.Pop(); !ok {
		t.Fatal("expected queued item to survive Close")
	}
	if _, ok := q.Pop(); ok {
		t.Error("expected Pop to report closed queue")
	}
}

func TestQueueCloseWakesWaiters(t *testing.T) {
	q := New()
	const waiters = 4

	var wg sync.WaitGroup
	wg.Add(waiters)
	for range waiters {
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not wake blocked Pop calls")
	}
}

func TestQueueTryPop(t *testing.T) {
	q := New()
	if _, ok := q.TryPop(); ok {
		t.Error("expected TryPop on empty queue to fail")
	}
	_ = q.Push(job.Terminate())
	if j, ok := q.TryPop(); !ok || !j.IsTerminate() {
		t.Error("expected TryPop to return the queued sentinel")
	}
}

func TestQueueConcurrentProducersConsumers(t *testing.T) {
	q := New()
	const (
		producers   = 8
		perProducer = 500
		consumers   = 4
	)

	var (
		mu    sync.Mutex
		count int
	)

	var cwg sync.WaitGroup
	cwg.Add(consumers)
	for range consumers {
		go func() {
			defer cwg.Done()
			for {
				j, ok := q.Pop()
				if !ok {
					return
				}
				j.Run()
			}
		}()
	}

	var pwg sync.WaitGroup
	pwg.Add(producers)
	for range producers {
		go func() {
			defer pwg.Done()
			for range perProducer {
				_ = q.Push(job.New(func() {
					mu.Lock()
					count++
					mu.Unlock()
				}))
			}
		}()
	}

	pwg.Wait()
	q.Close()
	cwg.Wait()

	if count != producers*perProducer {
		t.Errorf("expected %d jobs run, got %d", producers*perProducer, count)
	}
}

func TestQueueCompaction(t *testing.T) {
	q := New()
	for range 1000 {
		_ = q.Push(job.Terminate())
	}
	for range 990 {
		q.Pop()
	}
	if q.Len() != 10 {
		t.Fatalf("expected 10 remaining, got %d", q.Len())
	}

	q.mu.Lock()
	c := cap(q.items)
	q.mu.Unlock()
	if c >= 1000 {
		t.Errorf("expected backing array to shrink, cap=%d", c)
	}
}
