// Package queue provides the unbounded FIFO shared by a pool's workers.
//
// Any number of goroutines may Push; any number may Pop. Pop blocks until an
// item is available and removals are serialized under one lock, so items come
// out in exactly the order their Push calls completed.
//
//	q := queue.New()
//	_ = q.Push(job.New(work))
//	j, ok := q.Pop() // blocks
//
// Close stops further Push calls. Items already queued are still handed out;
// once the queue is closed and empty, Pop returns false.
package queue
