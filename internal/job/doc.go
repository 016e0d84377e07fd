// Package job defines the unit of work carried on a pool queue.
//
// A Job is either a task wrapping a zero-argument function, or the Terminate
// sentinel that tells the worker claiming it to leave its loop.
//
//	j := job.New(func() { fmt.Println("hello") })
//	stop := job.Terminate()
//
// Jobs are values and never change after construction. Whatever the work
// function captures must be safe to use from another goroutine, because the
// worker that claims the job runs it there.
package job
