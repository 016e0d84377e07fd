// Package demo drives a root worker pool with numbered tasks, some of which
// fan out through nested pools.
//
// For each task i the driver submits one job to the root pool. The job logs
// that it started, and when i is a multiple of FanoutEvery it builds a nested
// pool of NestedWorkers workers, submits one sub-task per worker and shuts the
// nested pool down. Otherwise it logs a fallback line. It then logs that it
// finished.
//
//	d := demo.New(demo.DefaultConfig())
//	result, err := d.Run(ctx)
//	fmt.Println(result.Report())
//
// Cancelling ctx stops further submissions; jobs already queued still run
// before Run returns, because Run always shuts the root pool down.
package demo
