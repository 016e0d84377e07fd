// Package events provides lifecycle notifications for worker pools.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventPoolStarted is emitted once all workers of a pool have been spawned
	EventPoolStarted EventType = "pool_started"
	// EventPoolStopped is emitted when Shutdown has joined every worker
	EventPoolStopped EventType = "pool_stopped"
	// EventWorkerExited is emitted when a worker leaves its loop, cleanly or not
	EventWorkerExited EventType = "worker_exited"
	// EventJobPanicked is emitted when a job panics and takes its worker down
	EventJobPanicked EventType = "job_panicked"
	// EventSubmitRejected is emitted when Submit is called on a closed pool
	EventSubmitRejected EventType = "submit_rejected"
)

// Event represents a pool lifecycle event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PoolID    string    `json:"pool_id"`
	PoolName  string    `json:"pool_name,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	WorkerID int    `json:"worker_id"`
	Workers  int    `json:"workers,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewPoolStartedEvent creates a pool started event
func NewPoolStartedEvent(poolID, poolName string, workers int) Event {
	return Event{
		Type:      EventPoolStarted,
		Timestamp: time.Now(),
		PoolID:    poolID,
		PoolName:  poolName,
		Data:      EventData{Workers: workers},
	}
}

// NewPoolStoppedEvent creates a pool stopped event. err is the aggregate
// failure reported by Shutdown, if any.
func NewPoolStoppedEvent(poolID, poolName string, err error) Event {
	return Event{
		Type:      EventPoolStopped,
		Timestamp: time.Now(),
		PoolID:    poolID,
		PoolName:  poolName,
		Data:      EventData{Error: errString(err)},
	}
}

// NewWorkerExitedEvent creates a worker exited event
func NewWorkerExitedEvent(poolID, poolName string, workerID int, err error) Event {
	return Event{
		Type:      EventWorkerExited,
		Timestamp: time.Now(),
		PoolID:    poolID,
		PoolName:  poolName,
		Data:      EventData{WorkerID: workerID, Error: errString(err)},
	}
}

// NewJobPanickedEvent creates a job panicked event
func NewJobPanickedEvent(poolID, poolName string, workerID int, err error) Event {
	return Event{
		Type:      EventJobPanicked,
		Timestamp: time.Now(),
		PoolID:    poolID,
		PoolName:  poolName,
		Data:      EventData{WorkerID: workerID, Error: errString(err)},
	}
}

// NewSubmitRejectedEvent creates a submit rejected event
func NewSubmitRejectedEvent(poolID, poolName string, err error) Event {
	return Event{
		Type:      EventSubmitRejected,
		Timestamp: time.Now(),
		PoolID:    poolID,
		PoolName:  poolName,
		Data:      EventData{Error: errString(err)},
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
