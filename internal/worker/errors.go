package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSize はワーカー数が 1 未満の場合に返される
	ErrInvalidSize = errors.New("worker: pool size must be at least 1")
	// ErrPoolClosed は Shutdown 開始後の Submit で返される
	ErrPoolClosed = errors.New("worker: pool is closed")
	// ErrNilJob は nil の関数を投入した場合に返される
	ErrNilJob = errors.New("worker: nil job")
)

// WorkerPanicError はジョブのパニックで終了したワーカーを表す
type WorkerPanicError struct {
	Pool     string
	WorkerID int
	Value    any
	Stack    []byte
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("worker %d of pool %s panicked: %v", e.WorkerID, e.Pool, e.Value)
}

// Unwrap はパニック値が error の場合にそれを返す
func (e *WorkerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
