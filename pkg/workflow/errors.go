package workflow

import "errors"

var (
	ErrExecutionFinished = errors.New("execution already finished")
	ErrQueueFull         = errors.New("execution queue is full")
	ErrPoolStopped       = errors.New("execution pool is stopped")
	ErrActionPanicked    = errors.New("action panicked")
	ErrConcurrentUpdate  = errors.New("execution changed concurrently")
)
