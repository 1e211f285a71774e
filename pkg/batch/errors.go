package batch

import (
	"errors"
	"fmt"
)

// ErrClosed is returned for any operation attempted after the engine has
// closed. The rejection is immediate and does not touch the queue.
var ErrClosed = errors.New("batch: engine is closed")

// ConnectionError reports that the underlying store failed to open. It is
// fatal: the engine closes itself and every queued and future operation
// fails with it.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("batch: store connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransactionError reports that a batch's transaction failed or aborted.
// It is delivered through the batch future shared by the writes of that
// batch; the engine remains usable for later batches.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("batch: transaction failed: %v", e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// EraseError reports that erasing the store during Destroy failed.
type EraseError struct {
	Err error
}

func (e *EraseError) Error() string {
	return fmt.Sprintf("batch: store erase failed: %v", e.Err)
}

func (e *EraseError) Unwrap() error { return e.Err }
