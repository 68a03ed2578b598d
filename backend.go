package redisq

import (
	"context"
	"time"
)

// Backend is the thin interface over the external ordered-list store. One
// named list holds the pending payloads of one queue; the store is the
// sole durable state of the dispatcher. A Backend must be safe for
// concurrent use by any number of producer calls and worker loops.
type Backend interface {
	// Push appends payload to the tail of queue. It returns only after the
	// store has acknowledged the write; a crash after Push returns never
	// loses the task. Push is not idempotent: a caller that fails before
	// Push returns cannot tell whether the task was enqueued.
	Push(ctx context.Context, queue string, payload []byte) error

	// Pop atomically removes and returns the head of queue, blocking until
	// an element is available or timeout elapses. An elapsed timeout is
	// reported as ErrEmpty.
	Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)

	// Len reports the number of pending payloads in queue.
	Len(ctx context.Context, queue string) (int64, error)

	// Flush drops all pending payloads in queue.
	Flush(ctx context.Context, queue string) error
}
