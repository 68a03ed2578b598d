package redisq

import (
	"context"
	"sync"
	"time"
)

// InProcessBackend is a Backend held entirely in process memory. It mirrors
// the blocking semantics of the redis backend and is meant for tests and
// for demos that should run without a redis server.
type InProcessBackend struct {
	mu     sync.Mutex
	queues map[string][][]byte
	wake   map[string]chan struct{}
}

// NewInProcessBackend creates an empty in-process backend.
func NewInProcessBackend() *InProcessBackend {
	return &InProcessBackend{
		queues: make(map[string][][]byte),
		wake:   make(map[string]chan struct{}),
	}
}

// wakeCh returns the channel that closes on the next push to queue.
// Callers must hold i.mu.
func (i *InProcessBackend) wakeCh(queue string) chan struct{} {
	ch, ok := i.wake[queue]
	if !ok {
		ch = make(chan struct{})
		i.wake[queue] = ch
	}
	return ch
}

// Push appends payload to the tail of queue and wakes blocked poppers.
func (i *InProcessBackend) Push(ctx context.Context, queue string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)

	i.mu.Lock()
	i.queues[queue] = append(i.queues[queue], buf)
	close(i.wakeCh(queue))
	delete(i.wake, queue)
	i.mu.Unlock()
	return nil
}

// Pop removes the head of queue, blocking until a payload arrives, timeout
// elapses (ErrEmpty), or ctx is canceled.
func (i *InProcessBackend) Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		i.mu.Lock()
		if items := i.queues[queue]; len(items) > 0 {
			head := items[0]
			i.queues[queue] = items[1:]
			i.mu.Unlock()
			return head, nil
		}
		wake := i.wakeCh(queue)
		i.mu.Unlock()

		select {
		case <-wake:
		case <-timer.C:
			return nil, ErrEmpty
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len reports the number of pending payloads in queue.
func (i *InProcessBackend) Len(ctx context.Context, queue string) (int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return int64(len(i.queues[queue])), nil
}

// Flush drops all pending payloads in queue.
func (i *InProcessBackend) Flush(ctx context.Context, queue string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.queues, queue)
	return nil
}
