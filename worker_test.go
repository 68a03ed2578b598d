package redisq

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBackend fails the first failures pops with a connection error, then
// behaves like the wrapped backend.
type flakyBackend struct {
	*InProcessBackend
	failures int32
}

func (f *flakyBackend) Pop(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return nil, errors.Wrap(ErrConnection, "simulated outage")
	}
	return f.InProcessBackend.Pop(ctx, queue, timeout)
}

func startWorker(t *testing.T, b Backend, reg *Registry) (cancel func()) {
	t.Helper()
	w := newWorker("q", b, reg, jsonCodec{}, log.NewNopLogger(), 50*time.Millisecond)
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.run(ctx)
	}()
	return func() {
		stop()
		<-done
	}
}

func mustPayload(t *testing.T, task Task) []byte {
	t.Helper()
	payload, err := jsonCodec{}.Marshal(task)
	require.NoError(t, err)
	return payload
}

func waitForValue(t *testing.T, ch <-chan interface{}) interface{} {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task execution")
		return nil
	}
}

func TestWorker_poisonMessageContainment(t *testing.T) {
	b := NewInProcessBackend()
	reg := NewRegistry()
	executed := make(chan interface{}, 1)
	require.NoError(t, reg.Register("echo", "q", func(ctx context.Context, args Args, kwargs Kwargs) error {
		executed <- args[0]
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, b.Push(ctx, "q", []byte("{not json")))
	require.NoError(t, b.Push(ctx, "q", mustPayload(t, Task{Fn: "never.registered", Args: Args{"x"}})))
	require.NoError(t, b.Push(ctx, "q", mustPayload(t, Task{Fn: "echo", Args: Args{"still alive"}})))

	cancel := startWorker(t, b, reg)
	defer cancel()

	assert.Equal(t, "still alive", waitForValue(t, executed))

	// The poison payloads were consumed, not requeued.
	n, err := b.Len(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestWorker_executionIsolation(t *testing.T) {
	b := NewInProcessBackend()
	reg := NewRegistry()
	executed := make(chan interface{}, 2)
	require.NoError(t, reg.Register("moody", "q", func(ctx context.Context, args Args, kwargs Kwargs) error {
		switch args[0] {
		case "fail":
			return errors.New("task body failed")
		case "panic":
			panic("task body panicked")
		default:
			executed <- args[0]
			return nil
		}
	}))

	ctx := context.Background()
	require.NoError(t, b.Push(ctx, "q", mustPayload(t, Task{Fn: "moody", Args: Args{"fail"}})))
	require.NoError(t, b.Push(ctx, "q", mustPayload(t, Task{Fn: "moody", Args: Args{"panic"}})))
	require.NoError(t, b.Push(ctx, "q", mustPayload(t, Task{Fn: "moody", Args: Args{"fine"}})))

	cancel := startWorker(t, b, reg)
	defer cancel()

	assert.Equal(t, "fine", waitForValue(t, executed))
}

func TestWorker_retriesPollAfterConnectionError(t *testing.T) {
	b := &flakyBackend{InProcessBackend: NewInProcessBackend(), failures: 2}
	reg := NewRegistry()
	executed := make(chan interface{}, 1)
	require.NoError(t, reg.Register("echo", "q", func(ctx context.Context, args Args, kwargs Kwargs) error {
		executed <- args[0]
		return nil
	}))
	require.NoError(t, b.Push(context.Background(), "q", mustPayload(t, Task{Fn: "echo", Args: Args{"recovered"}})))

	cancel := startWorker(t, b, reg)
	defer cancel()

	assert.Equal(t, "recovered", waitForValue(t, executed))
}

func TestWorker_stateTransitions(t *testing.T) {
	b := NewInProcessBackend()
	reg := NewRegistry()
	require.NoError(t, reg.Register("noop", "q", nopHandler))

	w := newWorker("q", b, reg, jsonCodec{}, log.NewNopLogger(), 50*time.Millisecond)
	assert.Equal(t, WorkerIdle, w.State())

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.run(ctx)
	}()

	assert.Eventually(t, func() bool {
		return w.State() == WorkerPolling
	}, 2*time.Second, 5*time.Millisecond)

	stop()
	<-done
	assert.Equal(t, WorkerStopped, w.State())
}

func TestWorker_inFlightTaskCompletesOnStop(t *testing.T) {
	b := NewInProcessBackend()
	reg := NewRegistry()
	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	require.NoError(t, reg.Register("slow", "q", func(ctx context.Context, args Args, kwargs Kwargs) error {
		close(started)
		<-release
		close(finished)
		return nil
	}))
	require.NoError(t, b.Push(context.Background(), "q", mustPayload(t, Task{Fn: "slow"})))

	w := newWorker("q", b, reg, jsonCodec{}, log.NewNopLogger(), 50*time.Millisecond)
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.run(ctx)
	}()

	<-started
	// Stop while the task is executing: the loop must not observe the
	// cancellation until the handler returns.
	stop()
	select {
	case <-done:
		t.Fatal("worker stopped before the in-flight task completed")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)
	<-finished
	<-done
	assert.Equal(t, WorkerStopped, w.State())
}

func TestWorkerState_String(t *testing.T) {
	assert.Equal(t, "idle", WorkerIdle.String())
	assert.Equal(t, "polling", WorkerPolling.String())
	assert.Equal(t, "executing", WorkerExecuting.String())
	assert.Equal(t, "stopped", WorkerStopped.String())
}
