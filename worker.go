package redisq

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// WorkerState describes where a queue's polling loop currently is.
type WorkerState int32

const (
	// WorkerIdle means the worker has been created but not started.
	WorkerIdle WorkerState = iota
	// WorkerPolling means the worker is blocked waiting for a task.
	WorkerPolling
	// WorkerExecuting means the worker is running a task handler.
	WorkerExecuting
	// WorkerStopped means the worker observed the stop signal and exited.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerPolling:
		return "polling"
	case WorkerExecuting:
		return "executing"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	initialPollBackoff = 100 * time.Millisecond
	maxPollBackoff     = 10 * time.Second
)

// worker is the single polling loop of one queue. Exactly one worker polls
// a given queue, which is what turns the store's head-ordered pop into the
// per-queue FIFO execution guarantee.
type worker struct {
	queue       string
	backend     Backend
	registry    *Registry
	codec       Codec
	logger      log.Logger
	pollTimeout time.Duration
	state       int32
}

func newWorker(queue string, backend Backend, registry *Registry, codec Codec, logger log.Logger, pollTimeout time.Duration) *worker {
	return &worker{
		queue:       queue,
		backend:     backend,
		registry:    registry,
		codec:       codec,
		logger:      log.With(logger, "queue", queue),
		pollTimeout: pollTimeout,
		state:       int32(WorkerIdle),
	}
}

func (w *worker) setState(s WorkerState) {
	atomic.StoreInt32(&w.state, int32(s))
}

// State reports the worker's current lifecycle state.
func (w *worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// run polls the queue until ctx is canceled. The stop signal is observed
// between poll cycles only; a task already being executed always runs to
// completion first. Dispatch and execution failures are contained: they
// are logged, the task stays consumed, and the loop moves on.
func (w *worker) run(ctx context.Context) error {
	defer w.setState(WorkerStopped)
	backoff := initialPollBackoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.setState(WorkerPolling)
		payload, err := w.backend.Pop(ctx, w.queue, w.pollTimeout)
		if errors.Is(err, ErrEmpty) {
			backoff = initialPollBackoff
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// The store is unreachable. Back off and poll again rather
			// than letting the connection error kill the queue.
			_ = level.Warn(w.logger).Log("err", errors.Wrap(err, "poll failed, backing off"), "backoff", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff *= 2; backoff > maxPollBackoff {
				backoff = maxPollBackoff
			}
			continue
		}
		backoff = initialPollBackoff
		w.execute(ctx, payload)
	}
}

// execute dispatches one popped payload. Once here the task is consumed:
// whatever the outcome, it is not requeued.
func (w *worker) execute(ctx context.Context, payload []byte) {
	w.setState(WorkerExecuting)
	defer w.setState(WorkerPolling)

	task, err := w.codec.Unmarshal(payload)
	if err != nil {
		_ = level.Warn(w.logger).Log("err", errors.Wrap(err, "dropping undecodable task"))
		return
	}
	handler, err := w.registry.Lookup(task.Fn)
	if err != nil {
		_ = level.Warn(w.logger).Log("err", errors.Wrap(err, "dropping task for unregistered function"), "fn", task.Fn)
		return
	}
	if err := w.invoke(ctx, handler, task); err != nil {
		_ = level.Warn(w.logger).Log("err", errors.Wrapf(err, "task %s failed", task.Fn), "fn", task.Fn)
		return
	}
	_ = level.Debug(w.logger).Log("msg", "task executed", "fn", task.Fn)
}

// invoke runs the handler, converting a panic into an error so that one
// misbehaving task body cannot take the worker loop down with it.
func (w *worker) invoke(ctx context.Context, handler Handler, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, task.Args, task.Kwargs)
}

// sleep waits d unless ctx ends first. It reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
