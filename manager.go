package redisq

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const defaultPollTimeout = time.Second

// Manager owns the shared backend connection and the lifecycle of the
// workers. Consume snapshots the Registry once and starts exactly one
// worker per distinct queue in use; functions registered afterwards have
// no worker polling their queue until Consume is invoked again.
type Manager struct {
	backend     Backend
	registry    *Registry
	codec       Codec
	logger      log.Logger
	pollTimeout time.Duration

	queueLengthGauge         metrics.Gauge
	checkQueueLengthInterval time.Duration

	mu      sync.RWMutex
	workers map[string]*worker
}

// UseLogger is an option for NewManager that feeds the manager and its
// workers with a logger of choice.
func UseLogger(logger log.Logger) func(*Manager) {
	return func(m *Manager) {
		m.logger = logger
	}
}

// UseCodec allows the caller to replace the default JSON codec with a
// custom one. Producers for the same queues must use the same codec.
func UseCodec(codec Codec) func(*Manager) {
	return func(m *Manager) {
		m.codec = codec
	}
}

// UsePollTimeout sets the bounded wait of each poll cycle. Shorter values
// make shutdown more responsive at the cost of more store round trips.
func UsePollTimeout(timeout time.Duration) func(*Manager) {
	return func(m *Manager) {
		m.pollTimeout = timeout
	}
}

// UseGauge is an option for NewManager that reports per-queue length to
// the given gauge every interval. The gauge receives a "queue" label.
func UseGauge(gauge metrics.Gauge, interval time.Duration) func(*Manager) {
	return func(m *Manager) {
		m.queueLengthGauge = gauge
		m.checkQueueLengthInterval = interval
	}
}

// NewManager creates a Manager around the given backend and registry.
func NewManager(backend Backend, registry *Registry, opts ...func(*Manager)) *Manager {
	m := &Manager{
		backend:     backend,
		registry:    registry,
		codec:       jsonCodec{},
		logger:      log.NewNopLogger(),
		pollTimeout: defaultPollTimeout,
		workers:     make(map[string]*worker),
	}
	for _, f := range opts {
		f(m)
	}
	return m
}

// Consume starts one worker per registered queue and blocks until ctx is
// canceled. All task-producing functions must be registered before Consume
// is called. On cancellation each worker finishes its in-flight task, then
// stops; Consume returns the context's error.
func (m *Manager) Consume(ctx context.Context) error {
	queues := m.registry.Queues()
	if len(queues) == 0 {
		return errors.New("no queues to consume: register task functions before calling Consume")
	}

	g, ctx := errgroup.WithContext(ctx)
	m.mu.Lock()
	for _, queue := range queues {
		w := newWorker(queue, m.backend, m.registry, m.codec, m.logger, m.pollTimeout)
		m.workers[queue] = w
		g.Go(func() error {
			return w.run(ctx)
		})
	}
	m.mu.Unlock()
	_ = level.Info(m.logger).Log("msg", "consuming", "queues", len(queues))

	if m.queueLengthGauge != nil {
		if m.checkQueueLengthInterval == 0 {
			m.checkQueueLengthInterval = 15 * time.Second
		}
		ticker := time.NewTicker(m.checkQueueLengthInterval)
		g.Go(func() error {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.gauge(ctx, queues)
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		})
	}
	return g.Wait()
}

// WorkerState reports the state of the worker polling queue, if Consume
// has started one.
func (m *Manager) WorkerState(queue string) (WorkerState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workers[queue]
	if !ok {
		return WorkerIdle, false
	}
	return w.State(), true
}

func (m *Manager) gauge(ctx context.Context, queues []string) {
	for _, queue := range queues {
		n, err := m.backend.Len(ctx, queue)
		if err != nil {
			_ = level.Warn(m.logger).Log("err", err)
			continue
		}
		m.queueLengthGauge.With("queue", queue).Set(float64(n))
	}
}
