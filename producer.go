package redisq

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// Producer is the call-time handle of a registered task function. Invoking
// it does not run the function body: the call is encoded into a Task and
// appended to the function's queue, to be executed later by the worker
// polling that queue. Calls are fire-and-forget; a nil return means
// "enqueued", never "executed".
type Producer struct {
	fn       string
	registry *Registry
	backend  Backend
	codec    Codec
	logger   log.Logger
}

// ProducerOption configures a Producer.
type ProducerOption func(*Producer)

// UseProducerCodec replaces the default JSON codec. It must match the
// codec of the Manager consuming the queue.
func UseProducerCodec(codec Codec) ProducerOption {
	return func(p *Producer) {
		p.codec = codec
	}
}

// UseProducerLogger feeds the producer with a logger of choice.
func UseProducerLogger(logger log.Logger) ProducerOption {
	return func(p *Producer) {
		p.logger = logger
	}
}

// NewProducer registers fn on the given queue with the given handler and
// returns the call handle for it. Registration must happen before the
// Manager starts consuming, or no worker will poll the queue.
func NewProducer(registry *Registry, backend Backend, fn, queue string, handler Handler, opts ...ProducerOption) (*Producer, error) {
	if err := registry.Register(fn, queue, handler); err != nil {
		return nil, err
	}
	return ProducerFor(registry, backend, fn, opts...), nil
}

// ProducerFor returns a call handle for a function identifier expected to
// be registered elsewhere. The registration is checked at call time, not
// here; calling a handle for an identifier absent from the registry fails
// with ErrUnregisteredProducer.
func ProducerFor(registry *Registry, backend Backend, fn string, opts ...ProducerOption) *Producer {
	p := &Producer{
		fn:       fn,
		registry: registry,
		backend:  backend,
		codec:    jsonCodec{},
		logger:   log.NewNopLogger(),
	}
	for _, f := range opts {
		f(p)
	}
	return p
}

// Fn returns the function identifier this handle is bound to.
func (p *Producer) Fn() string {
	return p.fn
}

// Call enqueues one invocation with positional arguments only.
func (p *Producer) Call(ctx context.Context, args ...interface{}) error {
	return p.CallKw(ctx, args, nil)
}

// CallKw enqueues one invocation with positional and named arguments. It
// fails synchronously with ErrUnregisteredProducer if fn is not
// registered, ErrEncode if an argument cannot be serialized, or
// ErrConnection if the backend rejects the push. On a nil return the task
// is durably appended to the queue tail.
func (p *Producer) CallKw(ctx context.Context, args Args, kwargs Kwargs) error {
	queue, err := p.registry.QueueOf(p.fn)
	if err != nil {
		return errors.Wrap(ErrUnregisteredProducer, p.fn)
	}
	payload, err := p.codec.Marshal(Task{Fn: p.fn, Args: args, Kwargs: kwargs})
	if err != nil {
		return err
	}
	if err := p.backend.Push(ctx, queue, payload); err != nil {
		return err
	}
	_ = level.Debug(p.logger).Log("msg", "task enqueued", "fn", p.fn, "queue", queue)
	return nil
}
