// Package redisq provides an embedded FIFO task dispatcher backed by a
// shared ordered-list store, typically redis.
//
// Introduction
//
// A call site declares a plain function as a task producer. Invoking the
// returned handle does not run the function body: the call is serialized
// and appended to a named queue, and a background worker for that queue
// later dequeues and executes it. Exactly one worker polls a given queue,
// so tasks on the same queue execute strictly in enqueue order. Ordering
// across different queues is independent.
//
// Simple Usage
//
// Declare the task function, wiring it to a queue:
//
//  registry := redisq.NewRegistry()
//  backend, err := redisq.NewRedisBackend("redis://localhost:6379", logger)
//  sendMail, err := redisq.NewProducer(registry, backend, "mail.send", "mail",
//  	func(ctx context.Context, args redisq.Args, kwargs redisq.Kwargs) error {
//  		return mailer.Send(args[0].(string))
//  	})
//
// Start consuming. All task functions must be registered before Consume is
// called, because the manager enumerates the registry once to decide which
// queues to poll:
//
//  manager := redisq.NewManager(backend, registry)
//  go manager.Consume(ctx)
//
// Produce. The call returns once the task is durably appended to the
// queue; it never waits for execution:
//
//  err = sendMail.Call(ctx, "bob@example.com")
//
// Delivery is at most once. A task popped from the queue is executed at
// most one time: a handler that returns an error or panics is logged and
// the task is dropped, never redelivered. There is no retry, priority or
// dead-letter machinery; task bodies that need more than that should
// build it on top.
//
// Arguments travel through the default JSON codec, so they are limited to
// the JSON value subset and numbers decode as float64. Passing an
// unencodable argument fails the producer call synchronously with
// ErrEncode.
//
// Lifecycle
//
// Canceling the context passed to Consume stops every worker
// cooperatively: the in-flight task always runs to completion, then the
// loop observes the cancellation on its next bounded poll and exits. A
// lost backend connection pauses the affected workers; they retry with
// capped exponential backoff instead of terminating.
//
// Metrics
//
// To gain visibility on queue depth, pass a gauge to the manager with
// UseGauge. The length of each consumed queue is periodically reported to
// the metrics collector, presumably Prometheus.
//
// Command
//
// The cmd/redisq binary bundles operator commands for inspecting queue
// lengths, flushing queues, enqueueing raw task payloads and watching
// queue depth until interrupted.
package redisq
