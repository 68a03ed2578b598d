package redisq

import "errors"

var (
	// ErrEmpty is returned by Backend.Pop when no task arrived before the
	// poll timeout elapsed. Workers treat it as a normal loop tick.
	ErrEmpty = errors.New("no task available")

	// ErrEncode is returned by a Producer call when an argument cannot be
	// represented in the task payload. The task is never enqueued.
	ErrEncode = errors.New("task cannot be encoded")

	// ErrDecode is returned when a payload popped from a queue is not a
	// well-formed task. The payload is consumed and dropped.
	ErrDecode = errors.New("task payload is malformed")

	// ErrUnknownFunction is returned by Registry.Lookup for a function
	// identifier that was never registered.
	ErrUnknownFunction = errors.New("function is not registered")

	// ErrDuplicateRegistration is returned by Registry.Register when the
	// function identifier is already taken.
	ErrDuplicateRegistration = errors.New("function is already registered")

	// ErrUnregisteredProducer is returned when a Producer handle is invoked
	// for a function identifier absent from its Registry.
	ErrUnregisteredProducer = errors.New("producer is not registered")

	// ErrConnection is returned when the backend store cannot be reached.
	// Producers surface it to the caller; workers retry with backoff.
	ErrConnection = errors.New("queue backend unreachable")
)
