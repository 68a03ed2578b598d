package redisq

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Handler is the executable body of a registered task function. It receives
// the decoded positional and named arguments of one task.
type Handler func(ctx context.Context, args Args, kwargs Kwargs) error

type registration struct {
	handler Handler
	queue   string
}

// Registry maps function identifiers to their handlers and owning queues.
// It is the single source of truth for which queue a task belongs to and
// how to invoke it. Registration happens at declaration time, before the
// Manager starts its workers; after that the Registry is read-only and
// safe for concurrent use by producers and workers.
type Registry struct {
	rwLock sync.RWMutex
	funcs  map[string]registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]registration)}
}

// Register binds fn to the given queue and handler. A function identifier
// can be registered once per Registry; a second registration is rejected
// with ErrDuplicateRegistration regardless of the queue or handler given.
func (r *Registry) Register(fn, queue string, handler Handler) error {
	if fn == "" {
		return errors.New("function identifier must not be empty")
	}
	if queue == "" {
		return errors.Errorf("function %s: queue name must not be empty", fn)
	}
	if handler == nil {
		return errors.Errorf("function %s: handler must not be nil", fn)
	}
	r.rwLock.Lock()
	defer r.rwLock.Unlock()
	if _, ok := r.funcs[fn]; ok {
		return errors.Wrap(ErrDuplicateRegistration, fn)
	}
	r.funcs[fn] = registration{handler: handler, queue: queue}
	return nil
}

// Lookup returns the handler registered under fn.
func (r *Registry) Lookup(fn string) (Handler, error) {
	r.rwLock.RLock()
	defer r.rwLock.RUnlock()
	reg, ok := r.funcs[fn]
	if !ok {
		return nil, errors.Wrap(ErrUnknownFunction, fn)
	}
	return reg.handler, nil
}

// QueueOf returns the queue fn was registered on.
func (r *Registry) QueueOf(fn string) (string, error) {
	r.rwLock.RLock()
	defer r.rwLock.RUnlock()
	reg, ok := r.funcs[fn]
	if !ok {
		return "", errors.Wrap(ErrUnknownFunction, fn)
	}
	return reg.queue, nil
}

// Queues returns the distinct queue names in use by registered functions,
// sorted for deterministic worker startup. The Manager enumerates this
// once when it starts consuming.
func (r *Registry) Queues() []string {
	r.rwLock.RLock()
	defer r.rwLock.RUnlock()
	seen := make(map[string]struct{})
	var queues []string
	for _, reg := range r.funcs {
		if _, ok := seen[reg.queue]; ok {
			continue
		}
		seen[reg.queue] = struct{}{}
		queues = append(queues, reg.queue)
	}
	sort.Strings(queues)
	return queues
}
