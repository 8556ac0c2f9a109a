package mutation

import (
	"errors"
	"fmt"
	"sync"
)

// Handler observes or performs a mutation.
type Handler interface {
	Handle(m Mutation) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(m Mutation) error

func (f HandlerFunc) Handle(m Mutation) error { return f(m) }

// DOMHandler writes mutations to their target element.
type DOMHandler struct{}

func (DOMHandler) Handle(m Mutation) error { return m.Apply() }

// Registry dispatches mutations to the handlers registered for their aspect.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Aspect][]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Aspect][]Handler),
	}
}

// NewDOMRegistry returns a registry that applies every aspect to the DOM.
func NewDOMRegistry() *Registry {
	r := NewRegistry()
	for _, a := range Order {
		r.RegisterHandler(a, DOMHandler{})
	}
	return r
}

func (r *Registry) RegisterHandler(aspect Aspect, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[aspect] = append(r.handlers[aspect], handler)
}

// RegisterAll registers handler for every aspect.
func (r *Registry) RegisterAll(handler Handler) {
	for _, a := range Order {
		r.RegisterHandler(a, handler)
	}
}

// Apply runs every handler of the mutation's aspect in registration order.
// A failing or panicking handler does not stop the ones after it.
func (r *Registry) Apply(m Mutation) error {
	r.mu.RLock()
	handlers, exists := r.handlers[m.Aspect]
	if !exists {
		r.mu.RUnlock()
		return fmt.Errorf("no handlers registered for aspect: %s", m.Aspect)
	}

	// Copy handlers to release lock quickly
	handlersCopy := make([]Handler, len(handlers))
	copy(handlersCopy, handlers)
	r.mu.RUnlock()

	var errs []error
	for _, handler := range handlersCopy {
		if err := safeHandle(handler, m); err != nil {
			errs = append(errs, fmt.Errorf("handler error for %s: %w", m.Aspect, err))
		}
	}
	return errors.Join(errs...)
}

// Failure is a mutation whose handlers reported an error.
type Failure struct {
	Mutation Mutation
	Err      error
}

// ApplyBatch applies each mutation in order. A failed mutation does not stop
// the rest; the failures are returned in batch order.
func (r *Registry) ApplyBatch(b Batch) []Failure {
	var failures []Failure
	for _, m := range b {
		if err := r.Apply(m); err != nil {
			failures = append(failures, Failure{Mutation: m, Err: err})
		}
	}
	return failures
}

func safeHandle(h Handler, m Mutation) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h.Handle(m)
}
