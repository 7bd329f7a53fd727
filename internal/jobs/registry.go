package jobs

import (
	"fmt"
	"sync"
)

// Handler executes one claimed job run. Returning an error releases the run
// back to the queue under its retry policy; returning nil marks it succeeded.
type Handler interface {
	Type() string
	Run(jc *Context) error
}

// ExhaustionHandler is implemented by handlers that need to act exactly once
// when a run moves to dead, after its final failed attempt.
type ExhaustionHandler interface {
	OnExhausted(jc *Context, runErr error)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(h Handler) error {
	if h == nil || h.Type() == "" {
		return fmt.Errorf("handler must have a non-empty type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Type()]; exists {
		return fmt.Errorf("handler already registered for type %q", h.Type())
	}
	r.handlers[h.Type()] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
