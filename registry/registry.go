// Package registry provides a thread-safe registry of worker factories
// keyed by type reference.
package registry

import (
	"sync"

	"github.com/BranchIntl/miniworker/core"
	"github.com/BranchIntl/miniworker/errors"
)

// Registry is a thread-safe worker factory registry
type Registry struct {
	mu        sync.RWMutex
	factories map[string]core.WorkerFactory
}

// NewRegistry creates a new registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]core.WorkerFactory),
	}
}

// Register adds a worker factory under a type reference. The factory
// is probed once to confirm it produces a valid worker: non-nil, with
// a non-empty default worker id.
func (r *Registry) Register(typeRef string, factory core.WorkerFactory) error {
	if typeRef == "" {
		return errors.NewRegistrationError(typeRef, errors.ErrEmptyWorkerName)
	}

	if factory == nil {
		return errors.NewRegistrationError(typeRef, errors.ErrNilWorkerFactory)
	}

	// WorkerID is documented as pure and callable before the loop
	// starts, so probing here is safe.
	if w := factory(); w == nil || w.WorkerID() == "" {
		return errors.NewRegistrationError(typeRef, errors.ErrInvalidWorker)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[typeRef] = factory
	return nil
}

// Get retrieves a worker factory by type reference
func (r *Registry) Get(typeRef string) (core.WorkerFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[typeRef]
	return factory, ok
}

// List returns all registered type references
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]string, 0, len(r.factories))
	for ref := range r.factories {
		refs = append(refs, ref)
	}

	return refs
}

// Remove unregisters a worker factory
func (r *Registry) Remove(typeRef string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.factories, typeRef)
}

// Clear removes all registered factories
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories = make(map[string]core.WorkerFactory)
}
