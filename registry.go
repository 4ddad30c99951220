package agentrun

import (
	"slices"
	"sync"
)

// Registry is an ordered collection of functions, typically every function an
// application constructs, kept for schema export. It is not keyed: two
// functions with the same name may both be registered. Uniqueness is only
// required among the functions attached to one Controller.
type Registry struct {
	mu        sync.Mutex
	functions []Function
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends functions in order. Safe for concurrent use.
func (r *Registry) Register(fns ...Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions = append(r.functions, fns...)
}

// GetAll returns the registered functions in registration order. The returned
// slice is a copy.
func (r *Registry) GetAll() []Function {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.functions)
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.functions)
}

// Reset removes every function. Meant for test isolation; it must not run while
// a controller is dispatching functions taken from this registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions = nil
}
