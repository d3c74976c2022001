package action

import (
	"fmt"
	"sync"

	"github.com/jzx17/actionflow/pkg/types"
)

// Registry maps action names to registered actions. Names are unique, and
// so are the event types derived from them.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Action
	order   []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]*Action),
	}
}

// Add registers a. A name that is already taken is a configuration error.
func (r *Registry) Add(a *Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[a.Name]; exists {
		return fmt.Errorf("action %s: %w", a.Name, types.ErrDuplicateAction)
	}
	r.actions[a.Name] = a
	r.order = append(r.order, a.Name)
	return nil
}

// Get returns the action registered under name
func (r *Registry) Get(name string) (*Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.actions[name]
	if !exists {
		return nil, fmt.Errorf("action %s: %w", name, types.ErrUnknownAction)
	}
	return a, nil
}

// Names lists registered action names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered actions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}
