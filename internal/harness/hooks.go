package harness

import (
	"sort"
	"sync"
)

// HookFunc is a registered invocable referenced by before/after expressions.
// Arguments come from the expression's string literals.
type HookFunc func(args ...string) error

// Registry maps hook names to functions. Expressions are resolved against a
// registry when the executor prepares a run, before any process or directory
// is allocated.
//
// Thread-safety: all methods are safe for concurrent use. Hooks registered
// from test file init functions are visible in both the parent and the
// re-executed child, since both run the same binary.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]HookFunc
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]HookFunc)}
}

// Register binds a name to a hook function, replacing any previous binding.
func (r *Registry) Register(name string, fn HookFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = fn
}

// Resolve looks up a hook by name.
func (r *Registry) Resolve(name string) (HookFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.hooks[name]
	return fn, ok
}

// Names returns the registered hook names, sorted for stable diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide hook registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register binds a name in the process-wide registry.
func Register(name string, fn HookFunc) {
	defaultRegistry.Register(name, fn)
}
