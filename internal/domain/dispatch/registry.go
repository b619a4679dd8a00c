package dispatch

import (
	"sort"
	"sync"

	"pushfan/internal/common"
)

// Registry maps channel names to registered Channel instances. It is the
// single process-wide lookup point for dispatch callers and is safe for
// concurrent registration and lookup.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register inserts a channel under the given name, replacing any prior
// entry. Replacement is atomic from the caller's perspective; in-flight
// sends on a replaced instance are unaffected since each adapter owns its
// own limiter and state.
func (r *Registry) Register(name string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[name] = ch
}

// Get returns the channel registered under name, or a not-registered error
// carrying the requested name.
func (r *Registry) Get(name string) (Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[name]
	if !ok {
		return nil, common.NewNotRegisteredError(name)
	}
	return ch, nil
}

// Names returns the registered channel names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear empties the registry. Used to reset state between independent test
// runs or reconfiguration cycles.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = make(map[string]Channel)
}
