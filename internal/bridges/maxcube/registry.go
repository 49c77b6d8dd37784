package maxcube

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds one Handle per gateway host.
//
// It is populated once during Setup and never shrinks. The caller owns it
// and passes it to whatever needs to look up gateways.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Register adds h under its host.
//
// Returns ErrGatewayExists if the host is already registered.
func (r *Registry) Register(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[h.Host()]; exists {
		return fmt.Errorf("%w: %s", ErrGatewayExists, h.Host())
	}
	r.handles[h.Host()] = h
	return nil
}

// Get returns the handle for host.
//
// Returns ErrGatewayNotFound if no handle is registered for host.
func (r *Registry) Get(host string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handles[host]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayNotFound, host)
	}
	return h, nil
}

// Has reports whether host is registered.
func (r *Registry) Has(host string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[host]
	return ok
}

// Hosts returns registered hosts in sorted order.
func (r *Registry) Hosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hosts := make([]string, 0, len(r.handles))
	for host := range r.handles {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// Handles returns registered handles ordered by host.
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host() < out[j].Host() })
	return out
}

// Len returns the number of registered gateways.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close closes every registered connection and returns the first error.
func (r *Registry) Close() error {
	var first error
	for _, h := range r.Handles() {
		if err := h.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing %s: %w", h.Host(), err)
		}
	}
	return first
}
