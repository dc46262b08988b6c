// Package session starts crawl sessions on behalf of the control API and
// guarantees that at most one session per domain runs at a time.
package session

import (
	"sort"
	"sync"
)

// Registry tracks domains with an active crawl session. It is shared by
// reference between the code that starts sessions and the code that ends
// them.
type Registry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]struct{})}
}

// TryStart marks domain active. It returns false if it already was.
func (r *Registry) TryStart(domain string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[domain]; ok {
		return false
	}
	r.active[domain] = struct{}{}
	return true
}

// Finish removes domain.
func (r *Registry) Finish(domain string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, domain)
}

// IsActive reports whether domain has a running session.
func (r *Registry) IsActive(domain string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[domain]
	return ok
}

// Active lists running domains in sorted order.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.active))
	for d := range r.active {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
