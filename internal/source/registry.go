package source

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds the sources constructed at startup.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
}

// NewRegistry creates a registry holding the given sources.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{}
	for _, s := range sources {
		_ = r.Register(s)
	}
	return r
}

// Register adds a source. Names must be unique (case-insensitive).
func (r *Registry) Register(s Source) error {
	if s == nil {
		return fmt.Errorf("register source: nil source")
	}
	name := strings.TrimSpace(s.Name())
	if name == "" {
		return fmt.Errorf("register source: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sources {
		if strings.EqualFold(existing.Name(), name) {
			return fmt.Errorf("register source: duplicate name %q", name)
		}
	}
	r.sources = append(r.sources, s)
	return nil
}

// Sources returns a snapshot of the registered sources in registration order.
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Source(nil), r.sources...)
}

// Names returns the registered source names.
func (r *Registry) Names() []string {
	srcs := r.Sources()
	names := make([]string, len(srcs))
	for i, s := range srcs {
		names[i] = s.Name()
	}
	return names
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
